package logger

import (
	"log/slog"
	"strings"
)

// jwtPrefix starts every base64url encoded JOSE header ({"...).
const jwtPrefix = "eyJ"

// bearerPrefix starts an Authorization header value.
const bearerPrefix = "Bearer "

// fingerprintSuffix marks keys whose values are token fingerprints and
// therefore safe to log.
const fingerprintSuffix = "_fp"

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"authorization",
	"bearer",
	"cookie",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive redacts credential-shaped values and values stored under
// credential-shaped keys.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		v := a.Value.String()
		if IsSensitiveValue(v) {
			return slog.String(a.Key, RedactString(v))
		}
		if v != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// RedactString masks a JWT or bearer value, keeping only a short hint.
// Other values are returned unchanged.
func RedactString(value string) string {
	switch {
	case strings.HasPrefix(value, bearerPrefix):
		return bearerPrefix + maskValue(value[len(bearerPrefix):])
	case strings.HasPrefix(value, jwtPrefix):
		return maskValue(value)
	}
	return value
}

// maskValue keeps the first and last three characters.
func maskValue(value string) string {
	if len(value) <= 12 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	if strings.HasSuffix(keyLower, fingerprintSuffix) {
		return false
	}
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue checks if a value looks like a JWT or bearer header.
func IsSensitiveValue(value string) bool {
	if strings.HasPrefix(value, bearerPrefix) {
		return true
	}
	return strings.HasPrefix(value, jwtPrefix) && strings.Count(value, ".") == 2
}
