// Package logger provides structured logging for recall.
//
//   - logger.go: slog handler setup, dynamic level, package-level helpers
//   - context.go: logger and request ID propagation through context
//   - redact.go: masking of JWTs, bearer headers and credential-named fields
//
// Tokens are never logged; code that needs to correlate them logs a
// fingerprint under a key ending in _fp.
package logger
