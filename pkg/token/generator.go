// Package token provides token helpers.
package token

import (
	"crypto/rand"
	"encoding/base64"
)

// DefaultLength is the default random token length in bytes.
const DefaultLength = 32

// Generate returns a Base64 RawURL encoded random string of DefaultLength bytes.
func Generate() (string, error) {
	b, err := GenerateBytes(DefaultLength)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateBytes generates random bytes.
func GenerateBytes(length int) ([]byte, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return nil, err
	}
	return bytes, nil
}
