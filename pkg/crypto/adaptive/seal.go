package adaptive

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// sealPrefix marks values produced by Sealer so plaintext written by older
// versions can still be read.
const sealPrefix = "sealed:v1:"

// ErrNotSealed is returned by Open for a value without the sealed prefix.
var ErrNotSealed = errors.New("value is not sealed")

// Sealer encrypts short string values under a key derived from a master
// secret with HKDF-SHA256. The record name is bound as additional data, so
// a sealed value copied under another name fails to open.
type Sealer struct {
	c Cipher
}

// NewSealer derives a purpose-specific key from master and info.
func NewSealer(master []byte, info string) (*Sealer, error) {
	if len(master) < 16 {
		return nil, errors.New("master secret too short")
	}

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	c, err := New(key)
	if err != nil {
		return nil, err
	}
	return &Sealer{c: c}, nil
}

// Seal encrypts value for the given record name.
func (s *Sealer) Seal(name, value string) (string, error) {
	ct, err := s.c.Encrypt([]byte(value), []byte(name))
	if err != nil {
		return "", err
	}
	return sealPrefix + base64.RawStdEncoding.EncodeToString(ct), nil
}

// Open decrypts a value produced by Seal for the same record name.
func (s *Sealer) Open(name, sealed string) (string, error) {
	body, ok := strings.CutPrefix(sealed, sealPrefix)
	if !ok {
		return "", ErrNotSealed
	}
	ct, err := base64.RawStdEncoding.DecodeString(body)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	pt, err := s.c.Decrypt(ct, []byte(name))
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(pt), nil
}

// IsSealed reports whether v carries the sealed prefix.
func IsSealed(v string) bool {
	return strings.HasPrefix(v, sealPrefix)
}
