package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yndnr/recall-go/pkg/crypto/adaptive"
	"github.com/yndnr/recall-go/pkg/token"
)

// SealerInfo is the HKDF info string for token sealing keys.
const SealerInfo = "recall credential store v1"

// keyLength is the size of the master secret in the key file.
const keyLength = 32

// LoadOrCreateKey reads the master secret at path, creating it with mode
// 0600 when absent.
func LoadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != keyLength {
			return nil, fmt.Errorf("key file %s: want %d bytes, got %d", path, keyLength, len(key))
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	key, err = token.GenerateBytes(keyLength)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, os.ErrExist) {
		// Lost a race with another process; use its key.
		return LoadOrCreateKey(path)
	}
	if err != nil {
		return nil, fmt.Errorf("create key file: %w", err)
	}
	if _, err := f.Write(key); err != nil {
		f.Close()
		return nil, fmt.Errorf("write key file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close key file: %w", err)
	}
	return key, nil
}

// NewSealerFromFile builds the token sealer from the key file at path.
func NewSealerFromFile(path string) (*adaptive.Sealer, error) {
	key, err := LoadOrCreateKey(path)
	if err != nil {
		return nil, err
	}
	return adaptive.NewSealer(key, SealerInfo)
}
