package random

import (
	"crypto/rand"
	"errors"
	"io"
)

var (
	ErrInvalidLength = errors.New("invalid key length")
)

// GenerateStorageKey returns length random bytes for local storage encryption.
func GenerateStorageKey(length int) ([]byte, error) {
	if length < 0 {
		return nil, ErrInvalidLength
	}
	key := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}
