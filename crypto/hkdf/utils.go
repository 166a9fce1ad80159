package hkdf

import (
	"hash"
	"io"

	"secure-courier/crypto"

	"golang.org/x/crypto/hkdf"
)

// New32BytesKey derives a 32-byte key from the input keying material using
// HKDF-SHA256 (extract then expand).
func New32BytesKey(keyMaterial, salt, info []byte) ([]byte, error) {
	key := make([]byte, crypto.DerivedKeySize)
	if _, err := KDF(crypto.DefaultHashFunc, keyMaterial, salt, info, key); err != nil {
		return nil, err
	}
	return key, nil
}

// KDF fills buffer from an HKDF reader over the given parameters.
func KDF(hash func() hash.Hash, keyMaterial []byte, salt []byte, info []byte, buffer []byte) (int, error) {
	hkdfReader := hkdf.New(hash, keyMaterial, salt, info)
	return io.ReadFull(hkdfReader, buffer)
}
