package hkdf

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RFC 5869 test case 1
func TestNew32BytesKeyKnownAnswer(t *testing.T) {
	ikm, _ := hex.DecodeString("0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b")
	salt, _ := hex.DecodeString("000102030405060708090a0b0c")
	info, _ := hex.DecodeString("f0f1f2f3f4f5f6f7f8f9")
	okm, _ := hex.DecodeString("3cb25f25faacd57a90434f64d0362f2a2d2d0a90cf1a5a4c5db02d56ecc4c5bf")

	key, err := New32BytesKey(ikm, salt, info)
	require.NoError(t, err)
	assert.Equal(t, okm, key)
}

func TestKDF(t *testing.T) {
	tests := []struct {
		name  string
		info  []byte
		other []byte
	}{
		{"Empty info", nil, []byte("x")},
		{"Versioned info", []byte("v1"), []byte("v2")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := make([]byte, 64)
			b := make([]byte, 64)
			c := make([]byte, 64)

			_, err := KDF(sha256.New, []byte("secret"), nil, tt.info, a)
			assert.NoError(t, err)
			_, err = KDF(sha256.New, []byte("secret"), nil, tt.info, b)
			assert.NoError(t, err)
			_, err = KDF(sha256.New, []byte("secret"), nil, tt.other, c)
			assert.NoError(t, err)

			assert.Equal(t, a, b)
			assert.NotEqual(t, a, c)
		})
	}
}
