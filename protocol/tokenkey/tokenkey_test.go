package tokenkey

import (
	"crypto/sha256"
	"io"
	"testing"

	"secure-courier/crypto/aes256"
	"secure-courier/crypto/key_ed25519"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/hkdf"
)

func TestDeriveIsDeterministic(t *testing.T) {
	groupKey, err := aes256.NewKey()
	require.NoError(t, err)
	user, err := key_ed25519.NewPair()
	require.NoError(t, err)

	first, err := Derive(groupKey, user.Pub)
	require.NoError(t, err)
	second, err := Derive(groupKey, user.Pub)
	require.NoError(t, err)

	assert.Len(t, first, 32)
	assert.Equal(t, first, second)

	// Independent recomputation over groupKey || publicKey
	ikm := append(append([]byte{}, groupKey[:]...), user.Pub...)
	expected := make([]byte, 32)
	_, err = io.ReadFull(hkdf.New(sha256.New, ikm, nil, nil), expected)
	require.NoError(t, err)
	assert.Equal(t, expected, first)
}

func TestDeriveSeparatesInputs(t *testing.T) {
	groupKey, err := aes256.NewKey()
	require.NoError(t, err)
	otherGroupKey, err := aes256.NewKey()
	require.NoError(t, err)
	alice, err := key_ed25519.NewPair()
	require.NoError(t, err)
	bob, err := key_ed25519.NewPair()
	require.NoError(t, err)

	base, err := Derive(groupKey, alice.Pub)
	require.NoError(t, err)

	tests := []struct {
		name     string
		groupKey aes256.Key
		pub      key_ed25519.PublicKey
	}{
		{"Other user", groupKey, bob.Pub},
		{"Other group", otherGroupKey, alice.Pub},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := Derive(tt.groupKey, tt.pub)
			require.NoError(t, err)
			assert.NotEqual(t, base, key)
		})
	}
}
