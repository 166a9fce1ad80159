package handshake

import (
	"testing"

	"secure-courier/configs"
	"secure-courier/crypto"
	"secure-courier/crypto/key_ed25519"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenewHandshakeKeyMaterial(t *testing.T) {
	signing, err := key_ed25519.NewPair()
	require.NoError(t, err)

	material, err := RenewHandshakeKeyMaterial(signing.Priv)
	require.NoError(t, err)

	bundle := material.Bundle
	assert.NoError(t, bundle.Verify())
	assert.Equal(t, signing.Pub, bundle.SigningKey)
	assert.Len(t, bundle.OneTimePrekeys, configs.OneTimePrekeyCount)
	assert.Len(t, material.OneTimePrekeys, configs.OneTimePrekeyCount)

	// Private halves match the published halves
	identityPub, err := material.IdentityKey.Public()
	require.NoError(t, err)
	assert.Equal(t, bundle.IdentityKey, identityPub)

	prekeyPub, err := material.SignedPrekey.Public()
	require.NoError(t, err)
	assert.Equal(t, bundle.SignedPrekey, prekeyPub)

	seen := make(map[string]bool)
	for i, priv := range material.OneTimePrekeys {
		pub, err := priv.Public()
		require.NoError(t, err)
		assert.Equal(t, bundle.OneTimePrekeys[i], pub)
		assert.False(t, seen[string(pub)], "one-time prekeys must be distinct")
		seen[string(pub)] = true
	}

	priv, ok := material.PrivateKeyFor(bundle.IdentityKey)
	assert.True(t, ok)
	assert.Equal(t, material.IdentityKey, priv)
	_, ok = material.PrivateKeyFor(bundle.SignedPrekey)
	assert.False(t, ok)
}

func TestRenewProducesNewMaterial(t *testing.T) {
	signing, err := key_ed25519.NewPair()
	require.NoError(t, err)

	first, err := RenewHandshakeKeyMaterial(signing.Priv)
	require.NoError(t, err)
	second, err := DefaultRenewer.Renew(signing.Priv)
	require.NoError(t, err)

	assert.NotEqual(t, first.Bundle.IdentityKey, second.Bundle.IdentityKey)
	assert.NotEqual(t, first.Bundle.SignedPrekey, second.Bundle.SignedPrekey)
	assert.Equal(t, first.Bundle.SigningKey, second.Bundle.SigningKey)
}

func TestRenewRejectsInvalidSigningKey(t *testing.T) {
	_, err := RenewHandshakeKeyMaterial(key_ed25519.PrivateKey{1, 2, 3})
	assert.ErrorIs(t, err, crypto.ErrInvalidKey)
}

func TestBundleVerify(t *testing.T) {
	signing, err := key_ed25519.NewPair()
	require.NoError(t, err)
	other, err := key_ed25519.NewPair()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(b *Bundle)
	}{
		{"Foreign signing key", func(b *Bundle) { b.SigningKey = other.Pub }},
		{"Swapped prekey", func(b *Bundle) { b.SignedPrekey = other.Pub }},
		{"Tampered signature", func(b *Bundle) { b.PrekeySignature[0] ^= 0xff }},
		{"Missing signature", func(b *Bundle) { b.PrekeySignature = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			material, err := RenewHandshakeKeyMaterial(signing.Priv)
			require.NoError(t, err)

			bundle := material.Bundle
			tt.mutate(&bundle)
			assert.ErrorIs(t, bundle.Verify(), crypto.ErrInvalidSignature)
		})
	}

	t.Run("Invalid one-time prekey", func(t *testing.T) {
		material, err := RenewHandshakeKeyMaterial(signing.Priv)
		require.NoError(t, err)

		bundle := material.Bundle
		bundle.OneTimePrekeys = append(bundle.OneTimePrekeys, key_ed25519.PublicKey{9})
		assert.ErrorIs(t, bundle.Verify(), crypto.ErrCryptoFailure)
	})
}
