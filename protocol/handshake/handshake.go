package handshake

import (
	"fmt"

	"secure-courier/configs"
	"secure-courier/crypto/key_ed25519"
	"secure-courier/crypto/signer_schnorr"
)

// RenewHandshakeKeyMaterial generates a new identity key, a new signed prekey
// signed with privateSigningKey and a pool of one-time prekeys. Publishing is
// up to the caller.
func RenewHandshakeKeyMaterial(privateSigningKey key_ed25519.PrivateKey) (*Material, error) {
	signingPub, err := privateSigningKey.Public()
	if err != nil {
		return nil, fmt.Errorf("failed to get public signing key: %w", err)
	}

	identity, err := key_ed25519.NewPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate identity key: %w", err)
	}

	prekey, err := key_ed25519.NewPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate signed prekey: %w", err)
	}

	prekeySig, err := signer_schnorr.Sign(privateSigningKey, prekey.Pub)
	if err != nil {
		return nil, fmt.Errorf("failed to sign prekey: %w", err)
	}

	material := &Material{
		Bundle: Bundle{
			SigningKey:      signingPub,
			IdentityKey:     identity.Pub,
			SignedPrekey:    prekey.Pub,
			PrekeySignature: prekeySig,
			OneTimePrekeys:  make([]key_ed25519.PublicKey, 0, configs.OneTimePrekeyCount),
		},
		IdentityKey:    identity.Priv,
		SignedPrekey:   prekey.Priv,
		OneTimePrekeys: make([]key_ed25519.PrivateKey, 0, configs.OneTimePrekeyCount),
	}

	for i := 0; i < configs.OneTimePrekeyCount; i++ {
		oneTime, err := key_ed25519.NewPair()
		if err != nil {
			return nil, fmt.Errorf("failed to generate one-time prekey: %w", err)
		}
		material.Bundle.OneTimePrekeys = append(material.Bundle.OneTimePrekeys, oneTime.Pub)
		material.OneTimePrekeys = append(material.OneTimePrekeys, oneTime.Priv)
	}

	return material, nil
}

// Verify checks that the signed prekey is signed by the bundle's signing key.
// A bundle that fails here must never be published.
func (b *Bundle) Verify() error {
	if _, err := b.IdentityKey.ToPoint(); err != nil {
		return fmt.Errorf("invalid identity key: %w", err)
	}
	for i, k := range b.OneTimePrekeys {
		if _, err := k.ToPoint(); err != nil {
			return fmt.Errorf("invalid one-time prekey %d: %w", i, err)
		}
	}
	return signer_schnorr.Verify(b.SigningKey, b.SignedPrekey, b.PrekeySignature)
}

// PrivateKeyFor returns the private identity key matching identityPub.
func (m *Material) PrivateKeyFor(identityPub key_ed25519.PublicKey) (key_ed25519.PrivateKey, bool) {
	if !m.Bundle.IdentityKey.Equal(identityPub) {
		return nil, false
	}
	return m.IdentityKey, true
}
