package handshake

import (
	"secure-courier/crypto/key_ed25519"
)

// Bundle is the public handshake key material a user publishes so that
// others can start encrypted sessions with them.
type Bundle struct {
	SigningKey      key_ed25519.PublicKey   `json:"signing_key" validate:"required"`
	IdentityKey     key_ed25519.PublicKey   `json:"identity_key" validate:"required"`
	SignedPrekey    key_ed25519.PublicKey   `json:"signed_prekey" validate:"required"`
	PrekeySignature []byte                  `json:"prekey_signature" validate:"required"`
	OneTimePrekeys  []key_ed25519.PublicKey `json:"one_time_prekeys"`
}

// Material is a renewed bundle together with its private halves. It never
// leaves the device.
type Material struct {
	Bundle         Bundle
	IdentityKey    key_ed25519.PrivateKey
	SignedPrekey   key_ed25519.PrivateKey
	OneTimePrekeys []key_ed25519.PrivateKey
}

// Renewer produces fresh handshake material for a signing key.
type Renewer interface {
	Renew(privateSigningKey key_ed25519.PrivateKey) (*Material, error)
}

type RenewerFunc func(privateSigningKey key_ed25519.PrivateKey) (*Material, error)

func (f RenewerFunc) Renew(privateSigningKey key_ed25519.PrivateKey) (*Material, error) {
	return f(privateSigningKey)
}

var DefaultRenewer Renewer = RenewerFunc(RenewHandshakeKeyMaterial)
