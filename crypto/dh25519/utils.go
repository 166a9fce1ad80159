package dh25519

import (
	"errors"

	"secure-courier/crypto/key_ed25519"
)

var (
	ErrInvalid = errors.New("invalid input")
)

// GetSecret multiplies B's public point by A's private scalar.
func GetSecret(aPrivKey key_ed25519.PrivateKey, bPubKey key_ed25519.PublicKey) ([]byte, error) {
	if len(aPrivKey) == 0 || len(bPubKey) == 0 {
		return nil, ErrInvalid
	}
	privScalar, err := aPrivKey.ToScalar()
	if err != nil {
		return nil, err
	}
	pubPoint, err := bPubKey.ToPoint()
	if err != nil {
		return nil, err
	}
	secretPoint := key_ed25519.Suite.Point().Mul(privScalar, pubPoint)
	return secretPoint.MarshalBinary()
}
