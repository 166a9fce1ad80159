package signer_schnorr

import (
	"fmt"

	"secure-courier/crypto"
	"secure-courier/crypto/key_ed25519"

	"go.dedis.ch/kyber/v4/sign/schnorr"
)

func Sign(privKey key_ed25519.PrivateKey, msg []byte) ([]byte, error) {
	privScalar, err := privKey.ToScalar()
	if err != nil {
		return nil, err
	}
	return schnorr.Sign(key_ed25519.Suite, privScalar, msg)
}

// Verify checks a Schnorr signature. Any failure wraps crypto.ErrInvalidSignature.
func Verify(pubKey key_ed25519.PublicKey, msg, sig []byte) error {
	pubPoint, err := pubKey.ToPoint()
	if err != nil {
		return fmt.Errorf("%w: %v", crypto.ErrInvalidSignature, err)
	}
	if err := schnorr.Verify(key_ed25519.Suite, pubPoint, msg, sig); err != nil {
		return fmt.Errorf("%w: %v", crypto.ErrInvalidSignature, err)
	}
	return nil
}
