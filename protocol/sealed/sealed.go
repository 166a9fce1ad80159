// Package sealed builds and opens encrypted envelope payloads.
//
// The content is encrypted under a fresh AEAD key. That key is wrapped for the
// recipient's identity key with an ephemeral Diffie-Hellman exchange fed
// through HKDF, and the whole transcript is signed with the sender's signing
// key.
package sealed

import (
	"fmt"

	"secure-courier/common"
	"secure-courier/configs"
	"secure-courier/crypto"
	"secure-courier/crypto/aes256"
	"secure-courier/crypto/dh25519"
	"secure-courier/crypto/hkdf"
	"secure-courier/crypto/key_ed25519"
	"secure-courier/crypto/sha256"
	"secure-courier/crypto/signer_schnorr"
)

func Seal(senderSigningKey key_ed25519.PrivateKey, recipientIdentityKey key_ed25519.PublicKey, plaintext []byte) (*common.EncryptedPayload, error) {
	ciphertext, payloadKey, err := aes256.EncryptWithNewKey(plaintext)
	if err != nil {
		return nil, err
	}

	ephemeral, err := key_ed25519.NewPair()
	if err != nil {
		return nil, err
	}

	wrapKey, err := wrappingKey(ephemeral.Priv, recipientIdentityKey, ephemeral.Pub, recipientIdentityKey)
	if err != nil {
		return nil, err
	}

	wrappedKey, err := aes256.Encrypt(payloadKey[:], wrapKey)
	if err != nil {
		return nil, err
	}

	payload := &common.EncryptedPayload{
		Ciphertext:   ciphertext,
		WrappedKey:   wrappedKey,
		EphemeralKey: ephemeral.Pub,
		RecipientKey: recipientIdentityKey,
	}

	payload.Signature, err = signer_schnorr.Sign(senderSigningKey, transcript(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}
	return payload, nil
}

// Open verifies the sender's signature, unwraps the payload key with the
// recipient's private identity key and decrypts. Every failure is a
// crypto.ErrCryptoFailure and no plaintext is returned.
func Open(recipientIdentityKey key_ed25519.PrivateKey, senderSigningKey key_ed25519.PublicKey, payload *common.EncryptedPayload) ([]byte, error) {
	if err := signer_schnorr.Verify(senderSigningKey, transcript(payload), payload.Signature); err != nil {
		return nil, err
	}

	wrapKey, err := wrappingKey(recipientIdentityKey, payload.EphemeralKey, payload.EphemeralKey, payload.RecipientKey)
	if err != nil {
		return nil, err
	}

	rawKey, err := aes256.Decrypt(payload.WrappedKey, wrapKey)
	if err != nil {
		return nil, err
	}
	payloadKey, err := aes256.KeyFromBytes(rawKey)
	if err != nil {
		return nil, err
	}

	return aes256.Decrypt(payload.Ciphertext, payloadKey)
}

func wrappingKey(priv key_ed25519.PrivateKey, peer key_ed25519.PublicKey, ephemeralPub, recipientPub []byte) (aes256.Key, error) {
	secret, err := dh25519.GetSecret(priv, peer)
	if err != nil {
		return aes256.Key{}, fmt.Errorf("%w: %v", crypto.ErrCryptoFailure, err)
	}

	ikm := make([]byte, 0, len(secret)+len(ephemeralPub)+len(recipientPub))
	ikm = append(ikm, secret...)
	ikm = append(ikm, ephemeralPub...)
	ikm = append(ikm, recipientPub...)

	derived, err := hkdf.New32BytesKey(ikm, nil, configs.KeyWrapInfo)
	if err != nil {
		return aes256.Key{}, err
	}
	return aes256.KeyFromBytes(derived)
}

func transcript(p *common.EncryptedPayload) []byte {
	return sha256.Hash([]byte(configs.EncryptedPayloadType), p.Ciphertext, p.WrappedKey, p.EphemeralKey, p.RecipientKey)
}
