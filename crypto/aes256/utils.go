package aes256

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"secure-courier/crypto"
)

// Key is an AES-256-GCM key. Its size is fixed by the type.
type Key [crypto.SymmetricKeySize]byte

// NewKey returns a fresh random key, used as a group's shared secret.
func NewKey() (Key, error) {
	var key Key
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return Key{}, err
	}
	return key, nil
}

// KeyFromBytes copies b into a Key. Any length other than the AEAD key
// length is a configuration error.
func KeyFromBytes(b []byte) (Key, error) {
	var key Key
	if len(b) != len(key) {
		return Key{}, crypto.ErrInvalidKeyLength
	}
	copy(key[:], b)
	return key, nil
}

// Encrypt seals the plaintext with AES-256-GCM under a fresh random nonce and
// returns nonce || ciphertext || tag.
func Encrypt(plaintext []byte, key Key) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// EncryptWithNewKey encrypts under a key generated for this call only.
func EncryptWithNewKey(plaintext []byte) ([]byte, Key, error) {
	key, err := NewKey()
	if err != nil {
		return nil, Key{}, err
	}
	ciphertext, err := Encrypt(plaintext, key)
	if err != nil {
		return nil, Key{}, err
	}
	return ciphertext, key, nil
}

// Decrypt opens nonce || ciphertext || tag. A wrong key, a tampered byte or
// a truncated blob all fail with crypto.ErrAuthenticationFailure.
func Decrypt(ciphertext []byte, key Key) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aead.NonceSize()+aead.Overhead() {
		return nil, crypto.ErrAuthenticationFailure
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, crypto.ErrAuthenticationFailure
	}
	return plaintext, nil
}

func newAEAD(key Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
