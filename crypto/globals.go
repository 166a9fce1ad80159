package crypto

import "crypto/sha256"

var (
	DefaultHashFunc = sha256.New
)

const (
	// SymmetricKeySize is the key length of the AEAD class (AES-256-GCM)
	SymmetricKeySize = 32
	DerivedKeySize   = 32
)
