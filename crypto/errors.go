package crypto

import (
	"errors"
	"fmt"
)

var (
	// ErrCryptoFailure is the parent of every failure that must never be
	// silently ignored or retried inside the crypto layer.
	ErrCryptoFailure = errors.New("crypto failure")

	ErrAuthenticationFailure = fmt.Errorf("%w: authentication failed", ErrCryptoFailure)
	ErrInvalidKeyLength      = fmt.Errorf("%w: invalid key length", ErrCryptoFailure)
	ErrInvalidSignature      = fmt.Errorf("%w: invalid signature", ErrCryptoFailure)
	ErrInvalidKey            = fmt.Errorf("%w: invalid key encoding", ErrCryptoFailure)
)
