package delivery

import "errors"

var (
	ErrDecode        = errors.New("malformed push payload")
	ErrUnknownSender = errors.New("no signing key for sender")
	ErrUnknownKey    = errors.New("payload sealed to an unknown identity key")
	ErrNoHandler     = errors.New("no handler registered for notice type")
)
