package common

import (
	"secure-courier/protocol/handshake"

	"github.com/google/uuid"
)

// PublishRequest is the body of a "publish public keys" call to the
// directory service.
type PublishRequest struct {
	UserID           uuid.UUID        `json:"user_id"`
	DisplayName      string           `json:"display_name"`
	Bundle           handshake.Bundle `json:"bundle"`
	DeviceID         *uuid.UUID       `json:"device_id,omitempty"`
	VerificationCode string           `json:"verification_code,omitempty"`
}

type VerifyDeviceResponse struct {
	VerificationPending bool `json:"verification_pending"`
}

type SigningKeyResponse struct {
	SigningKey []byte `json:"signing_key"`
}
