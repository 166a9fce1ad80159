package delivery

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"secure-courier/common"

	"github.com/google/uuid"
)

// Decode turns a raw push payload into an envelope. Any failure wraps ErrDecode.
func Decode(rawPayload map[string]any) (*common.Envelope, error) {
	value, ok := rawPayload[common.PushPayloadKey]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrDecode, common.PushPayloadKey)
	}
	encoded, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T, not a string", ErrDecode, common.PushPayloadKey, value)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var env common.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if env.ID == uuid.Nil || env.SenderID == uuid.Nil {
		return nil, fmt.Errorf("%w: envelope without id or sender", ErrDecode)
	}
	// An absent "payload" key never reaches the container's unmarshaller
	if env.Payload.Encrypted == nil && env.Payload.Notice == nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, common.ErrEmptyPayload)
	}
	return &env, nil
}
