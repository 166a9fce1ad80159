package common

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"secure-courier/configs"

	"github.com/google/uuid"
)

// PushPayloadKey is the key of the raw push payload map holding the
// base64 encoded envelope.
const PushPayloadKey = "envelope"

var (
	ErrUnknownOutcome      = errors.New("unknown delivery outcome")
	ErrEmptyPayload        = errors.New("payload container is empty")
	ErrAmbiguousPayload    = errors.New("payload container holds both an encrypted payload and a notice")
	ErrMissingPayloadType  = errors.New("payload container has no type")
	ErrMissingEncryptedKey = errors.New("encrypted payload is missing a field")
)

// DeliveryOutcome is reported back to the push transport once per payload.
type DeliveryOutcome int

const (
	NewData DeliveryOutcome = iota
	NoData
	Failed
)

func (o DeliveryOutcome) String() string {
	switch o {
	case NewData:
		return "newData"
	case NoData:
		return "noData"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("DeliveryOutcome(%d)", int(o))
}

func (o DeliveryOutcome) MarshalText() ([]byte, error) {
	switch o {
	case NewData, NoData, Failed:
		return []byte(o.String()), nil
	}
	return nil, ErrUnknownOutcome
}

func (o *DeliveryOutcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "newData":
		*o = NewData
	case "noData":
		*o = NoData
	case "failed":
		*o = Failed
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutcome, text)
	}
	return nil
}

// Envelope is an addressed, timestamped container delivered through the push
// channel. It is consumed exactly once by the envelope processor.
type Envelope struct {
	ID                     uuid.UUID        `json:"id"`
	SenderID               uuid.UUID        `json:"sender_id"`
	Timestamp              time.Time        `json:"timestamp"`
	ServerTimestamp        time.Time        `json:"server_timestamp"`
	Payload                PayloadContainer `json:"payload"`
	Certificates           [][]byte         `json:"certificates,omitempty"`
	ConversationInvitation bool             `json:"conversation_invitation,omitempty"`
}

// Metadata is what the envelope processor learns about an envelope besides
// its payload.
type Metadata struct {
	SenderID               uuid.UUID
	Timestamp              time.Time
	ServerTimestamp        time.Time
	Certificates           [][]byte
	ConversationInvitation bool
}

func (e *Envelope) Metadata() Metadata {
	return Metadata{
		SenderID:               e.SenderID,
		Timestamp:              e.Timestamp,
		ServerTimestamp:        e.ServerTimestamp,
		Certificates:           e.Certificates,
		ConversationInvitation: e.ConversationInvitation,
	}
}

// PayloadContainer holds exactly one of an encrypted payload or a plaintext
// control notice.
type PayloadContainer struct {
	Encrypted *EncryptedPayload
	Notice    *Notice
}

// EncryptedPayload is a sealed message: AEAD ciphertext, the payload key
// wrapped for the recipient's identity key, and the sender's signature.
type EncryptedPayload struct {
	Ciphertext   []byte `json:"ciphertext"`
	Signature    []byte `json:"signature"`
	WrappedKey   []byte `json:"wrapped_key"`
	EphemeralKey []byte `json:"ephemeral_key"`
	RecipientKey []byte `json:"recipient_key"`
}

// Notice is a plaintext control payload routed by Type.
type Notice struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body"`
}

type LowPrekeyNotice struct {
	Remaining int `json:"remaining"`
}

type VerificationNotice struct {
	DeviceID uuid.UUID `json:"device_id"`
	Code     string    `json:"code"`
}

// NewNotice encodes body into a notice of the given type.
func NewNotice(noticeType string, body any) (*Notice, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &Notice{Type: noticeType, Body: raw}, nil
}

type wirePayload struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body"`
}

func (p PayloadContainer) MarshalJSON() ([]byte, error) {
	switch {
	case p.Encrypted != nil && p.Notice != nil:
		return nil, ErrAmbiguousPayload
	case p.Encrypted != nil:
		body, err := json.Marshal(p.Encrypted)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wirePayload{Type: configs.EncryptedPayloadType, Body: body})
	case p.Notice != nil:
		if p.Notice.Type == "" {
			return nil, ErrMissingPayloadType
		}
		return json.Marshal(wirePayload{Type: p.Notice.Type, Body: p.Notice.Body})
	}
	return nil, ErrEmptyPayload
}

func (p *PayloadContainer) UnmarshalJSON(data []byte) error {
	var wire wirePayload
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	switch wire.Type {
	case "":
		return ErrMissingPayloadType
	case configs.EncryptedPayloadType:
		var enc EncryptedPayload
		if err := json.Unmarshal(wire.Body, &enc); err != nil {
			return err
		}
		if len(enc.Ciphertext) == 0 || len(enc.Signature) == 0 || len(enc.WrappedKey) == 0 ||
			len(enc.EphemeralKey) == 0 || len(enc.RecipientKey) == 0 {
			return ErrMissingEncryptedKey
		}
		*p = PayloadContainer{Encrypted: &enc}
	default:
		*p = PayloadContainer{Notice: &Notice{Type: wire.Type, Body: wire.Body}}
	}
	return nil
}

// EncodePushPayload wraps an envelope into the raw map handed over by the
// push transport.
func EncodePushPayload(env *Envelope) (map[string]any, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return map[string]any{PushPayloadKey: base64.StdEncoding.EncodeToString(raw)}, nil
}

// ClientFrame is what a client writes on the push channel: either an
// envelope for another user or an acknowledgement of a delivered one.
type ClientFrame struct {
	To       uuid.UUID `json:"to"`
	Envelope *Envelope `json:"envelope,omitempty"`
	Ack      *Ack      `json:"ack,omitempty"`
}

type Ack struct {
	EnvelopeID uuid.UUID       `json:"envelope_id"`
	Outcome    DeliveryOutcome `json:"outcome"`
}
