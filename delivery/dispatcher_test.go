package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"secure-courier/common"
	"secure-courier/crypto/key_ed25519"
	"secure-courier/protocol/sealed"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSenders map[uuid.UUID]key_ed25519.PublicKey

func (s staticSenders) SigningKey(ctx context.Context, userID uuid.UUID) (key_ed25519.PublicKey, error) {
	key, ok := s[userID]
	if !ok {
		return nil, errors.New("not found")
	}
	return key, nil
}

type staticIdentities map[string]key_ed25519.PrivateKey

func (s staticIdentities) IdentityKey(pub key_ed25519.PublicKey) (key_ed25519.PrivateKey, bool) {
	key, ok := s[string(pub)]
	return key, ok
}

type recordingSink struct {
	mutex     sync.Mutex
	delivered [][]byte
	err       error
}

func (s *recordingSink) Deliver(ctx context.Context, envelopeID uuid.UUID, meta common.Metadata, plaintext []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.err != nil {
		return s.err
	}
	s.delivered = append(s.delivered, plaintext)
	return nil
}

func processSync(d *Dispatcher, env *common.Envelope) common.DeliveryOutcome {
	var outcome common.DeliveryOutcome
	d.Process(context.Background(), env, env.Metadata(), func(o common.DeliveryOutcome) { outcome = o })
	return outcome
}

func TestDispatcherEncrypted(t *testing.T) {
	sender, err := key_ed25519.NewPair()
	require.NoError(t, err)
	recipient, err := key_ed25519.NewPair()
	require.NoError(t, err)
	stranger, err := key_ed25519.NewPair()
	require.NoError(t, err)

	senderID := uuid.New()
	senders := staticSenders{senderID: sender.Pub}
	identities := staticIdentities{string(recipient.Pub): recipient.Priv}

	sealedFor := func(t *testing.T, signer key_ed25519.PrivateKey, to key_ed25519.PublicKey) *common.EncryptedPayload {
		payload, err := sealed.Seal(signer, to, []byte("hello"))
		require.NoError(t, err)
		return payload
	}

	tests := []struct {
		name     string
		senderID uuid.UUID
		payload  *common.EncryptedPayload
		sinkErr  error
		expected common.DeliveryOutcome
	}{
		{"Delivered", senderID, sealedFor(t, sender.Priv, recipient.Pub), nil, common.NewData},
		{"Unknown recipient key", senderID, sealedFor(t, sender.Priv, stranger.Pub), nil, common.Failed},
		{"Unknown sender", uuid.New(), sealedFor(t, sender.Priv, recipient.Pub), nil, common.Failed},
		{"Forged signature", senderID, sealedFor(t, stranger.Priv, recipient.Pub), nil, common.Failed},
		{"Sink failure", senderID, sealedFor(t, sender.Priv, recipient.Pub), errors.New("disk full"), common.Failed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{err: tt.sinkErr}
			dispatcher := NewDispatcher(NewRegistry(), senders, identities, sink, newTestLogger())

			env := &common.Envelope{
				ID:        uuid.New(),
				SenderID:  tt.senderID,
				Timestamp: time.Now(),
				Payload:   common.PayloadContainer{Encrypted: tt.payload},
			}

			assert.Equal(t, tt.expected, processSync(dispatcher, env))
			if tt.expected == common.NewData {
				assert.Equal(t, [][]byte{[]byte("hello")}, sink.delivered)
			} else {
				assert.Empty(t, sink.delivered)
			}
		})
	}
}

func TestDispatcherNotices(t *testing.T) {
	registry := NewRegistry()
	var gotBody json.RawMessage
	registry.Register("low-prekey-count-v1", func(ctx context.Context, env *common.Envelope, body json.RawMessage) (common.DeliveryOutcome, error) {
		gotBody = body
		return common.NewData, errors.New("publish failed")
	})

	dispatcher := NewDispatcher(registry, staticSenders{}, staticIdentities{}, &recordingSink{}, newTestLogger())

	notice, err := common.NewNotice("low-prekey-count-v1", common.LowPrekeyNotice{Remaining: 42})
	require.NoError(t, err)
	unknown, err := common.NewNotice("unknown-v1", struct{}{})
	require.NoError(t, err)

	tests := []struct {
		name     string
		payload  common.PayloadContainer
		expected common.DeliveryOutcome
	}{
		{"Registered notice", common.PayloadContainer{Notice: notice}, common.NewData},
		{"Unregistered notice", common.PayloadContainer{Notice: unknown}, common.NoData},
		{"Empty payload", common.PayloadContainer{}, common.Failed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &common.Envelope{ID: uuid.New(), SenderID: uuid.New(), Payload: tt.payload}
			assert.Equal(t, tt.expected, processSync(dispatcher, env))
		})
	}

	assert.JSONEq(t, `{"remaining":42}`, string(gotBody))
}
