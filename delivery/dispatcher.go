package delivery

import (
	"context"
	"fmt"

	"secure-courier/common"
	"secure-courier/crypto/key_ed25519"
	"secure-courier/protocol/sealed"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SigningKeyResolver looks up a sender's public signing key.
type SigningKeyResolver interface {
	SigningKey(ctx context.Context, userID uuid.UUID) (key_ed25519.PublicKey, error)
}

// IdentityKeyResolver finds the private identity key a payload was sealed to.
type IdentityKeyResolver interface {
	IdentityKey(identityPub key_ed25519.PublicKey) (key_ed25519.PrivateKey, bool)
}

// MessageSink stores decrypted message content.
type MessageSink interface {
	Deliver(ctx context.Context, envelopeID uuid.UUID, meta common.Metadata, plaintext []byte) error
}

// Dispatcher is the default envelope processor. Notices are routed through the
// registry, encrypted payloads are opened and handed to the sink.
type Dispatcher struct {
	registry   *Registry
	senders    SigningKeyResolver
	identities IdentityKeyResolver
	sink       MessageSink
	logger     *logrus.Logger
}

func NewDispatcher(registry *Registry, senders SigningKeyResolver, identities IdentityKeyResolver, sink MessageSink, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		senders:    senders,
		identities: identities,
		sink:       sink,
		logger:     logger,
	}
}

func (d *Dispatcher) Process(ctx context.Context, env *common.Envelope, meta common.Metadata, done func(common.DeliveryOutcome)) {
	log := d.logger.WithField("envelope", env.ID)

	switch {
	case env.Payload.Notice != nil:
		outcome, err := d.handleNotice(ctx, env)
		if err != nil {
			log.Errorf("Error handling %s notice: %v", env.Payload.Notice.Type, err)
		}
		done(outcome)

	case env.Payload.Encrypted != nil:
		if err := d.openEncrypted(ctx, env, meta); err != nil {
			// A payload that did not decrypt is never reported as delivered
			log.Errorf("Error opening encrypted payload: %v", err)
			done(common.Failed)
			return
		}
		done(common.NewData)

	default:
		log.Error("Envelope without payload")
		done(common.Failed)
	}
}

func (d *Dispatcher) handleNotice(ctx context.Context, env *common.Envelope) (common.DeliveryOutcome, error) {
	notice := env.Payload.Notice
	handler, ok := d.registry.Lookup(notice.Type)
	if !ok {
		return common.NoData, fmt.Errorf("%w: %s", ErrNoHandler, notice.Type)
	}
	return handler(ctx, env, notice.Body)
}

func (d *Dispatcher) openEncrypted(ctx context.Context, env *common.Envelope, meta common.Metadata) error {
	payload := env.Payload.Encrypted

	identityKey, ok := d.identities.IdentityKey(payload.RecipientKey)
	if !ok {
		return ErrUnknownKey
	}

	senderKey, err := d.senders.SigningKey(ctx, env.SenderID)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrUnknownSender, env.SenderID, err)
	}

	plaintext, err := sealed.Open(identityKey, senderKey, payload)
	if err != nil {
		return err
	}

	return d.sink.Deliver(ctx, env.ID, meta, plaintext)
}
