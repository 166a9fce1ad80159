package prekeys

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"secure-courier/common"
	"secure-courier/configs"
	"secure-courier/crypto/key_ed25519"
	"secure-courier/delivery"
	"secure-courier/protocol/handshake"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type State int32

const (
	Idle State = iota
	Renewing
	Publishing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Renewing:
		return "renewing"
	case Publishing:
		return "publishing"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Account is the signed-in user on this device.
type Account struct {
	UserID      uuid.UUID
	DisplayName string
	SigningKey  key_ed25519.PrivateKey
	DeviceID    *uuid.UUID
}

type Session interface {
	SignedInAccount() (Account, bool)
}

// Publisher is the directory service's "publish public keys" call.
type Publisher interface {
	PublishPublicKeys(ctx context.Context, req common.PublishRequest) error
}

// VerificationCodes supplies the pending verification code of a device.
type VerificationCodes interface {
	PendingCode(deviceID uuid.UUID) (string, bool)
}

// Reactor renews and republishes handshake key material when the server
// reports that the one-time prekey pool is running low.
type Reactor struct {
	state     atomic.Int32
	session   Session
	renewer   handshake.Renewer
	publisher Publisher
	store     MaterialStore
	codes     VerificationCodes
	logger    *logrus.Logger
}

// NewReactor builds an idle reactor. codes may be nil.
func NewReactor(session Session, renewer handshake.Renewer, publisher Publisher, store MaterialStore, codes VerificationCodes, logger *logrus.Logger) *Reactor {
	return &Reactor{
		session:   session,
		renewer:   renewer,
		publisher: publisher,
		store:     store,
		codes:     codes,
		logger:    logger,
	}
}

func (r *Reactor) State() State {
	return State(r.state.Load())
}

// Register installs the reactor as the low-prekey notice handler. Registering
// again replaces the previous mapping.
func (r *Reactor) Register(registry *delivery.Registry) {
	registry.Register(configs.LowPrekeyNoticeType, r.handle)
}

func (r *Reactor) handle(ctx context.Context, env *common.Envelope, body json.RawMessage) (common.DeliveryOutcome, error) {
	var notice common.LowPrekeyNotice
	if err := json.Unmarshal(body, &notice); err != nil {
		return common.Failed, fmt.Errorf("%w: %v", ErrInvalidNotice, err)
	}
	return r.HandleNotice(ctx, notice)
}

// HandleNotice runs one renew and publish cycle. The outcome is always
// NewData; the error carries a renewal or publish failure. A notice arriving
// while a cycle is running is folded into that cycle.
func (r *Reactor) HandleNotice(ctx context.Context, notice common.LowPrekeyNotice) (common.DeliveryOutcome, error) {
	r.logger.Infof("Server reports %d one-time prekeys left", notice.Remaining)

	err := r.Renew(ctx)
	if errors.Is(err, ErrRenewalInProgress) {
		// The running cycle answers for this notice too. Its publish error, if
		// any, goes to the caller that started it; the next notice retries.
		r.logger.Info("Renewal already running, notice coalesced")
		return common.NewData, nil
	}
	return common.NewData, err
}

// Renew runs the Idle -> Renewing -> Publishing -> Idle cycle once. Publish
// failures are not retried here; the next notice triggers a new cycle.
func (r *Reactor) Renew(ctx context.Context) error {
	if !r.state.CompareAndSwap(int32(Idle), int32(Renewing)) {
		return ErrRenewalInProgress
	}
	defer r.state.Store(int32(Idle))

	account, ok := r.session.SignedInAccount()
	if !ok {
		return ErrNotSignedIn
	}

	material, err := r.renewer.Renew(account.SigningKey)
	if err != nil {
		return fmt.Errorf("renewing handshake key material: %w", err)
	}

	// Never publish a bundle that does not verify
	if err := material.Bundle.Verify(); err != nil {
		return fmt.Errorf("renewed bundle rejected: %w", err)
	}

	if err := r.store.SaveMaterial(material); err != nil {
		return fmt.Errorf("%w: %v", ErrMaterialNotStored, err)
	}

	r.state.Store(int32(Publishing))

	req := common.PublishRequest{
		UserID:      account.UserID,
		DisplayName: account.DisplayName,
		Bundle:      material.Bundle,
		DeviceID:    account.DeviceID,
	}
	if account.DeviceID != nil && r.codes != nil {
		if code, ok := r.codes.PendingCode(*account.DeviceID); ok {
			req.VerificationCode = code
		}
	}

	if err := r.publisher.PublishPublicKeys(ctx, req); err != nil {
		r.logger.Errorf("Error publishing keys for user %s: %v", account.UserID, err)
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}

	r.logger.Infof("Published %d one-time prekeys for user %s", len(material.Bundle.OneTimePrekeys), account.UserID)
	return nil
}
