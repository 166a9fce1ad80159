package devices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"secure-courier/common"
	"secure-courier/configs"
	"secure-courier/delivery"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidNotice = errors.New("invalid verification notice")
)

// Tracker records verification codes pushed by the directory service.
type Tracker struct {
	mutex sync.Mutex
	codes map[uuid.UUID]string
	ready map[uuid.UUID]chan struct{}

	logger *logrus.Logger
}

func NewTracker(logger *logrus.Logger) *Tracker {
	return &Tracker{
		codes:  make(map[uuid.UUID]string),
		ready:  make(map[uuid.UUID]chan struct{}),
		logger: logger,
	}
}

// Register installs the tracker as the verification notice handler.
func (t *Tracker) Register(registry *delivery.Registry) {
	registry.Register(configs.VerificationNoticeType, t.handle)
}

func (t *Tracker) handle(ctx context.Context, env *common.Envelope, body json.RawMessage) (common.DeliveryOutcome, error) {
	var notice common.VerificationNotice
	if err := json.Unmarshal(body, &notice); err != nil {
		return common.Failed, fmt.Errorf("%w: %v", ErrInvalidNotice, err)
	}
	if notice.DeviceID == uuid.Nil || notice.Code == "" {
		return common.Failed, ErrInvalidNotice
	}

	t.mutex.Lock()
	t.codes[notice.DeviceID] = notice.Code
	ch := t.readyLocked(notice.DeviceID)
	select {
	case <-ch:
	default:
		close(ch)
	}
	t.mutex.Unlock()

	t.logger.Infof("Verification code received for device %s", notice.DeviceID)
	return common.NewData, nil
}

func (t *Tracker) readyLocked(deviceID uuid.UUID) chan struct{} {
	ch, ok := t.ready[deviceID]
	if !ok {
		ch = make(chan struct{})
		t.ready[deviceID] = ch
	}
	return ch
}

func (t *Tracker) PendingCode(deviceID uuid.UUID) (string, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	code, ok := t.codes[deviceID]
	return code, ok
}

// Reset forgets the code of deviceID, so the next Await waits for a new one.
// Callers start every verification round with it.
func (t *Tracker) Reset(deviceID uuid.UUID) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	delete(t.codes, deviceID)
	if ch, ok := t.ready[deviceID]; ok {
		select {
		case <-ch:
			delete(t.ready, deviceID)
		default:
			// Waiters are still parked on it
		}
	}
}

// Await blocks until a code for deviceID has arrived.
func (t *Tracker) Await(ctx context.Context, deviceID uuid.UUID) (string, error) {
	t.mutex.Lock()
	ch := t.readyLocked(deviceID)
	t.mutex.Unlock()

	select {
	case <-ch:
		code, _ := t.PendingCode(deviceID)
		return code, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
