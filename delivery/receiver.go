package delivery

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"secure-courier/common"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Processor consumes a decoded envelope and eventually calls done. It may
// call done from any goroutine, after any delay, or not at all.
type Processor interface {
	Process(ctx context.Context, env *common.Envelope, meta common.Metadata, done func(common.DeliveryOutcome))
}

type ProcessorFunc func(ctx context.Context, env *common.Envelope, meta common.Metadata, done func(common.DeliveryOutcome))

func (f ProcessorFunc) Process(ctx context.Context, env *common.Envelope, meta common.Metadata, done func(common.DeliveryOutcome)) {
	f(ctx, env, meta, done)
}

type State int32

const (
	Received State = iota
	Dispatched
	Completed
)

func (s State) String() string {
	switch s {
	case Received:
		return "received"
	case Dispatched:
		return "dispatched"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Receiver hands push payloads to a Processor and guarantees the transport's
// completion callback runs exactly once within the timeout.
type Receiver struct {
	processor Processor
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewReceiver(processor Processor, timeout time.Duration, logger *logrus.Logger) *Receiver {
	return &Receiver{
		processor: processor,
		timeout:   timeout,
		logger:    logger,
	}
}

// Delivery tracks one received payload. The first completion wins; later
// ones are dropped.
type Delivery struct {
	EnvelopeID uuid.UUID

	state      atomic.Int32
	fired      atomic.Bool
	done       chan struct{}
	outcome    common.DeliveryOutcome
	completion func(common.DeliveryOutcome)
	cancel     context.CancelFunc
}

func newDelivery(completion func(common.DeliveryOutcome)) *Delivery {
	return &Delivery{
		done:       make(chan struct{}),
		completion: completion,
		cancel:     func() {},
	}
}

// complete reports whether this call won the race.
func (d *Delivery) complete(outcome common.DeliveryOutcome) bool {
	if !d.fired.CompareAndSwap(false, true) {
		return false
	}
	d.outcome = outcome
	d.state.Store(int32(Completed))
	d.cancel()
	close(d.done)
	if d.completion != nil {
		d.completion(outcome)
	}
	return true
}

func (d *Delivery) State() State {
	return State(d.state.Load())
}

// Done is closed once the outcome is settled.
func (d *Delivery) Done() <-chan struct{} {
	return d.done
}

// Outcome returns the settled outcome, or false while still in flight.
func (d *Delivery) Outcome() (common.DeliveryOutcome, bool) {
	select {
	case <-d.done:
		return d.outcome, true
	default:
		return 0, false
	}
}

func (d *Delivery) Wait(ctx context.Context) (common.DeliveryOutcome, error) {
	select {
	case <-d.done:
		return d.outcome, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Receive decodes rawPayload and dispatches it. The completion callback fires
// exactly once: with Failed right away if decoding fails, otherwise with the
// processor's outcome or NoData when the timeout (or ctx's deadline, if
// sooner) expires first. Receive never blocks on the processor.
func (r *Receiver) Receive(ctx context.Context, rawPayload map[string]any, completion func(common.DeliveryOutcome)) *Delivery {
	d := newDelivery(completion)

	env, err := Decode(rawPayload)
	if err != nil {
		r.logger.Errorf("Error decoding push payload: %v", err)
		d.complete(common.Failed)
		return d
	}
	d.EnvelopeID = env.ID

	log := r.logger.WithFields(logrus.Fields{
		"envelope": env.ID,
		"sender":   env.SenderID,
	})

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if untilDeadline := time.Until(deadline); untilDeadline < timeout {
			timeout = untilDeadline
		}
	}

	procCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.state.Store(int32(Dispatched))

	timer := time.AfterFunc(timeout, func() {
		if d.complete(common.NoData) {
			log.Warnf("Envelope processing timed out after %s", timeout)
		}
	})

	done := func(outcome common.DeliveryOutcome) {
		if d.complete(outcome) {
			timer.Stop()
			log.Infof("Envelope processed: %s", outcome)
			return
		}
		log.Debugf("Dropping late outcome %s", outcome)
	}

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Errorf("Envelope processor panicked: %v", rec)
				done(common.Failed)
			}
		}()
		r.processor.Process(procCtx, env, env.Metadata(), done)
	}()

	return d
}
