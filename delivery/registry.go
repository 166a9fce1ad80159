package delivery

import (
	"context"
	"encoding/json"
	"sync"

	"secure-courier/common"
)

// NoticeHandler handles the body of a plaintext notice. The returned outcome is
// reported to the push transport; the error is logged by the dispatcher.
type NoticeHandler func(ctx context.Context, env *common.Envelope, body json.RawMessage) (common.DeliveryOutcome, error)

// Registry maps notice types to handlers. Components register during
// startup, dispatch reads concurrently afterwards.
type Registry struct {
	mutex    sync.RWMutex
	handlers map[string]NoticeHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]NoticeHandler)}
}

// Register installs handler for noticeType, replacing any previous one.
func (r *Registry) Register(noticeType string, handler NoticeHandler) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.handlers[noticeType] = handler
}

func (r *Registry) Lookup(noticeType string) (NoticeHandler, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	handler, ok := r.handlers[noticeType]
	return handler, ok
}
