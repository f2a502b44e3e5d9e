// Package channel defines the adapter boundary between the dispatcher
// and channel-specific transports. Template rendering and provider SDKs
// live outside; adapters receive already-rendered content.
package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/leobui/alertflow/internal/domain"
)

// Adapter delivers one payload over a single channel and returns the
// raw provider response for the audit trail.
type Adapter interface {
	Send(ctx context.Context, payload domain.DispatchPayload) (providerResponse string, err error)
}

// PermanentError marks a delivery failure that retrying cannot fix,
// such as an invalid destination or a channel-level rejection.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent delivery failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

type Registry struct {
	mu       sync.RWMutex
	adapters map[domain.Channel]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[domain.Channel]Adapter)}
}

func (r *Registry) Register(ch domain.Channel, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[ch] = adapter
}

func (r *Registry) Get(ch domain.Channel) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[ch]
	return adapter, ok
}
