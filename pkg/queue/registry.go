package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Handler executes one job type. Execute's Outcome decides whether the
// dispatcher records success, retries, or dead-letters.
type Handler interface {
	Name() string
	Execute(ctx context.Context, payload json.RawMessage) Outcome
	MaxRetries() uint32
	BackoffStrategy() BackoffStrategy
}

// Registry maps job_type to its Handler, mirroring the tool registry's
// lookup-by-name shape.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds (or replaces) a handler under its own job type name.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Name()] = h
}

// Lookup returns the handler registered for jobType, if any.
func (r *Registry) Lookup(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// ErrNoHandler describes a dequeued job whose type has no registered
// handler; the worker dead-letters such jobs with this error's message rather
// than retrying them, since retrying cannot make a handler appear.
type ErrNoHandler struct {
	JobType string
}

func (e *ErrNoHandler) Error() string {
	return fmt.Sprintf("queue: no handler registered for job type %q", e.JobType)
}
