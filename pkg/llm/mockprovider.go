package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a deterministic, in-memory Provider used by executor and
// orchestrator tests. Responder is consulted for every Complete call; if
// nil, Complete falls back to a deterministic echo response derived from
// the request (prefixing with the system role so blue/red calls in the
// same test are distinguishable without any network or randomness).
type MockProvider struct {
	Responder func(req Request) (Response, error)
	Available bool

	mu    sync.Mutex
	calls []Request
}

// NewMockProvider constructs a MockProvider that is available by default.
func NewMockProvider() *MockProvider {
	return &MockProvider{Available: true}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.Available
}

func (m *MockProvider) Complete(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if !m.Available {
		return Response{}, fmt.Errorf("%w: mock provider marked unavailable", ErrNotAvailable)
	}
	if m.Responder != nil {
		return m.Responder(req)
	}
	role := req.System
	if role == "" {
		role = "default"
	}
	return Response{
		Content: fmt.Sprintf("[%s] %s", role, req.Prompt),
		Model:   "mock-1",
	}, nil
}

// Calls returns a snapshot of every request this provider has received, in
// call order.
func (m *MockProvider) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}
