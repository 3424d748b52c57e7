// Package llm defines the provider abstraction the agent executor calls
// into: a small completion surface (name/is_available/complete/ask, with
// an optional embed capability) that concrete transports implement.
// Provider wire formats are intentionally out of scope beyond one internal
// RPC transport (see grpcprovider.go) and a deterministic mock used by
// tests.
package llm

import (
	"context"
	"errors"
)

// Sentinel errors a Provider implementation returns (wrapped with context
// via fmt.Errorf/%w), mirroring the external interface's closed error set.
var (
	ErrConnectionFailed = errors.New("llm: connection failed")
	ErrRequestFailed    = errors.New("llm: request failed")
	ErrInvalidResponse  = errors.New("llm: invalid response")
	ErrRateLimited      = errors.New("llm: rate limited")
	ErrNotAvailable     = errors.New("llm: provider not available")
)

// Request is a single completion request.
type Request struct {
	System           string
	Prompt           string
	Temperature      float64
	TopP             float64
	MaxTokens        int
	PresencePenalty  float64
	FrequencyPenalty float64
}

// Response is a single completion response.
type Response struct {
	Content    string
	Model      string
	TokensUsed *int
	LatencyMS  int64
	TraceRoot  *string
}

// Provider is the LLM transport surface an agent executor calls into.
type Provider interface {
	// Name identifies the provider (for logging and audit data).
	Name() string
	// IsAvailable reports whether the provider is currently reachable,
	// without necessarily performing a full round trip.
	IsAvailable(ctx context.Context) bool
	// Complete issues a single completion request.
	Complete(ctx context.Context, req Request) (Response, error)
}

// Embedder is an optional capability some providers support.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Ask is the convenience form: complete with no system role, temperature 0,
// and a default max token budget, returning just the text.
func Ask(ctx context.Context, p Provider, prompt string) (string, error) {
	resp, err := p.Complete(ctx, Request{Prompt: prompt, MaxTokens: 1024})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
