package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/codeready-toolchain/vex/pkg/vexerr"
)

// Registry holds every registered Tool and dispatches Execute calls against
// the contract in §4.L.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds (or replaces) a tool under its own name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Lookup returns the tool registered under name, if any.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Execute runs the named tool against args per the contract: missing tool →
// ErrToolNotRegistered, unavailable tool → ErrToolUnavailable, invalid args
// → ErrToolInvalidArguments, timeout → ErrToolTimeout, execution failure →
// ErrToolFailed. On success, the result carries a deterministic hash over
// (tool, args, output, timestamp).
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return Result{}, vexerr.New(vexerr.CategoryTool, fmt.Sprintf("tool %q", name), vexerr.ErrToolNotRegistered)
	}
	if !t.Available(ctx) {
		return Result{}, vexerr.New(vexerr.CategoryTool, fmt.Sprintf("tool %q", name), vexerr.ErrToolUnavailable)
	}
	if err := t.ValidateArgs(args); err != nil {
		return Result{}, vexerr.New(vexerr.CategoryTool, err.Error(), vexerr.ErrToolInvalidArguments)
	}

	timeout := t.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	output, err := t.Invoke(runCtx, args)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Result{}, vexerr.New(vexerr.CategoryTool, fmt.Sprintf("tool %q exceeded %s", name, timeout), vexerr.ErrToolTimeout)
		}
		return Result{}, vexerr.New(vexerr.CategoryTool, err.Error(), vexerr.ErrToolFailed)
	}

	now := time.Now().UTC()
	hash, err := computeHash(name, args, output, now)
	if err != nil {
		return Result{}, vexerr.New(vexerr.CategoryTool, "hash result", err)
	}

	return Result{
		ToolName:      name,
		Output:        output,
		Hash:          hash,
		ExecutionTime: elapsed,
		Timestamp:     now,
	}, nil
}

// IsRetryable reports whether err represents a retryable tool failure
// (Timeout or Unavailable), per the contract.
func IsRetryable(err error) bool {
	return errors.Is(err, vexerr.ErrToolTimeout) || errors.Is(err, vexerr.ErrToolUnavailable)
}
