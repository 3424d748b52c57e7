// Package tool implements the tool execution contract: a registry of named,
// scoped-capability callables invoked with validated JSON arguments, a
// per-tool timeout, and a deterministic result hash over (tool, args,
// output, timestamp).
package tool

import (
	"context"
	"encoding/json"
	"time"
)

// Tool is a single registered callable.
type Tool interface {
	// Name uniquely identifies the tool within a Registry.
	Name() string
	// ParametersSchema is the JSON Schema describing valid args.
	ParametersSchema() string
	// Capabilities tags the scoped capabilities this tool requires.
	Capabilities() []string
	// Timeout bounds a single Invoke call.
	Timeout() time.Duration
	// Available reports whether the tool is currently ready to run
	// (e.g. a backing service is reachable). Tools with no external
	// dependency should always return true.
	Available(ctx context.Context) bool
	// ValidateArgs checks args against the tool's own rules, returning a
	// human-readable reason on failure.
	ValidateArgs(args json.RawMessage) error
	// Invoke runs the tool, returning its JSON output.
	Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}
