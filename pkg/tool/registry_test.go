package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/vex/pkg/vexerr"
)

type fakeTool struct {
	name      string
	available bool
	timeout   time.Duration
	invoke    func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
	validate  func(args json.RawMessage) error
}

func (f *fakeTool) Name() string               { return f.name }
func (f *fakeTool) ParametersSchema() string    { return `{"type":"object"}` }
func (f *fakeTool) Capabilities() []string      { return nil }
func (f *fakeTool) Timeout() time.Duration      { return f.timeout }
func (f *fakeTool) Available(ctx context.Context) bool { return f.available }
func (f *fakeTool) ValidateArgs(args json.RawMessage) error {
	if f.validate != nil {
		return f.validate(args)
	}
	return nil
}
func (f *fakeTool) Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	return f.invoke(ctx, args)
}

func TestExecuteMissingToolReturnsNotRegistered(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, vexerr.ErrToolNotRegistered)
}

func TestExecuteUnavailableTool(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeTool{name: "t", available: false})
	_, err := r.Execute(context.Background(), "t", nil)
	assert.ErrorIs(t, err, vexerr.ErrToolUnavailable)
	assert.True(t, IsRetryable(err))
}

func TestExecuteInvalidArguments(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeTool{name: "t", available: true, validate: func(json.RawMessage) error {
		return errors.New("missing field x")
	}})
	_, err := r.Execute(context.Background(), "t", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, vexerr.ErrToolInvalidArguments)
}

func TestExecuteTimeout(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeTool{
		name: "t", available: true, timeout: 10 * time.Millisecond,
		invoke: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	_, err := r.Execute(context.Background(), "t", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, vexerr.ErrToolTimeout)
	assert.True(t, IsRetryable(err))
}

func TestExecuteFailure(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeTool{
		name: "t", available: true, timeout: time.Second,
		invoke: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			return nil, errors.New("boom")
		},
	})
	_, err := r.Execute(context.Background(), "t", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, vexerr.ErrToolFailed)
	assert.False(t, IsRetryable(err))
}

func TestExecuteSuccessProducesDeterministicHash(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeTool{
		name: "t", available: true, timeout: time.Second,
		invoke: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`{"ok":true}`), nil
		},
	})
	result, err := r.Execute(context.Background(), "t", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, "t", result.ToolName)
	assert.False(t, result.Hash.IsZero())

	again, err := computeHash("t", json.RawMessage(`{"x":1}`), json.RawMessage(`{"ok":true}`), result.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, again, result.Hash)
}
