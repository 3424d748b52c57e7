package queue

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/vex/pkg/storage/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	backend, err := sqlite.New(context.Background(), sqlite.Config{
		Path:        filepath.Join(t.TempDir(), "queue.db"),
		BusyTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return NewStore(backend, DialectSQLite)
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "tenant-a", "send_email", json.RawMessage(`{"to":"a@example.com"}`), time.Now().UTC(), 0)
	require.NoError(t, err)

	job, ok, err := s.Dequeue(ctx, "worker-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, StatusRunning, job.Status)
	assert.Equal(t, "worker-1", job.LockedBy)

	_, ok, err = s.Dequeue(ctx, "worker-2")
	require.NoError(t, err)
	assert.False(t, ok, "a claimed job must not be claimable again")
}

func TestDequeueOrdersByPriorityThenAge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	low, err := s.Enqueue(ctx, "t", "job", json.RawMessage(`{}`), now, 0)
	require.NoError(t, err)
	high, err := s.Enqueue(ctx, "t", "job", json.RawMessage(`{}`), now, 10)
	require.NoError(t, err)

	job, ok, err := s.Dequeue(ctx, "w")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, high, job.ID)

	job, ok, err = s.Dequeue(ctx, "w")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, low, job.ID)
}

func TestDequeueSkipsJobsNotYetDue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, "t", "job", json.RawMessage(`{}`), time.Now().UTC().Add(time.Hour), 0)
	require.NoError(t, err)

	_, ok, err := s.Dequeue(ctx, "w")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompleteStoresResultAndClearsLock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "t", "job", json.RawMessage(`{}`), time.Now().UTC(), 0)
	require.NoError(t, err)
	_, _, err = s.Dequeue(ctx, "w")
	require.NoError(t, err)

	require.NoError(t, s.Complete(ctx, "t", id, json.RawMessage(`{"ok":true}`)))

	job, err := s.GetJob(ctx, "t", id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Nil(t, job.LockedAt)
	assert.JSONEq(t, `{"ok":true}`, string(job.Result))
}

func TestFailReturnsJobToPendingWithIncrementedRetries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "t", "job", json.RawMessage(`{}`), time.Now().UTC(), 0)
	require.NoError(t, err)
	_, _, err = s.Dequeue(ctx, "w")
	require.NoError(t, err)

	require.NoError(t, s.Fail(ctx, "t", id, "boom", 0))

	job, err := s.GetJob(ctx, "t", id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, uint32(1), job.Retries)
	assert.Equal(t, "boom", job.LastError)

	job2, ok, err := s.Dequeue(ctx, "w2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, job2.ID)
}

func TestDeadLetterIsTerminal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "t", "job", json.RawMessage(`{}`), time.Now().UTC(), 0)
	require.NoError(t, err)
	_, _, err = s.Dequeue(ctx, "w")
	require.NoError(t, err)

	require.NoError(t, s.DeadLetter(ctx, "t", id, "fatal"))

	job, err := s.GetJob(ctx, "t", id)
	require.NoError(t, err)
	assert.Equal(t, StatusDeadLetter, job.Status)

	status, err := s.GetStatus(ctx, "t", id)
	require.NoError(t, err)
	assert.Equal(t, StatusDeadLetter, status)
}

func TestGetJobEnforcesTenantIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "tenant-a", "job", json.RawMessage(`{}`), time.Now().UTC(), 0)
	require.NoError(t, err)

	_, err = s.GetJob(ctx, "tenant-b", id)
	assert.Error(t, err)
}
