// Package queue implements the durable job queue and worker pool: jobs are
// persisted in the storage backend's relational jobs table (not the generic
// key/value contract) so dequeue can be a single atomic claim statement
// instead of a read-modify-write race, mirroring the reference organization's
// pkg/queue worker pool shape (pod-scoped workers, jittered polling, a
// semaphore bounding in-flight concurrency independent of worker count)
// adapted onto VEX's job/payload/result model.
package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusDeadLetter Status = "dead_letter"
)

// BackoffStrategy controls the delay before a failed job is retried.
type BackoffStrategy int

const (
	BackoffConstant BackoffStrategy = iota
	BackoffExponential
	BackoffJittered
)

// Job is one row of the durable queue.
type Job struct {
	ID        uuid.UUID
	TenantID  string
	JobType   string
	Payload   json.RawMessage
	Status    Status
	RunAt     time.Time
	CreatedAt time.Time
	Priority  int
	Retries   uint32
	LastError string
	LockedAt  *time.Time
	LockedBy  string
	Result    json.RawMessage
}

// NextDelay computes the retry delay for attempt (1-indexed) under strategy,
// off base.
func NextDelay(strategy BackoffStrategy, base time.Duration, attempt uint32) time.Duration {
	if attempt == 0 {
		attempt = 1
	}
	switch strategy {
	case BackoffExponential:
		d := base
		for i := uint32(1); i < attempt; i++ {
			d *= 2
		}
		return d
	case BackoffJittered:
		d := base
		for i := uint32(1); i < attempt; i++ {
			d *= 2
		}
		jitter := time.Duration(float64(d) * 0.2)
		return d + jitter
	default: // BackoffConstant
		return base
	}
}

// Outcome is what a Handler's Execute returns, per the contract: success
// (with an optional JSON result), a retryable error, or a fatal one that
// skips straight to dead-lettering regardless of remaining retries.
type Outcome struct {
	Result json.RawMessage
	Err    error
	Fatal  bool
}

// Success builds a successful Outcome.
func Success(result json.RawMessage) Outcome {
	return Outcome{Result: result}
}

// Retry builds a retryable-failure Outcome.
func Retry(err error) Outcome {
	return Outcome{Err: err}
}

// FatalErr builds a non-retryable Outcome that dead-letters immediately.
func FatalErr(err error) Outcome {
	return Outcome{Err: err, Fatal: true}
}
