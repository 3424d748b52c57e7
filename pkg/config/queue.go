package config

import "time"

// QueueConfig contains job queue and worker pool configuration. These values
// control how jobs are polled, leased, and retried.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines per process.
	WorkerCount int `yaml:"worker_count"`

	// MaxConcurrency bounds in-flight job execution via a semaphore,
	// independent of WorkerCount (a worker blocks acquiring a permit).
	MaxConcurrency int `yaml:"max_concurrency"`

	// PollInterval is the base interval a worker waits before its next
	// dequeue attempt when the previous attempt claimed no job.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollIntervalJitter is random jitter added to PollInterval.
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// DefaultMaxRetries is used by jobs that don't override MaxRetries.
	DefaultMaxRetries uint32 `yaml:"default_max_retries"`

	// DefaultBackoffSeconds is the base delay for constant/exponential backoff.
	DefaultBackoffSeconds int64 `yaml:"default_backoff_seconds"`

	// GracefulShutdownTimeout bounds how long Stop() waits for in-flight jobs.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             5,
		MaxConcurrency:          5,
		PollInterval:            100 * time.Millisecond,
		PollIntervalJitter:      20 * time.Millisecond,
		DefaultMaxRetries:       3,
		DefaultBackoffSeconds:   60,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return NewValidationError("queue", "", ErrMissingRequiredField)
	}
	if q.WorkerCount < 1 || q.WorkerCount > 50 {
		return NewValidationError("queue", "worker_count", ErrInvalidValue)
	}
	if q.MaxConcurrency < 1 {
		return NewValidationError("queue", "max_concurrency", ErrInvalidValue)
	}
	if q.PollInterval <= 0 {
		return NewValidationError("queue", "poll_interval", ErrInvalidValue)
	}
	if q.PollIntervalJitter < 0 {
		return NewValidationError("queue", "poll_interval_jitter", ErrInvalidValue)
	}
	if q.PollIntervalJitter >= q.PollInterval {
		return NewValidationError("queue", "poll_interval_jitter", ErrInvalidValue)
	}
	if q.GracefulShutdownTimeout <= 0 {
		return NewValidationError("queue", "graceful_shutdown_timeout", ErrInvalidValue)
	}
	return nil
}
