package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Worker repeatedly claims and executes jobs until its pool is stopped.
type Worker struct {
	ID   string
	pool *Pool
}

func (w *Worker) run(ctx context.Context) {
	for {
		select {
		case <-w.pool.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		select {
		case w.pool.sem <- struct{}{}:
		case <-w.pool.stopCh:
			return
		case <-ctx.Done():
			return
		}

		claimed := w.pollOnce(ctx)
		<-w.pool.sem

		if !claimed {
			select {
			case <-time.After(w.pool.jitteredPollInterval()):
			case <-w.pool.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// pollOnce dequeues and executes at most one job, returning whether a job
// was claimed (regardless of its outcome).
func (w *Worker) pollOnce(ctx context.Context) bool {
	job, ok, err := w.pool.Store.Dequeue(ctx, w.ID)
	if err != nil {
		slog.Error("queue dequeue failed", "worker", w.ID, "error", err)
		return false
	}
	if !ok {
		return false
	}

	w.execute(ctx, job)
	return true
}

func (w *Worker) maxRetries(h Handler) uint32 {
	if n := h.MaxRetries(); n > 0 {
		return n
	}
	return w.pool.Config.DefaultMaxRetries
}

func (w *Worker) execute(ctx context.Context, job Job) {
	handler, ok := w.pool.Registry.Lookup(job.JobType)
	if !ok {
		err := &ErrNoHandler{JobType: job.JobType}
		slog.Error("queue job has no registered handler, dead-lettering", "worker", w.ID, "job_id", job.ID, "job_type", job.JobType)
		if derr := w.pool.Store.DeadLetter(ctx, job.TenantID, job.ID, err.Error()); derr != nil {
			slog.Error("queue dead-letter failed", "worker", w.ID, "job_id", job.ID, "error", derr)
		}
		return
	}

	outcome := handler.Execute(ctx, job.Payload)

	switch {
	case outcome.Err == nil:
		if err := w.pool.Store.Complete(ctx, job.TenantID, job.ID, outcome.Result); err != nil {
			slog.Error("queue mark-complete failed", "worker", w.ID, "job_id", job.ID, "error", err)
		}

	case outcome.Fatal || job.Retries+1 > w.maxRetries(handler):
		if err := w.pool.Store.DeadLetter(ctx, job.TenantID, job.ID, outcome.Err.Error()); err != nil {
			slog.Error("queue dead-letter failed", "worker", w.ID, "job_id", job.ID, "error", err)
		}

	default:
		delay := NextDelay(handler.BackoffStrategy(), w.pool.backoffBase(), job.Retries+1)
		if err := w.pool.Store.Fail(ctx, job.TenantID, job.ID, outcome.Err.Error(), delay); err != nil {
			slog.Error("queue mark-failed failed", "worker", w.ID, "job_id", job.ID, "error", err)
			return
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
	}
}
