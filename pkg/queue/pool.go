package queue

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/codeready-toolchain/vex/pkg/config"
)

// Pool is a pod-scoped worker pool: WorkerCount goroutines each poll the
// durable queue for claimable jobs, bounded overall by a semaphore sized at
// MaxConcurrency independent of WorkerCount (so a slow, CPU-bound handler
// can't starve every worker's poll loop).
type Pool struct {
	PodID    string
	Store    *Store
	Registry *Registry
	Config   *config.QueueConfig

	sem      chan struct{}
	workers  []*Worker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
}

// NewPool constructs a Pool. podID identifies this process as the
// locked_by value on claimed jobs.
func NewPool(store *Store, registry *Registry, cfg *config.QueueConfig, podID string) *Pool {
	if cfg == nil {
		cfg = config.DefaultQueueConfig()
	}
	return &Pool{
		PodID:    podID,
		Store:    store,
		Registry: registry,
		Config:   cfg,
		sem:      make(chan struct{}, cfg.MaxConcurrency),
		stopCh:   make(chan struct{}),
	}
}

// Start launches WorkerCount polling goroutines. Calling Start twice is a
// no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.Config.WorkerCount; i++ {
		w := &Worker{ID: fmt.Sprintf("%s-%d", p.PodID, i), pool: p}
		p.workers = append(p.workers, w)
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.run(ctx)
		}(w)
	}
	slog.Info("queue worker pool started", "pod_id", p.PodID, "workers", p.Config.WorkerCount, "max_concurrency", p.Config.MaxConcurrency)
}

// Stop signals every worker to finish its in-flight job and exit, waiting up
// to GracefulShutdownTimeout before giving up.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.Config.GracefulShutdownTimeout):
		slog.Warn("queue worker pool stop timed out waiting for in-flight jobs", "pod_id", p.PodID)
	}
}

// Health reports whether the pool has been started and not yet stopped.
func (p *Pool) Health() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return false
	}
	select {
	case <-p.stopCh:
		return false
	default:
		return true
	}
}

func (p *Pool) backoffBase() time.Duration {
	return time.Duration(p.Config.DefaultBackoffSeconds) * time.Second
}

func (p *Pool) jitteredPollInterval() time.Duration {
	if p.Config.PollIntervalJitter <= 0 {
		return p.Config.PollInterval
	}
	jitter := time.Duration(rand.Int63n(int64(p.Config.PollIntervalJitter)))
	return p.Config.PollInterval + jitter
}
