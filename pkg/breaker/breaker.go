// Package breaker implements a three-state (closed/open/half-open) circuit
// breaker guarding calls to external dependencies (cmd/vexd wraps anchor
// submission in one), grounded on the original source's
// vex-api/circuit_breaker.rs state machine and expressed as a
// sync.Mutex-guarded struct.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/codeready-toolchain/vex/pkg/config"
)

// State is the breaker's current mode.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// ErrOpen is returned by Call when the breaker is rejecting calls (Allow
// reports the same condition as false).
var ErrOpen = errors.New("breaker: circuit open")

// Breaker is a single named circuit breaker instance.
type Breaker struct {
	name   string
	cfg    *config.BreakerConfig
	mu     sync.Mutex
	state  State
	failures int
	successes int
	halfOpenFailures int
	lastStateChange time.Time

	totalRequests  uint64
	totalFailures  uint64
	totalRejections uint64
}

// New constructs a Breaker in the Closed state.
func New(name string, cfg *config.BreakerConfig) *Breaker {
	if cfg == nil {
		cfg = config.DefaultBreakerConfig()
	}
	return &Breaker{name: name, cfg: cfg, state: Closed, lastStateChange: time.Now()}
}

// Allow reports whether a call may proceed, transitioning Open→HalfOpen once
// ResetTimeout has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.totalRequests++

	switch b.state {
	case Closed:
		return true
	case Open:
		if time.Since(b.lastStateChange) >= b.cfg.ResetTimeout {
			b.transition(HalfOpen)
			b.successes = 0
			b.halfOpenFailures = 0
			return true
		}
		b.totalRejections++
		return false
	default: // HalfOpen
		return true
	}
}

// RecordSuccess reports a successful call, closing the circuit once
// SuccessThreshold consecutive half-open successes are observed.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.transition(Closed)
			b.failures = 0
			b.successes = 0
		}
	case Closed:
		b.failures = 0
	}
}

// RecordFailure reports a failed call, tripping the circuit once
// FailureThreshold (Closed) or HalfOpenFailureThreshold (HalfOpen) is hit.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.totalFailures++

	switch b.state {
	case Closed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(Open)
		}
	case HalfOpen:
		b.halfOpenFailures++
		b.successes = 0
		if b.halfOpenFailures >= b.cfg.HalfOpenFailureThreshold {
			b.transition(Open)
			b.successes = 0
			b.halfOpenFailures = 0
		}
	}
}

func (b *Breaker) transition(s State) {
	b.state = s
	b.lastStateChange = time.Now()
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats is a point-in-time snapshot for health/metrics reporting.
type Stats struct {
	Name            string
	State           State
	TotalRequests   uint64
	TotalFailures   uint64
	TotalRejections uint64
}

// Stats returns a snapshot of the breaker's counters.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Name:            b.name,
		State:           b.state,
		TotalRequests:   b.totalRequests,
		TotalFailures:   b.totalFailures,
		TotalRejections: b.totalRejections,
	}
}

// Call runs fn under the breaker's protection: rejects immediately with
// ErrOpen when the circuit is open, otherwise runs fn and records its
// outcome.
func (b *Breaker) Call(fn func() error) error {
	if !b.Allow() {
		return ErrOpen
	}
	if err := fn(); err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}
