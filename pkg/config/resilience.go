package config

import "time"

// RateLimitConfig configures the per-caller token-bucket limiter (§5).
type RateLimitConfig struct {
	RequestsPerWindow int           `yaml:"requests_per_window"`
	Window            time.Duration `yaml:"window"`
}

// DefaultRateLimitConfig returns the built-in rate limit defaults.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 100,
		Window:            time.Minute,
	}
}

// BreakerConfig configures the circuit breaker that cmd/vexd wraps around
// anchor submission (§5); LLM provider calls are not wrapped.
type BreakerConfig struct {
	FailureThreshold         int           `yaml:"failure_threshold"`
	SuccessThreshold         int           `yaml:"success_threshold"`
	HalfOpenFailureThreshold int           `yaml:"half_open_failure_threshold"`
	ResetTimeout             time.Duration `yaml:"reset_timeout"`
}

// DefaultBreakerConfig returns the built-in circuit breaker defaults.
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		FailureThreshold:         5,
		SuccessThreshold:         2,
		HalfOpenFailureThreshold: 1,
		ResetTimeout:             30 * time.Second,
	}
}

func (v *Validator) validateResilience() error {
	rl := v.cfg.RateLimit
	if rl == nil {
		return NewValidationError("rate_limit", "", ErrMissingRequiredField)
	}
	if rl.RequestsPerWindow < 1 {
		return NewValidationError("rate_limit", "requests_per_window", ErrInvalidValue)
	}
	if rl.Window <= 0 {
		return NewValidationError("rate_limit", "window", ErrInvalidValue)
	}

	b := v.cfg.Breaker
	if b == nil {
		return NewValidationError("breaker", "", ErrMissingRequiredField)
	}
	if b.FailureThreshold < 1 {
		return NewValidationError("breaker", "failure_threshold", ErrInvalidValue)
	}
	if b.SuccessThreshold < 1 {
		return NewValidationError("breaker", "success_threshold", ErrInvalidValue)
	}
	if b.HalfOpenFailureThreshold < 1 {
		return NewValidationError("breaker", "half_open_failure_threshold", ErrInvalidValue)
	}
	if b.ResetTimeout <= 0 {
		return NewValidationError("breaker", "reset_timeout", ErrInvalidValue)
	}
	return nil
}
