package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/vex/pkg/config"
)

func testConfig() *config.BreakerConfig {
	return &config.BreakerConfig{
		FailureThreshold:         2,
		SuccessThreshold:         1,
		HalfOpenFailureThreshold: 1,
		ResetTimeout:             50 * time.Millisecond,
	}
}

func TestBreakerTripsAndRecovers(t *testing.T) {
	b := New("test", testConfig())
	assert.Equal(t, Closed, b.State())
	assert.True(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, Closed, b.State())
	b.RecordFailure()
	assert.Equal(t, Open, b.State())

	assert.False(t, b.Allow())

	time.Sleep(60 * time.Millisecond)
	assert.True(t, b.Allow())
	assert.Equal(t, HalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, Closed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := New("test", testConfig())
	b.RecordFailure()
	b.RecordFailure()
	require.Equal(t, Open, b.State())

	time.Sleep(60 * time.Millisecond)
	require.True(t, b.Allow())
	require.Equal(t, HalfOpen, b.State())

	b.RecordFailure()
	assert.Equal(t, Open, b.State())
}

func TestCallRejectsWhenOpen(t *testing.T) {
	b := New("test", testConfig())
	b.RecordFailure()
	b.RecordFailure()
	require.Equal(t, Open, b.State())

	err := b.Call(func() error { return nil })
	assert.ErrorIs(t, err, ErrOpen)
}

func TestCallRecordsFailureAndSuccess(t *testing.T) {
	b := New("test", testConfig())
	boom := errors.New("boom")

	err := b.Call(func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Closed, b.State())

	err = b.Call(func() error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, Open, b.State())
}
