package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/vex/pkg/config"
)

func testConfig() *config.RateLimitConfig {
	return &config.RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute}
}

func TestAllowWithinQuota(t *testing.T) {
	l := New(testConfig())
	for i := 0; i < 5; i++ {
		ok, wait := l.Allow("tenant-a")
		require.True(t, ok, "request %d should be allowed", i)
		assert.Zero(t, wait)
	}
}

func TestBlocksOverQuota(t *testing.T) {
	l := New(testConfig())
	for i := 0; i < 5; i++ {
		l.Allow("tenant-a")
	}
	ok, wait := l.Allow("tenant-a")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))
}

func TestDifferentKeysAreIndependent(t *testing.T) {
	l := New(testConfig())
	for i := 0; i < 5; i++ {
		l.Allow("tenant-a")
	}
	ok, _ := l.Allow("tenant-b")
	assert.True(t, ok)
}

func TestSetLimitOverridesQuota(t *testing.T) {
	l := New(testConfig())
	l.SetLimit("vip", 0) // unlimited
	for i := 0; i < 1000; i++ {
		ok, _ := l.Allow("vip")
		require.True(t, ok)
	}
}

func TestCleanupRemovesIdleBuckets(t *testing.T) {
	l := New(testConfig())
	l.Allow("tenant-a")
	require.Len(t, l.buckets, 1)

	l.Cleanup(0)
	assert.Len(t, l.buckets, 0)
}
