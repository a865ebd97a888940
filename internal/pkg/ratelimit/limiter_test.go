package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogPolicyNeverBlocks(t *testing.T) {
	l := New(1, PolicyLog, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			require.NoError(t, l.Acquire(context.Background(), "pexels"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("log-only limiter blocked")
	}
}

func TestEnforcePolicyHonorsContext(t *testing.T) {
	l := New(1, PolicyEnforce, zap.NewNop())

	// Drain the single burst token.
	require.NoError(t, l.Acquire(context.Background(), "unsplash"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx, "unsplash")
	assert.Error(t, err, "second acquire should time out waiting for a token")
}

func TestDisabledLimiter(t *testing.T) {
	l := New(0, PolicyEnforce, zap.NewNop())
	for i := 0; i < 10; i++ {
		assert.NoError(t, l.Acquire(context.Background(), "pixabay"))
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(1, PolicyEnforce, zap.NewNop())
	require.NoError(t, l.Acquire(context.Background(), "a"))
	require.NoError(t, l.Acquire(context.Background(), "b"))
}
