package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff(t *testing.T) {
	t.Helper()
	orig := connectBackoff
	connectBackoff = time.Millisecond
	t.Cleanup(func() { connectBackoff = orig })
}

func TestPingWithRetry_EventualSuccess(t *testing.T) {
	fastBackoff(t)
	calls := 0
	err := pingWithRetry(context.Background(), 3, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPingWithRetry_GivesUp(t *testing.T) {
	fastBackoff(t)
	calls := 0
	err := pingWithRetry(context.Background(), 2, func(context.Context) error {
		calls++
		return errors.New("connection refused")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "unreachable after 2 attempts")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPingWithRetry_SingleAttempt(t *testing.T) {
	calls := 0
	err := pingWithRetry(context.Background(), 0, func(context.Context) error {
		calls++
		return errors.New("down")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPingWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := pingWithRetry(ctx, 5, func(context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "connect cancelled")
}

func TestBackoff_Capped(t *testing.T) {
	for attempt := 0; attempt < 40; attempt++ {
		d := backoff(attempt)
		assert.LessOrEqual(t, d, maxConnectBackoff+maxConnectBackoff/4)
		assert.Positive(t, d)
	}
}
