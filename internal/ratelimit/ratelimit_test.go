package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	l := New(0, -1)
	assert.Equal(t, DefaultMinInterval, l.minInterval)
	assert.Equal(t, DefaultMaxPerMinute, l.maxPerMinute)

	// Explicit zero opts out of the per-minute cap.
	uncapped := New(time.Second, 0)
	assert.Equal(t, 0, uncapped.maxPerMinute)
}

func TestWait_MinInterval(t *testing.T) {
	l := New(50*time.Millisecond, 0)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond,
		"second request must wait out the minimum interval")
}

func TestWait_FirstRequestImmediate(t *testing.T) {
	l := New(time.Second, 0)
	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWait_PerMinuteCap(t *testing.T) {
	// Fake clock: capture sleeps instead of actually waiting.
	var slept []time.Duration
	now := time.Unix(1_700_000_000, 0)
	l := New(time.Nanosecond, 2)
	l.now = func() time.Time { return now }
	l.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		now = now.Add(d)
		return nil
	}

	ctx := context.Background()
	require.NoError(t, l.Wait(ctx))
	now = now.Add(time.Second)
	require.NoError(t, l.Wait(ctx))
	now = now.Add(time.Second)

	// Third request within the window: must wait until the oldest stamp
	// ages out (60s - 2s elapsed = 58s).
	slept = nil
	require.NoError(t, l.Wait(ctx))
	require.Len(t, slept, 1)
	assert.Equal(t, 58*time.Second, slept[0])
}

func TestWait_WindowPruning(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(time.Nanosecond, 2)
	l.now = func() time.Time { return now }
	l.sleep = func(_ context.Context, d time.Duration) error {
		now = now.Add(d)
		return nil
	}

	ctx := context.Background()
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))

	// After the window passes, the cap no longer applies.
	now = now.Add(2 * time.Minute)
	var slept []time.Duration
	l.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		now = now.Add(d)
		return nil
	}
	require.NoError(t, l.Wait(ctx))
	assert.Empty(t, slept, "pruned window should not block")
}

func TestWait_Cancelled(t *testing.T) {
	l := New(time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Wait(ctx))

	cancel()
	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
