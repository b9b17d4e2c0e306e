package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedDelayWaits(t *testing.T) {
	start := time.Now()
	require.NoError(t, FixedDelay(20*time.Millisecond).Pause(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestFixedDelayStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := FixedDelay(time.Hour).Pause(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFixedDelayZero(t *testing.T) {
	assert.NoError(t, FixedDelay(0).Pause(context.Background()))
}

func TestTokenBucketAllowsBurstThenPaces(t *testing.T) {
	bucket := NewTokenBucket(50, 2)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, bucket.Pause(ctx))
	require.NoError(t, bucket.Pause(ctx))
	assert.Less(t, time.Since(start), 15*time.Millisecond, "burst tokens are immediate")

	require.NoError(t, bucket.Pause(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond, "third token waits for refill")
}

func TestTokenBucketNormalisesBurst(t *testing.T) {
	bucket := NewTokenBucket(1000, 0)
	assert.NoError(t, bucket.Pause(context.Background()))
}

func TestNoPause(t *testing.T) {
	assert.NoError(t, NoPause{}.Pause(context.Background()))
}

func TestNewPacer(t *testing.T) {
	p, err := NewPacer(PacingFixed, 50*time.Millisecond, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, FixedDelay(50*time.Millisecond), p)

	p, err = NewPacer(PacingTokenBucket, 0, 5, 2)
	require.NoError(t, err)
	assert.IsType(t, &TokenBucket{}, p)

	p, err = NewPacer(PacingNone, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, NoPause{}, p)

	_, err = NewPacer(PacingTokenBucket, 0, 0, 1)
	assert.Error(t, err)

	_, err = NewPacer("exponential", 0, 0, 0)
	assert.Error(t, err)
}
