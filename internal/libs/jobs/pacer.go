package jobs

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// DefaultDelay is the pause between jobs when no pacer is configured
const DefaultDelay = 100 * time.Millisecond

// Pacer bounds the rate of writes against the downstream store. Pause is
// called after every job and may return early when ctx is done.
type Pacer interface {
	Pause(ctx context.Context) error
}

// FixedDelay sleeps for a constant interval after each job
type FixedDelay time.Duration

// Pause waits for the delay or until ctx is done
func (d FixedDelay) Pause(ctx context.Context) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(d))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TokenBucket paces jobs with a token bucket limiter
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket allows perSecond jobs per second with the given burst
func NewTokenBucket(perSecond float64, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Pause blocks until a token is available
func (b *TokenBucket) Pause(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// NoPause never waits
type NoPause struct{}

// Pause returns immediately
func (NoPause) Pause(ctx context.Context) error {
	return ctx.Err()
}

// Pacing policy names accepted by NewPacer
const (
	PacingFixed       = "fixed"
	PacingTokenBucket = "token-bucket"
	PacingNone        = "none"
)

// NewPacer builds the pacer for a policy name
func NewPacer(policy string, delay time.Duration, perSecond float64, burst int) (Pacer, error) {
	switch policy {
	case PacingFixed, "":
		return FixedDelay(delay), nil
	case PacingTokenBucket:
		if perSecond <= 0 {
			return nil, fmt.Errorf("jobs: token bucket rate must be positive, got %v", perSecond)
		}
		return NewTokenBucket(perSecond, burst), nil
	case PacingNone:
		return NoPause{}, nil
	default:
		return nil, fmt.Errorf("jobs: unknown pacing policy %q", policy)
	}
}
