package feed

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy computes capped exponential-backoff delays. The sleep step
// and randomness are injectable so tests can drive the schedule with a
// fake clock.
type RetryPolicy struct {
	maxRetries int
	base       time.Duration
	jitter     time.Duration
	totalCap   time.Duration

	randFloat func() float64
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy builds a policy allowing maxRetries additional attempts
// after the first failure, with per-attempt delay
// min(base*2^attempt + uniform(0, jitter), remaining budget) and a hard
// cumulative cap of totalCap across all waits.
func NewRetryPolicy(maxRetries int, base, jitter, totalCap time.Duration) *RetryPolicy {
	return &RetryPolicy{
		maxRetries: maxRetries,
		base:       base,
		jitter:     jitter,
		totalCap:   totalCap,
		randFloat:  rand.Float64,
		sleep:      sleepContext,
	}
}

// MaxRetries reports how many additional attempts follow the first failure.
func (p *RetryPolicy) MaxRetries() int {
	return p.maxRetries
}

// Delay returns the wait before the retry that follows failed attempt
// (0-based), clipped to the budget remaining after waited.
func (p *RetryPolicy) Delay(attempt int, waited time.Duration) time.Duration {
	exponential := p.base * time.Duration(1<<uint(attempt))
	delay := exponential + time.Duration(p.randFloat()*float64(p.jitter))

	if remaining := p.totalCap - waited; delay > remaining {
		delay = remaining
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// Wait blocks for the delay after failed attempt, tracking cumulative wait
// in waited. It returns false when the cumulative budget is met or
// exceeded, meaning the caller must stop retrying immediately.
func (p *RetryPolicy) Wait(ctx context.Context, attempt int, waited *time.Duration) (bool, error) {
	delay := p.Delay(attempt, *waited)
	if *waited+delay >= p.totalCap {
		return false, nil
	}

	if err := p.sleep(ctx, delay); err != nil {
		return false, err
	}

	*waited += delay
	return true, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
