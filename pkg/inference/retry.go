package inference

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy is an explicit model-loading retry policy: a bounded number
// of attempts with exponential backoff and optional jitter, returned as an
// error value when exhausted.
type RetryPolicy struct {
	MaxAttempts  int           // total attempts, including the first
	InitialDelay time.Duration // delay before the second attempt
	MaxDelay     time.Duration // backoff ceiling
	Multiplier   float64       // exponential growth factor
	Jitter       bool          // add ±25% random jitter to each delay
}

// DefaultRetryPolicy suits a flaky model-fetch endpoint.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Do runs fn until it succeeds, the attempts are exhausted, or the context
// is cancelled. The first attempt runs immediately.
func (p RetryPolicy) Do(ctx context.Context, logger *zap.Logger, fn func() error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := p.delay(attempt)
			logger.Debug("retrying model load",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// delay computes the backoff before the given attempt (attempt >= 2).
func (p RetryPolicy) delay(attempt int) time.Duration {
	initial := p.InitialDelay
	if initial <= 0 {
		return 0
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	d := float64(initial) * math.Pow(multiplier, float64(attempt-2))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter {
		d += (rand.Float64()*2 - 1) * d * 0.25
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
