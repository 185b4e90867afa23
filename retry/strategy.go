// Package retry provides exponential backoff retry strategies.
// It is used for dialing the broker from clients and for flushing the delivery
// journal to its database; the frame path itself never retries.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Strategy defines the retry behavior for an operation that may fail transiently.
// It implements exponential backoff with configurable parameters.
//
// The delay before retry n (1-based) follows:
//
//	delay = min(BaseDelay * ExponentialBase^(n-1), MaxDelay)
//
// Example with defaults (100ms base, 2.0 exponential, 2s max, 5 attempts):
//
//	Attempt 1: immediately
//	Attempt 2: after 100ms
//	Attempt 3: after 200ms
//	Attempt 4: after 400ms
//	Attempt 5: after 800ms (→ give up)
type Strategy struct {
	MaxAttempts     int           // Total attempts including the first one
	BaseDelay       time.Duration // Delay before the first retry
	MaxDelay        time.Duration // Maximum retry delay cap
	ExponentialBase float64       // Backoff multiplier (e.g., 2.0 for doubling)
}

// DefaultStrategy returns the default retry strategy:
// 5 attempts, 100ms→2s exponential backoff.
func DefaultStrategy() Strategy {
	return Strategy{
		MaxAttempts:     5,
		BaseDelay:       100 * time.Millisecond,
		MaxDelay:        2 * time.Second,
		ExponentialBase: 2.0,
	}
}

// NoRetry returns a strategy that makes a single attempt.
func NoRetry() Strategy {
	return Strategy{MaxAttempts: 1}
}

// CalculateRetryDelay calculates the retry delay for a given attempt using exponential backoff.
// Formula: delay = min(BaseDelay * ExponentialBase^attemptNumber, MaxDelay)
//
// Attempt numbers <= 0 return BaseDelay.
func (s Strategy) CalculateRetryDelay(attemptNumber int) time.Duration {
	if attemptNumber <= 0 {
		return s.BaseDelay
	}

	delay := float64(s.BaseDelay) * math.Pow(s.ExponentialBase, float64(attemptNumber))
	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}

	return time.Duration(delay)
}

// IsRetryable checks if another attempt is allowed after attemptCount attempts.
func (s Strategy) IsRetryable(attemptCount int) bool {
	return attemptCount < s.MaxAttempts
}

// Do calls fn until it succeeds, the attempts are exhausted or ctx is done.
// fn receives the 1-based attempt number. Between attempts Do sleeps for
// CalculateRetryDelay(attempt-1).
//
// The returned error wraps the last error from fn, or ctx.Err() if the context
// ended first.
func (s Strategy) Do(ctx context.Context, fn func(attempt int) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if !s.IsRetryable(attempt) {
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		timer := time.NewTimer(s.CalculateRetryDelay(attempt - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-timer.C:
		}
	}
}

// GetRetrySchedule returns a human-readable description of the retry schedule.
//
// Example output:
//
//	Retry Schedule:
//	  Attempt 1: immediately
//	  Attempt 2: after 100ms
//	  ...
//	  → Give up
func (s Strategy) GetRetrySchedule() string {
	schedule := "Retry Schedule:\n"
	for i := 1; i <= s.MaxAttempts; i++ {
		if i == 1 {
			schedule += "  Attempt 1: immediately\n"
			continue
		}
		schedule += fmt.Sprintf("  Attempt %d: after %v\n", i, s.CalculateRetryDelay(i-2))
	}
	schedule += "  → Give up\n"
	return schedule
}
