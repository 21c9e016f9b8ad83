// Package retry runs an operation up to a fixed number of attempts with
// exponential backoff between failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elonfeng/trendradar/internal/logging"
)

// DefaultMaxAttempts is used when Options.MaxAttempts is not positive.
const DefaultMaxAttempts = 3

// ErrRetriesExhausted matches any *ExhaustedError via errors.Is.
var ErrRetriesExhausted = errors.New("retries exhausted")

// ExhaustedError is returned after every attempt failed. Err is the error
// of the final attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

func (e *ExhaustedError) Is(target error) bool { return target == ErrRetriesExhausted }

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures Do.
type Options struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the wait after the first failure; it doubles per attempt.
	BaseDelay time.Duration
	// Sleep replaces the context-aware default wait. Tests inject it.
	Sleep SleepFunc
	// OnRetry is called with each intermediate failure before waiting.
	OnRetry func(attempt int, err error, wait time.Duration)
	// Name labels log lines.
	Name string
}

// Backoff returns the wait after failed attempt i (0-indexed): base * 2^i.
func Backoff(base time.Duration, attempt int) time.Duration {
	return base << uint(attempt)
}

// Do calls op until it succeeds or MaxAttempts attempts have failed.
// A cancelled context during a wait ends the loop with the context error.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = contextSleep
	}
	log := logging.Component("retry")

	var zero T
	var lastErr error
	for i := 0; i < attempts; i++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}

		wait := Backoff(opts.BaseDelay, i)
		log.Warn().
			Err(err).
			Str("op", opts.Name).
			Int("attempt", i+1).
			Int("max_attempts", attempts).
			Dur("wait", wait).
			Msg("attempt failed, retrying")
		if opts.OnRetry != nil {
			opts.OnRetry(i+1, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, fmt.Errorf("wait before attempt %d: %w", i+2, err)
		}
	}
	return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
}

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
