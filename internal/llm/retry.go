package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/cardaudit/internal/model"
)

// Policy configures Retry
type Policy struct {
	Attempts int
	MinWait  time.Duration
	MaxWait  time.Duration

	// Retryable decides whether an error deserves another attempt; nil retries everything
	Retryable func(error) bool

	// Sleep waits between attempts; nil uses a context-aware timer
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called after a failed attempt, before sleeping
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy returns 3 attempts with exponential backoff between 1s and 20s
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  3,
		MinWait:   time.Second,
		MaxWait:   20 * time.Second,
		Retryable: Retryable,
	}
}

// PolicyFromConfig builds a policy from configuration, keeping defaults for zero values
func PolicyFromConfig(cfg model.RetryConfig) Policy {
	p := DefaultPolicy()
	if cfg.Attempts > 0 {
		p.Attempts = cfg.Attempts
	}
	if cfg.MinWait > 0 {
		p.MinWait = cfg.MinWait
	}
	if cfg.MaxWait > 0 {
		p.MaxWait = cfg.MaxWait
	}
	return p
}

// Backoff returns the wait after the given failed attempt (1-based):
// MinWait doubled per attempt, clamped to [MinWait, MaxWait].
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 31 {
		attempt = 31
	}

	base := p.MinWait
	if base <= 0 {
		base = time.Second
	}
	wait := base << (attempt - 1)
	if wait < base {
		wait = p.MaxWait
	}

	if p.MaxWait > 0 && wait > p.MaxWait {
		wait = p.MaxWait
	}
	if wait < p.MinWait {
		wait = p.MinWait
	}
	return wait
}

// Retry runs fn until it succeeds, the error is not retryable, the attempt
// budget is spent or ctx is done. A non-retryable error is returned as is;
// exhaustion returns ErrCallExhausted wrapping the last error.
func Retry[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T

	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return zero, err
		}

		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		wait := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, fmt.Errorf("%w (last error: %v)", err, lastErr)
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrCallExhausted, attempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
