// Package resilience retries transient failures with exponential backoff.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/itsneelabh/sushichat/core"
)

// ErrMaxRetriesExceeded wraps the last error once every attempt failed.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
}

// DefaultRetryConfig keeps the total wait well under a second so callers
// on a request path stay responsive.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      400 * time.Millisecond,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Delay returns the wait before attempt+1, without jitter.
func (c *RetryConfig) Delay(attempt int) time.Duration {
	d := float64(c.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= c.BackoffFactor
	}
	if limit := float64(c.MaxDelay); c.MaxDelay > 0 && d > limit {
		d = limit
	}
	return time.Duration(d)
}

// Retry calls fn until it succeeds, returns a Permanent error, ctx is done
// or MaxAttempts is reached. The final error wraps ErrMaxRetriesExceeded
// and the last failure.
func Retry(ctx context.Context, config *RetryConfig, logger core.Logger, fn func(ctx context.Context) error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if attempt == attempts {
			break
		}

		delay := config.Delay(attempt)
		if config.JitterEnabled && delay > 0 {
			delay += time.Duration(rand.Int63n(int64(delay)/10 + 1))
		}
		logger.WarnWithContext(ctx, "Attempt failed, retrying", map[string]interface{}{
			"operation": "retry",
			"attempt":   attempt,
			"delay_ms":  delay.Milliseconds(),
			"error":     lastErr.Error(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempts, lastErr)
}
