// Package retry implements the fetch retry policy: error classification,
// exponential backoff, and a bounded attempt loop.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Class partitions fetch errors into retry behavior.
type Class int

const (
	// Transient errors (timeouts, throttling, upstream 5xx) are retried.
	Transient Class = iota
	// Permanent errors (unknown symbol, malformed payload) are not.
	Permanent
)

// StatusError carries an upstream HTTP status for classification.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// Policy is an explicit retry policy so the retry-then-skip control flow is
// independently testable.
type Policy struct {
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
}

// Default is 3 attempts, 500ms doubling up to 5s.
func Default() Policy {
	return Policy{MaxAttempts: 3, BackoffMin: 500 * time.Millisecond, BackoffMax: 5 * time.Second}
}

// Classify decides whether an error is worth retrying. Timeouts, temporary
// network failures, HTTP 429/418 (Binance throttle/ban codes) and 5xx are
// transient; every other upstream status is permanent.
func Classify(err error) Class {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Status == 429 || statusErr.Status == 418:
			return Transient
		case statusErr.Status >= 500:
			return Transient
		default:
			return Permanent
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}
	return Permanent
}

// Backoff returns the delay before the given attempt (1-based): BackoffMin
// doubled per attempt, capped at BackoffMax.
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.BackoffMin
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.BackoffMax {
			return p.BackoffMax
		}
	}
	if d > p.BackoffMax {
		return p.BackoffMax
	}
	return d
}

// Do runs op until it succeeds, returns a permanent error, exhausts
// MaxAttempts, or ctx is cancelled. onRetry, when set, observes each
// transient failure before the backoff sleep.
func (p Policy) Do(ctx context.Context, op func(context.Context) error, onRetry func(attempt int, err error)) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if Classify(lastErr) == Permanent {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, lastErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff(attempt)):
		}
	}
	return fmt.Errorf("retries exhausted after %d attempts: %w", p.MaxAttempts, lastErr)
}
