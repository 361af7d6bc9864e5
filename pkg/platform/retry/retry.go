// Package retry provides a bounded retry policy for whole-sequence
// operations. The policy is injected as configuration rather than hardcoded
// sleeps inside business logic.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Policy bounds how often an operation is re-run from scratch and how long to
// wait between attempts. The zero value performs exactly one attempt.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int
	// Interval is the fixed pause between attempts.
	Interval time.Duration
}

// Option configures a Policy.
type Option func(*Policy)

// WithMaxAttempts sets the total attempt count.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		p.MaxAttempts = n
	}
}

// WithInterval sets the pause between attempts.
func WithInterval(d time.Duration) Option {
	return func(p *Policy) {
		p.Interval = d
	}
}

// New builds a Policy from options.
func New(opts ...Option) Policy {
	p := Policy{MaxAttempts: 1}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Do runs fn until it succeeds or the attempt budget is exhausted. Each retry
// restarts fn from the beginning; there is no partial resume. The sleep
// between attempts respects context cancellation.
func (p Policy) Do(ctx context.Context, logger *slog.Logger, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if logger != nil {
			logger.Warn("attempt failed",
				"op", op,
				"attempt", attempt,
				"max_attempts", attempts,
				"error", lastErr,
			)
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(p.Interval):
		}
	}
	return fmt.Errorf("%s: all %d attempts failed: %w", op, attempts, lastErr)
}
