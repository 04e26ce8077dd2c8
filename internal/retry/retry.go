// Package retry is a small bounded-retry helper with an explicit attempt cap
// and an exponential delay schedule. It exists so callers (delivery attempts,
// startup pings) don't grow their own ad hoc attempt loops.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes how many times to try and how long to wait between tries.
// The zero value is unusable; use Default() or fill both fields.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first. Must be
	// at least 1.
	MaxAttempts int

	// BaseDelay is the wait after the first failure. Each subsequent wait
	// doubles: base, 2×base, 4×base, …
	BaseDelay time.Duration
}

// Default returns 3 attempts with a 2-second base delay.
func Default() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second}
}

// normalized clamps nonsense values to the defaults so a zero-configured
// policy degrades to Default() instead of spinning or never running.
func (p Policy) normalized() Policy {
	d := Default()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	return p
}

// Do runs op until it succeeds, the attempt cap is reached, or ctx is done.
// The returned error is the last op error (wrapped with the attempt count),
// or ctx.Err() if the context ended while waiting between attempts.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	p = p.normalized()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == p.MaxAttempts {
			break
		}

		delay := p.BaseDelay << (attempt - 1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("retry: %d attempts exhausted: %w", p.MaxAttempts, lastErr)
}
