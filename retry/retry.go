// Package retry wraps fallible side effects in bounded retries with capped
// exponential backoff.
//
// The executor is an opaque bounded-retry wrapper, not a masking layer: the
// first success returns immediately, and exhaustion propagates the last
// failure to the caller.
package retry

import (
	"context"
	"errors"
	"time"

	retrygo "github.com/avast/retry-go"
)

// Defaults for side-effect retries.
const (
	DefaultMaxAttempts = 5
	DefaultBaseWait    = 1000 * time.Millisecond
	DefaultMaxWait     = 10000 * time.Millisecond
)

// Policy parameterizes the executor. Each Do call gets its own independent
// attempt budget.
type Policy struct {
	// MaxAttempts is the total invocation ceiling, including the first.
	MaxAttempts uint
	// BaseWait is the backoff before the second attempt.
	BaseWait time.Duration
	// MaxWait caps the exponential growth of the backoff.
	MaxWait time.Duration
}

// Default returns the standard policy: 5 attempts, 1s base, 10s cap.
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseWait:    DefaultBaseWait,
		MaxWait:     DefaultMaxWait,
	}
}

// Validate checks the policy is runnable.
func (p Policy) Validate() error {
	if p.MaxAttempts == 0 {
		return errors.New("retry policy requires at least one attempt")
	}
	if p.BaseWait < 0 || p.MaxWait < 0 {
		return errors.New("retry policy waits must not be negative")
	}
	return nil
}

// Wait returns the backoff before attempt k (1-based):
// min(BaseWait * 2^(k-2), MaxWait). Attempt 1 has no wait.
func (p Policy) Wait(attempt uint) time.Duration {
	if attempt <= 1 || p.BaseWait <= 0 {
		return 0
	}

	shift := attempt - 2
	// Past 62 doublings the shift itself overflows; the cap applies long before.
	if shift >= 63 {
		return p.MaxWait
	}

	d := p.BaseWait << shift
	if d <= 0 || d > p.MaxWait {
		return p.MaxWait
	}
	return d
}

// Do invokes op up to MaxAttempts times, sleeping Wait(k) before attempt k.
// Returns nil on the first success; after exhaustion it returns the last
// failure only. Context cancellation aborts the backoff sleep.
func (p Policy) Do(ctx context.Context, op func() error) error {
	return retrygo.Do(op,
		retrygo.Context(ctx),
		retrygo.Attempts(p.MaxAttempts),
		retrygo.LastErrorOnly(true),
		// n is the 0-based count of failures so far; the sleep precedes
		// attempt n+2.
		retrygo.DelayType(func(n uint, _ error, _ *retrygo.Config) time.Duration {
			return p.Wait(n + 2)
		}),
	)
}
