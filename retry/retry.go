// Package retry implements the bounded exponential-backoff policy used
// throughout the swap engine (price-oracle fan-out, LP HTTP calls): up to
// five attempts, 500ms base delay, doubling each attempt, with
// swaperr.IntermediaryError aborting the loop immediately since retrying a
// semantic rejection can never succeed.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/atomiqlabs/swapengine/swaperr"
)

const (
	// MaxAttempts is the maximum number of times Do invokes fn.
	MaxAttempts = 5

	// BaseDelay is the delay before the second attempt; it doubles on
	// every subsequent attempt.
	BaseDelay = 500 * time.Millisecond
)

// Policy allows a caller to override the defaults (used by tests to avoid
// real sleeps).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy is the standard retry policy used throughout the engine.
var DefaultPolicy = Policy{MaxAttempts: MaxAttempts, BaseDelay: BaseDelay}

// Do invokes fn up to p.MaxAttempts times, doubling the delay between
// attempts starting at p.BaseDelay. It stops immediately, without
// retrying, if fn's error is a *swaperr.IntermediaryError. It also stops
// immediately if ctx is done or the last attempt fails.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	if p.MaxAttempts <= 0 {
		p = DefaultPolicy
	}

	var (
		result T
		err    error
	)

	delay := p.BaseDelay
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}

		var intermediary *swaperr.IntermediaryError
		if errors.As(err, &intermediary) {
			return result, err
		}

		if attempt == p.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return result, err
}
