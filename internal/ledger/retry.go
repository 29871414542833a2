package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"docanchor/internal/domain"
)

// RetryPolicy bounds retries of external ledger submissions: a fixed attempt
// ceiling with exponential backoff starting at BaseDelay and doubling per
// attempt.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy matches the config defaults.
var DefaultRetryPolicy = RetryPolicy{Attempts: 4, BaseDelay: 200 * time.Millisecond}

// Submit runs fn until it yields a non-empty result, a non-retryable error,
// or the attempt ceiling is exhausted. An empty result with a nil error is
// treated as a transient failure: an external submission that settled must
// have produced a reference.
func (p RetryPolicy) Submit(ctx context.Context, op string, fn func() (string, error)) (string, error) {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultRetryPolicy.Attempts
	}
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultRetryPolicy.BaseDelay
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = base
	bo.Multiplier = 2
	// Deterministic delays: total wait is exactly the sum of the doubling series.
	bo.RandomizationFactor = 0
	bo.MaxInterval = base << uint(attempts)

	result, err := backoff.Retry(ctx, func() (string, error) {
		v, err := fn()
		if err != nil {
			if domain.Retryable(err) {
				return "", err
			}
			return "", backoff.Permanent(err)
		}
		if v == "" {
			return "", fmt.Errorf("%w: empty result from %s", domain.ErrLedgerUnavailable, op)
		}
		return v, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(attempts)))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
