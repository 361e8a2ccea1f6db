package services

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"video-production-service/domain"
)

// RetryPolicy wraps collaborator calls with exponential backoff and jitter.
// One policy value is applied uniformly at every generation call site;
// concatenation is never routed through it.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Retryable decides which failures are worth another attempt. Defaults
	// to domain.IsTransient.
	Retryable func(error) bool
}

func NewRetryPolicy(maxAttempts int, baseDelay time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Retryable:   domain.IsTransient,
	}
}

// Do runs op until it succeeds, exhausts the attempt ceiling, fails
// non-retryably, or the context ends. The last error is returned unchanged
// so its kind survives for the caller.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = domain.IsTransient
	}

	bo := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		bo.InitialInterval = p.BaseDelay
	}

	attempts := uint64(0)
	if p.MaxAttempts > 1 {
		attempts = uint64(p.MaxAttempts - 1)
	}

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, attempts), ctx))
}
