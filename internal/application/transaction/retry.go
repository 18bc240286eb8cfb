package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dealerops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RetryPolicy bounds how often a unit of work is replayed after an
// optimistic lock failure
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns 5 attempts with 10ms..200ms exponential backoff
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.MaxElapsedTime = 0
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// ExecuteWithRetry runs fn in a fresh transaction, replaying the whole unit
// when a write loses an optimistic lock race. fn must not carry state across
// attempts. Once the policy is exhausted shared.ErrConcurrencyConflict is
// returned; other errors are returned immediately.
func ExecuteWithRetry(ctx context.Context, scope Scope, policy RetryPolicy, logger *zap.Logger, fn func(repos Repositories) error) error {
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := scope.Execute(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, shared.ErrOptimisticLock) {
			logger.Debug("Optimistic lock conflict, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return backoff.Permanent(err)
	}, policy.backOff(ctx))

	if err != nil && errors.Is(err, shared.ErrOptimisticLock) {
		logger.Warn("Retry limit reached on concurrent update", zap.Int("attempts", attempt))
		return shared.NewDomainError(shared.CodeConcurrencyConflict,
			"Resource was modified concurrently, please retry")
	}
	return err
}
