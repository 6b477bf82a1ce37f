package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/adrecipro/adquiz/internal/core/domain"
)

// RetryPolicy bounds the backoff loops used around store writes.
type RetryPolicy struct {
	MaxTries uint
	Initial  time.Duration
	Max      time.Duration
}

// DefaultRetryPolicy retries a handful of times within a few hundred milliseconds.
var DefaultRetryPolicy = RetryPolicy{
	MaxTries: 5,
	Initial:  10 * time.Millisecond,
	Max:      200 * time.Millisecond,
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.MaxInterval = p.Max
	return b
}

func (p RetryPolicy) tries() uint {
	if p.MaxTries == 0 {
		return 1
	}
	return p.MaxTries
}

// retryConflicts runs op and retries only optimistic write conflicts. Running
// out of attempts yields domain.ErrConflictRetryExhausted.
func retryConflicts[T any](ctx context.Context, p RetryPolicy, log zerolog.Logger, name string, op func() (T, error)) (T, error) {
	v, err := backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !errors.Is(err, domain.ErrWriteConflict) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(p.tries()),
		backoff.WithNotify(func(err error, d time.Duration) {
			log.Debug().Err(err).Str("op", name).Dur("backoff", d).Msg("write conflict, retrying")
		}),
	)
	if errors.Is(err, domain.ErrWriteConflict) {
		return v, fmt.Errorf("%s: %w", name, domain.ErrConflictRetryExhausted)
	}
	return v, err
}

// retryTransient retries everything except business outcomes reported by
// domain.IsPermanent.
func retryTransient(ctx context.Context, p RetryPolicy, log zerolog.Logger, name string, op func() error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if err != nil && domain.IsPermanent(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(p.tries()),
		backoff.WithNotify(func(err error, d time.Duration) {
			log.Warn().Err(err).Str("op", name).Dur("backoff", d).Msg("transient failure, retrying")
		}),
	)
	return err
}
