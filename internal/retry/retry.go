// Package retry wraps remote operations in a bounded, fixed-delay retry loop.
package retry

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/cenkalti/backoff/v4"

	"quiz-score-service/internal/domain"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = time.Second
)

// Policy bounds the retry loop. A non-positive MaxAttempts or a negative
// Delay falls back to the default.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy is three attempts one second apart.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay}
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

func (p Policy) delay() time.Duration {
	if p.Delay < 0 {
		return DefaultDelay
	}
	return p.Delay
}

// Operation is any remote call.
type Operation[T any] func(ctx context.Context) (T, error)

type settings struct {
	absentOK  bool
	retryable func(error) bool
	notify    func(attempt int, err error, next time.Duration)
}

// Option tunes a single Do call.
type Option func(*settings)

// AbsentOK marks the operation as one where a nil result is legitimate,
// such as a delete that affects no rows.
func AbsentOK() Option {
	return func(s *settings) { s.absentOK = true }
}

// RetryIf replaces the default error classifier.
func RetryIf(fn func(error) bool) Option {
	return func(s *settings) { s.retryable = fn }
}

// OnRetry registers a hook called before each sleep.
func OnRetry(fn func(attempt int, err error, next time.Duration)) Option {
	return func(s *settings) { s.notify = fn }
}

// IsRetryable is the default classifier: lookups that found nothing,
// constraint violations, validation failures and cancellations are final.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrDuplicate),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent. The last error is returned unchanged. A nil
// result is treated as domain.ErrEmptyResult unless AbsentOK is given.
func Do[T any](ctx context.Context, policy Policy, op Operation[T], opts ...Option) (T, error) {
	s := settings{retryable: IsRetryable}
	for _, opt := range opts {
		opt(&s)
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(policy.delay())
	b = backoff.WithMaxRetries(b, uint64(policy.attempts()-1))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	wrapped := func() (T, error) {
		attempt++
		res, err := op(ctx)
		if err == nil && !s.absentOK && isAbsent(res) {
			err = domain.ErrEmptyResult
		}
		if err != nil && !s.retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	notify := func(err error, next time.Duration) {
		if s.notify != nil {
			s.notify(attempt, err, next)
		}
	}
	return backoff.RetryNotifyWithData(wrapped, b, notify)
}

// Exec is Do for operations that only return an error. Such operations are
// never checked for an absent result.
func Exec(ctx context.Context, policy Policy, op func(ctx context.Context) error, opts ...Option) error {
	opts = append(opts, AbsentOK())
	_, err := Do(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
	return err
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
