package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryPolicy bounds re-execution of a task handler on transient failure.
// Delays grow exponentially from BaseDelay up to MaxDelay with random
// jitter added to each wait.
type RetryPolicy struct {
	Attempts  uint // total attempts including the first
	BaseDelay time.Duration
	MaxDelay  time.Duration
	MaxJitter time.Duration
}

// Execute runs fn under the policy. Errors marked Permanent stop the loop
// immediately; everything else is retried until the attempt cap.
func (p RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}
	baseDelay := p.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	maxJitter := p.MaxJitter
	if maxJitter <= 0 {
		maxJitter = baseDelay
	}

	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(baseDelay),
		retry.MaxDelay(maxDelay),
		retry.MaxJitter(maxJitter),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.RetryIf(func(err error) bool {
			return !IsPermanent(err)
		}),
		retry.LastErrorOnly(true),
	)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string {
	return e.err.Error()
}

func (e *permanentError) Unwrap() error {
	return e.err
}

// Permanent marks an error as carrying business meaning: retrying cannot
// change the outcome, so the failure must propagate immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err (or anything it wraps) was marked with
// Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
