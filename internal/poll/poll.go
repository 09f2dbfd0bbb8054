// Package poll waits for a condition on the cluster to become true.
package poll

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"

	"github.com/rileyhilliard/ftest/internal/errors"
)

var errNotYet = stderrors.New("condition not met")

// Condition reports whether the wait is over. An error aborts the wait.
type Condition func(ctx context.Context) (bool, error)

// Until evaluates cond every interval until it returns true, returns an
// error, or timeout elapses. Expiry is a TIMEOUT error naming what.
func Until(ctx context.Context, what string, interval, timeout time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = time.Second
	}
	attempts := uint(timeout/interval) + 1

	err := retry.Do(
		func() error {
			done, err := cond(ctx)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if !done {
				return errNotYet
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, errNotYet):
		return errors.New(errors.ErrTimeout,
			fmt.Sprintf("TIMEOUT detected after %s waiting for %s", timeout, what), "")
	case ctx.Err() != nil:
		return errors.WrapWithCode(ctx.Err(), errors.ErrTimeout, "Stopped waiting for "+what, "")
	}
	return err
}
