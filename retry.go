package bloom

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
)

var noRetry = RetryPolicy{MaxAttempts: 1}

func (rp RetryPolicy) unbounded() RetryPolicy {
	return RetryPolicy{Backoff: rp.Backoff}
}

// do calls fn until it succeeds, the attempts are exhausted or ctx is done.
// The last error of fn is returned; a done context wins over it.
func (rp RetryPolicy) do(ctx context.Context, onRetry func(attempt int, err error), fn func() error) error {
	attempt := 0
	var lastErr error
	_, err := backoff.Retry(
		ctx,
		func() (struct{}, error) {
			attempt++
			lastErr = fn()
			if lastErr != nil && ctx.Err() != nil {
				return struct{}{}, backoff.Permanent(lastErr)
			}
			return struct{}{}, lastErr
		},
		backoff.WithBackOff(backoff.NewConstantBackOff(rp.Backoff)),
		backoff.WithMaxTries(uint(rp.MaxAttempts)),
		// the default gives up after 15 minutes, only attempts and ctx limit the retries
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(notifyErr error, _ time.Duration) {
			onRetry(attempt, notifyErr)
		}),
	)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !(rp.MaxAttempts > 0 && attempt >= rp.MaxAttempts) {
		return errors.Wrapf(ctxErr, "gave up after %d attempts, last error: %v", attempt, lastErr)
	}
	return lastErr
}
