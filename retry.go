package client

import (
	"context"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds Retry.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxInterval time.Duration
}

// DefaultRetryPolicy allows three attempts with exponential backoff from
// 200ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseBackoff: 200 * time.Millisecond, MaxInterval: 5 * time.Second}
}

// Retry calls fn until it succeeds, fails with an error that is not
// retryable, or runs out of attempts. The client never retries on its own;
// this is for callers that want to, typically around reads. Unauthorized,
// validation and not-found failures are returned at once. The last result is
// returned alongside its error, so a query's cached data survives.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = p.MaxInterval
	exp.MaxElapsedTime = 0
	exp.Reset()

	for attempt := 1; ; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !IsRetryable(err) || attempt >= p.MaxAttempts {
			return out, err
		}
		select {
		case <-time.After(exp.NextBackOff()):
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
}
