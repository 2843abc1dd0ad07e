package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clienterrors "github.com/galib-hossain-meraz/youtube-notes/client/internal/errors"
)

var fastRetry = RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestRetry_RetriesTransientFailures(t *testing.T) {
	t.Parallel()
	calls := 0
	v, err := Retry(context.Background(), fastRetry, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, clienterrors.FromResponse("GET /api/notes/", 503, nil)
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnPermanentFailure(t *testing.T) {
	t.Parallel()
	calls := 0
	_, err := Retry(context.Background(), fastRetry, func(context.Context) (int, error) {
		calls++
		return 0, clienterrors.FromResponse("GET /api/users/me", 401, []byte(`{"detail":"Not authenticated"}`))
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, calls)
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()
	calls := 0
	v, err := Retry(context.Background(), fastRetry, func(context.Context) (string, error) {
		calls++
		return "cached", clienterrors.FromTransport("GET /api/notes/", errors.New("connection reset"))
	})
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, "cached", v)
	assert.Equal(t, 3, calls)
}

func TestRetry_HonoursContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{MaxAttempts: 5, BaseBackoff: time.Hour, MaxInterval: time.Hour}
	_, err := Retry(ctx, p, func(context.Context) (int, error) {
		cancel()
		return 0, clienterrors.FromResponse("GET /api/notes/", 500, nil)
	})
	assert.ErrorIs(t, err, context.Canceled)
}
