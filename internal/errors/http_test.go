package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForStatus(t *testing.T) {
	t.Parallel()
	cases := map[int]Kind{
		400: KindUnexpected,
		401: KindUnauthorized,
		403: KindForbidden,
		404: KindNotFound,
		408: KindTimeout,
		409: KindUnexpected,
		422: KindValidation,
		429: KindRateLimited,
		500: KindServer,
		503: KindServer,
	}
	for status, want := range cases {
		assert.Equal(t, want, KindForStatus(status), "status %d", status)
	}
}

func TestFromResponse_StringDetail(t *testing.T) {
	t.Parallel()
	ce := FromResponse("GET /api/users/me", 401, []byte(`{"detail":"Not authenticated"}`))
	assert.Equal(t, KindUnauthorized, ce.Kind)
	assert.Equal(t, "Not authenticated", ce.Detail)
	assert.True(t, stderrors.Is(ce, ErrUnauthorized))
	assert.False(t, stderrors.Is(ce, ErrForbidden))
	assert.True(t, IsUnauthorized(fmt.Errorf("wrapped: %w", ce)))
	assert.Contains(t, ce.Error(), "HTTP 401")
}

func TestFromResponse_ValidationFields(t *testing.T) {
	t.Parallel()
	body := `{"detail":[{"loc":["body","youtube_url"],"msg":"Invalid YouTube URL","type":"value_error"},{"loc":["query","page_size",0],"msg":"too big","type":"x"}]}`
	ce := FromResponse("POST /api/notes/", 422, []byte(body))
	require.Equal(t, KindValidation, ce.Kind)
	require.Len(t, ce.Fields, 2)
	assert.Equal(t, []string{"body", "youtube_url"}, ce.Fields[0].Location)
	assert.Equal(t, "Invalid YouTube URL", ce.Fields[0].Message)
	assert.Equal(t, []string{"query", "page_size", "0"}, ce.Fields[1].Location)
	assert.Contains(t, ce.Detail, "body.youtube_url: Invalid YouTube URL")
	assert.True(t, stderrors.Is(ce, ErrValidation))
}

func TestFromResponse_NonJSONBody(t *testing.T) {
	t.Parallel()
	ce := FromResponse("GET /x", 502, []byte("<html>bad gateway</html>"))
	assert.Equal(t, KindServer, ce.Kind)
	assert.Empty(t, ce.Detail)
	assert.Equal(t, "<html>bad gateway</html>", ce.Body)
	assert.True(t, ce.Retryable())
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestFromTransport(t *testing.T) {
	t.Parallel()
	ce := FromTransport("GET /x", stderrors.New("connection refused"))
	assert.Equal(t, KindNetwork, ce.Kind)
	assert.Zero(t, ce.StatusCode)
	assert.True(t, stderrors.Is(ce, ErrNetwork))

	ce = FromTransport("GET /x", fmt.Errorf("wrap: %w", context.DeadlineExceeded))
	assert.Equal(t, KindTimeout, ce.Kind)
	assert.True(t, stderrors.Is(ce, context.DeadlineExceeded), "underlying chain kept")

	ce = FromTransport("GET /x", timeoutErr{})
	assert.Equal(t, KindTimeout, ce.Kind)
}

func TestRetryable(t *testing.T) {
	t.Parallel()
	assert.True(t, Retryable(FromTransport("op", stderrors.New("x"))))
	assert.True(t, Retryable(FromResponse("op", 429, nil)))
	assert.False(t, Retryable(FromResponse("op", 401, nil)))
	assert.False(t, Retryable(FromResponse("op", 422, nil)))
	assert.False(t, Retryable(stderrors.New("plain")))
	assert.Equal(t, KindUnexpected, KindOf(stderrors.New("plain")))
	assert.Equal(t, KindNotFound, KindOf(FromResponse("op", 404, nil)))
}
