package transport

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// RequestID stamps every outgoing request with a fresh UUID unless the caller
// already set one.
func RequestID() Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(RequestIDHeader) != "" {
				return next.RoundTrip(req)
			}
			cloned := req.Clone(req.Context())
			cloned.Header.Set(RequestIDHeader, uuid.NewString())
			return next.RoundTrip(cloned)
		})
	}
}

// Diagnostics emits one debug event per request and one per response (or
// failure). Logging never affects the outcome of the call.
func Diagnostics(logger zerolog.Logger) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			rid := req.Header.Get(RequestIDHeader)
			logger.Debug().
				Str("request_id", rid).
				Str("method", req.Method).
				Str("url", req.URL.Redacted()).
				Msg("http request")

			start := time.Now()
			resp, err := next.RoundTrip(req)
			elapsed := time.Since(start)
			if err != nil {
				logger.Debug().
					Err(err).
					Str("request_id", rid).
					Str("method", req.Method).
					Str("url", req.URL.Redacted()).
					Dur("elapsed", elapsed).
					Msg("http request failed")
				return nil, err
			}
			logger.Debug().
				Str("request_id", rid).
				Str("method", req.Method).
				Str("url", req.URL.Redacted()).
				Int("status_code", resp.StatusCode).
				Dur("elapsed", elapsed).
				Msg("http response")
			return resp, nil
		})
	}
}

// Metrics records request counts and latency.
func Metrics() Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			class := "error"
			if err == nil {
				class = statusClass(resp.StatusCode)
			}
			requestsTotal.WithLabelValues(req.Method, class).Inc()
			requestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
			return resp, err
		})
	}
}

// OnStatus calls fn for every response with the given status code. fn runs
// before the response is handed back up the chain.
func OnStatus(code int, fn func(*http.Request, *http.Response)) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err == nil && resp.StatusCode == code {
				fn(req, resp)
			}
			return resp, err
		})
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
