package client

// Functional options applied by New before the transport, cache and session
// are assembled, so every knob takes effect from the first request.

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/galib-hossain-meraz/youtube-notes/client/internal/query"
)

// Option configures a Client during construction in New.
type Option func(*Client) error

// WithHTTPTimeout sets the fixed ceiling on every request. The value must be
// greater than zero; the default is five minutes.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.timeout = d
		return nil
	}
}

// WithDebugLogging dumps every request and response at debug level when
// enabled is true. Dumps include cookies and bodies; do not enable it in
// production.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		c.debug = c.debug || enabled
		return nil
	}
}

// WithLogger sets the logger used by every component. Defaults to the global
// zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) error {
		c.log = l
		return nil
	}
}

// WithRoundTripper replaces the innermost transport (http.DefaultTransport).
// Interceptors and the cookie jar still apply on top of it.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(c *Client) error {
		if rt == nil {
			return fmt.Errorf("round tripper cannot be nil")
		}
		c.roundTripper = rt
		return nil
	}
}

// WithPolicies overrides the freshness windows for identity, list and detail
// entries. Each stale time must not exceed its GC time.
func WithPolicies(p query.Policies) Option {
	return func(c *Client) error {
		for name, pol := range map[string]query.Policy{"identity": p.Identity, "list": p.List, "detail": p.Detail} {
			if pol.StaleTime < 0 || pol.GCTime < pol.StaleTime {
				return fmt.Errorf("%s policy: stale time %s must be within [0, gc time %s]", name, pol.StaleTime, pol.GCTime)
			}
		}
		c.policies = p
		return nil
	}
}

// WithSignInRedirect registers the callback invoked when a request comes back
// 401 and the session is lost. path is the API path that failed.
func WithSignInRedirect(fn func(path string)) Option {
	return func(c *Client) error {
		c.redirect = fn
		return nil
	}
}

// WithSweepInterval sets how often expired cache entries are collected.
// Zero disables the periodic sweep; expired entries are then only dropped
// when read.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return fmt.Errorf("sweep interval must be >= 0")
		}
		c.sweepEvery = d
		return nil
	}
}

// WithStrictSessionProbe keeps network, timeout, rate-limit and server
// failures of the identity probe from signing the user out. The probe then
// reports the error and the session stays unresolved.
func WithStrictSessionProbe(strict bool) Option {
	return func(c *Client) error {
		c.strictProbe = strict
		return nil
	}
}

// WithClock replaces the time source of the cache. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		c.now = now
		return nil
	}
}

// WithRevalidateWorkers sizes the background revalidation pool.
func WithRevalidateWorkers(shards, queueSize int) Option {
	return func(c *Client) error {
		if shards <= 0 || queueSize <= 0 {
			return fmt.Errorf("revalidate workers: shards and queue size must be > 0")
		}
		c.revalidate.Shards = shards
		c.revalidate.QueueSize = queueSize
		return nil
	}
}
