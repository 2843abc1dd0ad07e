// Package transport executes JSON requests against the notes backend through
// a chain of http.RoundTripper interceptors and returns classified errors.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"

	clienterrors "github.com/galib-hossain-meraz/youtube-notes/client/internal/errors"
)

// DefaultTimeout bounds how long a single call may remain pending.
const DefaultTimeout = 5 * time.Minute

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 64 << 10

// Interceptor wraps the next RoundTripper in the chain.
type Interceptor func(next http.RoundTripper) http.RoundTripper

// RoundTripFunc adapts a function to http.RoundTripper.
type RoundTripFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Config configures a Transport.
type Config struct {
	BaseURL string
	// Timeout is the fixed ceiling for every call. Zero means DefaultTimeout.
	Timeout time.Duration
	// Base is the innermost RoundTripper. Nil means http.DefaultTransport.
	Base http.RoundTripper
	// Jar stores session cookies. Nil means a fresh in-memory jar.
	Jar    http.CookieJar
	Logger zerolog.Logger
	// Interceptors run outermost first, before the built-in ones.
	Interceptors []Interceptor
}

// Transport sends requests relative to a base URL with shared credentials.
type Transport struct {
	base   *url.URL
	http   *http.Client
	mu     sync.Mutex
	sealed bool
	chain  []Interceptor
	inner  http.RoundTripper
}

// New builds a Transport. The interceptor chain can be extended with Use until
// the first request is sent.
func New(cfg Config) (*Transport, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("transport: base url cannot be empty")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("transport: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("transport: base url %q must be absolute", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	jar := cfg.Jar
	if jar == nil {
		jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("transport: cookie jar: %w", err)
		}
	}
	inner := cfg.Base
	if inner == nil {
		inner = http.DefaultTransport
	}

	t := &Transport{
		base:  base,
		inner: inner,
		http:  &http.Client{Timeout: cfg.Timeout, Jar: jar},
	}
	t.chain = append(t.chain, cfg.Interceptors...)
	t.chain = append(t.chain, RequestID(), Diagnostics(cfg.Logger), Metrics())
	t.rebuild()
	return t, nil
}

// Use appends an interceptor outside the existing chain. It fails once the
// transport has started sending requests.
func (t *Transport) Use(i Interceptor) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return fmt.Errorf("transport: interceptors cannot be added after the first request")
	}
	t.chain = append([]Interceptor{i}, t.chain...)
	t.rebuild()
	return nil
}

// rebuild composes the chain so chain[0] sees the request first.
func (t *Transport) rebuild() {
	rt := t.inner
	for i := len(t.chain) - 1; i >= 0; i-- {
		rt = t.chain[i](rt)
	}
	t.http.Transport = rt
}

type pathKey struct{}

// PathFromContext returns the API path (without the base URL prefix) of the
// request carrying ctx. Interceptors use it to recognise endpoints.
func PathFromContext(ctx context.Context) string {
	p, _ := ctx.Value(pathKey{}).(string)
	return p
}

// Timeout reports the configured call ceiling.
func (t *Transport) Timeout() time.Duration { return t.http.Timeout }

// Jar returns the cookie jar carrying the session.
func (t *Transport) Jar() http.CookieJar { return t.http.Jar }

// BaseURL returns the configured base address.
func (t *Transport) BaseURL() string { return t.base.String() }

// Do sends method path with an optional JSON body and decodes a JSON response
// into out (when non-nil). Query parameters are appended only when non-empty.
func (t *Transport) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := method + " " + path
	if err := ctx.Err(); err != nil {
		return clienterrors.FromTransport(op, err)
	}
	t.mu.Lock()
	t.sealed = true
	t.mu.Unlock()

	u := *t.base
	u.Path = t.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.WithValue(ctx, pathKey{}, path), method, u.String(), rdr)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return clienterrors.FromTransport(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return clienterrors.FromResponse(op, resp.StatusCode, b)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if ctx.Err() != nil || clienterrors.IsTimeout(err) {
			return clienterrors.FromTransport(op, err)
		}
		return clienterrors.Decode(op, resp.StatusCode, err)
	}
	return nil
}
