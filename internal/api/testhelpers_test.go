package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
)

type call struct {
	method string
	path   string
	query  url.Values
	body   any
}

// fakeRequester records calls and replies with a canned JSON payload.
type fakeRequester struct {
	mu    sync.Mutex
	calls []call
	reply string
	err   error
}

func (f *fakeRequester) Do(_ context.Context, method, path string, query url.Values, body, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{method: method, path: path, query: query, body: body})
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if out != nil && f.reply != "" {
		return json.Unmarshal([]byte(f.reply), out)
	}
	return nil
}

func (f *fakeRequester) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return call{}
	}
	return f.calls[len(f.calls)-1]
}

// errRequester always fails (simulates network failure).
type errRequester struct{}

func (errRequester) Do(context.Context, string, string, url.Values, any, any) error {
	return fmt.Errorf("boom")
}
