// Package query resolves cached reads and applies declared cache effects after
// writes. Reads follow stale-while-revalidate: fresh hits return immediately,
// stale hits return the cached value and queue one background refresh, misses
// block on a fetch. Concurrent fetches for one key share a single call.
package query

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/galib-hossain-meraz/youtube-notes/client/internal/cache"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/shardqueue"
)

// Scheduler runs background revalidations. Jobs submitted under the same key
// must not overlap. *shardqueue.ShardExecutor satisfies it.
type Scheduler interface {
	Submit(ctx context.Context, key string, job shardqueue.Job) error
}

type barrier interface {
	Barrier(ctx context.Context, key string) error
}

type fetchFunc func(context.Context) (any, error)

type refetch struct {
	ctx    context.Context
	fetch  fetchFunc
	policy Policy
}

// Executor owns the dedup table and the background revalidation queue for one
// cache store.
type Executor struct {
	store *cache.Store
	sched Scheduler
	log   zerolog.Logger

	group singleflight.Group

	mu       sync.Mutex
	inflight map[string]struct{}
	pending  map[cache.Key]struct{}
	fetchers map[cache.Key]refetch
	pruneAt  int
	bg       sync.WaitGroup
}

// Option configures an Executor.
type Option func(*Executor)

// WithScheduler sets where background revalidations run. Without one each
// revalidation gets its own goroutine.
func WithScheduler(s Scheduler) Option {
	return func(e *Executor) { e.sched = s }
}

// WithLogger sets the executor logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// NewExecutor returns an executor over store.
func NewExecutor(store *cache.Store, opts ...Option) *Executor {
	e := &Executor{
		store:    store,
		log:      zerolog.Nop(),
		inflight: make(map[string]struct{}),
		pending:  make(map[cache.Key]struct{}),
		fetchers: make(map[cache.Key]refetch),
		pruneAt:  minPruneAt,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Store returns the underlying cache store.
func (e *Executor) Store() *cache.Store { return e.store }

// Result is what a query hands back to its caller.
type Result[T any] struct {
	Data      T
	HasData   bool
	Status    cache.Status
	Stale     bool
	FetchedAt time.Time
	Err       error
}

type queryConfig struct {
	policy       Policy
	enabled      func() bool
	blockOnStale bool
}

// QueryOption tunes a single Query call.
type QueryOption func(*queryConfig)

// WithPolicy sets the freshness window used when the fetched value is stored.
func WithPolicy(p Policy) QueryOption {
	return func(c *queryConfig) { c.policy = p }
}

// Enabled gates the query. When fn reports false no fetch is issued and the
// result is idle, carrying whatever is already cached.
func Enabled(fn func() bool) QueryOption {
	return func(c *queryConfig) { c.enabled = fn }
}

// BlockOnStale makes a stale hit refetch in the foreground instead of
// returning the stale value. Useful for one-shot callers that will not be
// around to observe a background refresh.
func BlockOnStale() QueryOption {
	return func(c *queryConfig) { c.blockOnStale = true }
}

// Query returns the current value for key, fetching it with fetch when needed.
// A fresh entry is returned as is. A stale entry is returned as is and one
// background refetch is scheduled. A missing or invalidated entry is fetched
// before returning; concurrent callers share that fetch. A failed fetch
// records the error on the entry, keeps any previous value and returns the
// error unchanged. Cancelling ctx releases the caller but not the fetch, which
// still completes and updates the cache.
func Query[T any](ctx context.Context, e *Executor, key cache.Key, fetch func(context.Context) (T, error), opts ...QueryOption) (Result[T], error) {
	cfg := queryConfig{policy: DefaultPolicies().Identity}
	for _, o := range opts {
		o(&cfg)
	}
	fn := func(ctx context.Context) (any, error) { return fetch(ctx) }
	e.remember(ctx, key, fn, cfg.policy)

	now := e.store.Now()
	entry, ok := e.store.Get(key)

	if cfg.enabled != nil && !cfg.enabled() {
		lookupsTotal.WithLabelValues(key.Resource, "disabled").Inc()
		r, err := resultFromEntry[T](key, entry, ok, now)
		r.Status = cache.StatusIdle
		return r, err
	}

	// Entries invalidated by a mutation are not served again: the next read
	// waits for the refetch. Entries that merely aged out are served stale.
	if ok && entry.HasValue && !entry.Invalidated {
		if !entry.IsStale(now) {
			lookupsTotal.WithLabelValues(key.Resource, "fresh").Inc()
			return resultFromEntry[T](key, entry, ok, now)
		}
		if !cfg.blockOnStale {
			lookupsTotal.WithLabelValues(key.Resource, "stale").Inc()
			e.revalidate(ctx, key, fn, cfg.policy)
			return resultFromEntry[T](key, entry, ok, now)
		}
	}

	outcome := "miss"
	if ok && entry.Invalidated {
		outcome = "invalidated"
	}
	lookupsTotal.WithLabelValues(key.Resource, outcome).Inc()
	v, err := e.await(ctx, key, fn, cfg.policy)
	if err != nil {
		entry, ok = e.store.Get(key)
		r, _ := resultFromEntry[T](key, entry, ok, e.store.Now())
		r.Status = cache.StatusError
		r.Err = err
		return r, err
	}
	data, okType := v.(T)
	if !okType {
		var zero T
		err := fmt.Errorf("query %s: fetched %T, want %T", key, v, zero)
		return Result[T]{Status: cache.StatusError, Err: err}, err
	}
	r := Result[T]{Data: data, HasData: true, Status: cache.StatusSuccess, FetchedAt: e.store.Now()}
	if entry, ok := e.store.Get(key); ok && entry.HasValue {
		r.FetchedAt = entry.FetchedAt
	}
	return r, nil
}

// Invalidate marks every entry under prefix stale and queues a background
// refetch for those that currently have subscribers. Values are kept until the
// refetch replaces them, so subscribers and Snapshot still see the old data,
// but the next Query for an invalidated key does not return it: it waits for
// the refetch (joining one already running) and returns the new value.
// Entries that merely passed their stale time are still served stale.
func (e *Executor) Invalidate(prefix cache.Key) []cache.Key {
	keys := e.store.Invalidate(prefix)
	for _, k := range keys {
		if e.store.Subscribers(k) == 0 {
			continue
		}
		e.mu.Lock()
		rf, ok := e.fetchers[k]
		e.mu.Unlock()
		if !ok {
			continue
		}
		e.revalidate(rf.ctx, k, rf.fetch, rf.policy)
	}
	e.prune()
	return keys
}

// Await blocks until every background revalidation queued for key before the
// call has finished.
func (e *Executor) Await(ctx context.Context, key cache.Key) error {
	if b, ok := e.sched.(barrier); ok {
		if err := b.Barrier(ctx, key.String()); err == nil {
			return nil
		}
	}
	done := make(chan struct{})
	go func() {
		e.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ------------------------- internals -------------------------

// minPruneAt is the fetcher count below which remember never prunes.
const minPruneAt = 64

// remember records how to refetch key. Once the table has doubled since the
// last prune, fetchers of collected entries are dropped, so it stays
// proportional to the live cache.
func (e *Executor) remember(ctx context.Context, key cache.Key, fn fetchFunc, p Policy) {
	e.mu.Lock()
	full := len(e.fetchers) >= e.pruneAt
	e.mu.Unlock()
	if full {
		e.prune()
	}

	e.mu.Lock()
	e.fetchers[key] = refetch{ctx: context.WithoutCancel(ctx), fetch: fn, policy: p}
	e.mu.Unlock()
}

// prune forgets fetchers whose entries are gone.
func (e *Executor) prune() {
	e.mu.Lock()
	keys := make([]cache.Key, 0, len(e.fetchers))
	for k := range e.fetchers {
		keys = append(keys, k)
	}
	e.mu.Unlock()

	for _, k := range keys {
		if _, ok := e.store.Get(k); ok || e.store.Subscribers(k) > 0 {
			continue
		}
		e.mu.Lock()
		delete(e.fetchers, k)
		e.mu.Unlock()
	}

	e.mu.Lock()
	e.pruneAt = max(minPruneAt, 2*len(e.fetchers))
	e.mu.Unlock()
}

// Sweep garbage-collects the store and forgets fetchers of the collected
// entries. It returns how many entries were removed.
func (e *Executor) Sweep() int {
	n := e.store.Sweep()
	e.prune()
	return n
}

// RunSweeper calls Sweep every interval until ctx is done. A non-positive
// interval returns at once.
func (e *Executor) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Sweep()
		}
	}
}

func (e *Executor) forgetAll() {
	e.mu.Lock()
	e.fetchers = make(map[cache.Key]refetch)
	e.mu.Unlock()
}

func (e *Executor) await(ctx context.Context, key cache.Key, fn fetchFunc, p Policy) (any, error) {
	ch := e.start(ctx, key, fn, p)
	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// start joins the in-flight fetch for key or begins a new one. The group key
// carries the store generation, so a fetch started before a Clear is never
// shared with callers after it and cannot write into the cleared store.
func (e *Executor) start(ctx context.Context, key cache.Key, fn fetchFunc, p Policy) <-chan singleflight.Result {
	gen := e.store.Generation(key)
	gk := strconv.FormatUint(gen, 10) + "|" + key.String()
	detached := context.WithoutCancel(ctx)

	e.mu.Lock()
	if _, joined := e.inflight[gk]; joined {
		dedupJoinsTotal.WithLabelValues(key.Resource).Inc()
	} else {
		e.inflight[gk] = struct{}{}
	}
	e.mu.Unlock()

	return e.group.DoChan(gk, func() (any, error) {
		defer func() {
			e.mu.Lock()
			delete(e.inflight, gk)
			e.mu.Unlock()
		}()

		e.store.MarkLoadingIfCurrent(gen, key)
		v, err := fn(detached)
		fetchesTotal.WithLabelValues(key.Resource, resultLabel(err)).Inc()
		if err != nil {
			e.store.MarkErrorIfCurrent(gen, key, err)
			e.log.Debug().Err(err).Str("key", key.String()).Msg("fetch failed")
			return nil, err
		}
		if _, stored := e.store.SetIfCurrent(gen, key, v, p.StaleTime, p.GCTime); !stored {
			e.log.Debug().Str("key", key.String()).Msg("dropping fetch result from before cache clear or fence")
		}
		return v, nil
	})
}

// revalidate queues at most one background refresh per key.
func (e *Executor) revalidate(ctx context.Context, key cache.Key, fn fetchFunc, p Policy) {
	e.mu.Lock()
	if _, queued := e.pending[key]; queued {
		e.mu.Unlock()
		return
	}
	e.pending[key] = struct{}{}
	e.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	job := func(context.Context) error {
		defer func() {
			e.mu.Lock()
			delete(e.pending, key)
			e.mu.Unlock()
		}()
		r := <-e.start(bg, key, fn, p)
		return r.Err
	}

	if e.sched != nil {
		err := e.sched.Submit(bg, key.String(), shardqueue.JobFunc(job))
		if err == nil {
			return
		}
		e.log.Debug().Err(err).Str("key", key.String()).Msg("scheduler rejected revalidation, using goroutine")
	}
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		_ = job(bg)
	}()
}

func resultFromEntry[T any](key cache.Key, entry cache.Entry, ok bool, now time.Time) (Result[T], error) {
	r := Result[T]{Status: cache.StatusIdle}
	if !ok {
		return r, nil
	}
	r.Status = entry.Status
	r.Err = entry.Err
	r.FetchedAt = entry.FetchedAt
	if !entry.HasValue {
		return r, nil
	}
	data, okType := entry.Value.(T)
	if !okType {
		var zero T
		return r, fmt.Errorf("query %s: cached %T, want %T", key, entry.Value, zero)
	}
	r.Data = data
	r.HasData = true
	r.Stale = entry.IsStale(now)
	return r, nil
}

// Snapshot converts an entry read from the executor's store (or carried by a
// store event) into a Result. ok reports whether the entry exists.
func Snapshot[T any](e *Executor, key cache.Key, entry cache.Entry, ok bool) (Result[T], error) {
	return resultFromEntry[T](key, entry, ok, e.store.Now())
}
