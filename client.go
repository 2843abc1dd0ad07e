// Package client keeps a local, staleness-aware view of a user's identity and
// video notes in sync with the notes backend.
//
// Reads go through a keyed cache: fresh entries answer immediately, stale ones
// answer immediately and refresh in the background, and concurrent reads of the
// same key share one request. Writes go to the backend first and then apply a
// fixed set of cache changes. A 401 on any request ends the session, drops the
// cached identity and calls the sign-in redirect.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/galib-hossain-meraz/youtube-notes/client/internal/api"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/cache"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/deeplink"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/query"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/session"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/shardqueue"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/transport"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/types"
)

// DefaultSweepInterval is how often expired cache entries are collected.
const DefaultSweepInterval = time.Minute

// --------------------------------------------------------------------
// Client core
// --------------------------------------------------------------------

type Client struct {
	baseURL string

	// construction settings, filled by options
	timeout      time.Duration
	roundTripper http.RoundTripper
	debug        bool
	log          zerolog.Logger
	policies     query.Policies
	redirect     func(path string)
	sweepEvery   time.Duration
	strictProbe  bool
	now          func() time.Time
	revalidate   shardqueue.Config

	tr      *transport.Transport
	store   *cache.Store
	sched   executor
	exec    *query.Executor
	session *session.Controller
	notes   api.Notes

	stopSweep  context.CancelFunc
	closedOnce uint32 // ensures Close is idempotent
}

// New constructs a Client for the backend at baseURL. The session starts out
// unknown; call Start to run the first identity probe.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL cannot be empty")
	}

	c := &Client{
		baseURL:    baseURL,
		timeout:    transport.DefaultTimeout,
		log:        log.Logger,
		policies:   query.DefaultPolicies(),
		sweepEvery: DefaultSweepInterval,
		now:        time.Now,
		revalidate: shardqueue.Config{Shards: 4, QueueSize: 64},
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	inner := c.roundTripper
	if inner == nil {
		inner = http.DefaultTransport
	}
	if c.debug {
		inner = &debugTransport{base: inner, log: c.log}
	}
	tr, err := transport.New(transport.Config{
		BaseURL: baseURL,
		Timeout: c.timeout,
		Base:    inner,
		Logger:  c.log,
	})
	if err != nil {
		return nil, err
	}
	c.tr = tr
	c.notes = api.Notes{R: tr}

	c.store = cache.New(cache.WithClock(c.now), cache.WithLogger(c.log))
	c.sched = c.newExecutor()
	c.exec = query.NewExecutor(c.store, query.WithScheduler(c.sched), query.WithLogger(c.log))
	c.session = session.New(session.Config{
		Executor:       c.exec,
		API:            api.Users{R: tr},
		Policy:         c.policies.Identity,
		StrictProbe:    c.strictProbe,
		SignInRedirect: c.redirect,
		Logger:         c.log,
	})
	if err := tr.Use(c.session.Interceptor()); err != nil {
		c.sched.Stop()
		c.session.Close()
		return nil, err
	}

	sweepCtx, cancel := context.WithCancel(context.Background())
	c.stopSweep = cancel
	if c.sweepEvery > 0 {
		go c.exec.RunSweeper(sweepCtx, c.sweepEvery)
	}
	return c, nil
}

// newExecutor builds the background revalidation pool. Failed revalidations
// are already recorded on their cache entry, so the handler only logs.
func (c *Client) newExecutor() *shardqueue.ShardExecutor {
	cfg := c.revalidate
	cfg.Logger = c.log
	cfg.ErrorHandler = func(err error) {
		c.log.Debug().Err(err).Msg("background revalidation failed")
	}
	return shardqueue.NewShardExecutor(cfg)
}

// Close stops the cache sweeper and the background revalidation workers after
// they drain. Safe to call multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closedOnce, 0, 1) {
		return nil
	}
	c.stopSweep()
	c.session.Close()
	c.sched.Stop()
	return nil
}

// --------------------------------------------------------------------
// Session - delegated to internal/session
// --------------------------------------------------------------------

// Start runs the initial identity probe and returns the resolved session.
func (c *Client) Start(ctx context.Context) (Session, error) { return c.session.Start(ctx) }

// Focus re-probes the identity after the application regains focus. A fresh
// cached identity answers without a request.
func (c *Client) Focus(ctx context.Context) (Session, error) { return c.session.Focus(ctx) }

// RevalidateSession re-probes the identity on the caller's request.
func (c *Client) RevalidateSession(ctx context.Context) (Session, error) {
	return c.session.Revalidate(ctx)
}

// Session returns the current session state.
func (c *Client) Session() Session { return c.session.Session() }

// SubscribeSession calls fn on every session change. fn runs synchronously and
// must not block. The returned function unsubscribes.
func (c *Client) SubscribeSession(fn func(Session)) func() {
	return c.session.Subscribe(fn)
}

// Login signs in. On success the session is authenticated immediately and the
// identity is cached.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*User, error) {
	return c.session.Login(ctx, req)
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	return c.session.Register(ctx, req)
}

// Logout ends the session and empties the cache.
func (c *Client) Logout(ctx context.Context) error { return c.session.Logout(ctx) }

// RefreshToken renews the session token and re-caches the identity.
func (c *Client) RefreshToken(ctx context.Context) (*User, error) { return c.session.Refresh(ctx) }

// --------------------------------------------------------------------
// Notes - queries
// --------------------------------------------------------------------

var noteListPrefix = cache.Prefix("notes", "list")

// NoteListKey is the cache key of one list page. Parameters are normalized
// the way they are sent, so equal requests share an entry.
func NoteListKey(params ListNotesParams) CacheKey {
	return cache.KeyFromValues("notes", "list", params.Values())
}

// NoteKey is the cache key of one note.
func NoteKey(id int64) CacheKey {
	return cache.NewKey("notes", "detail", map[string]string{"id": strconv.FormatInt(id, 10)})
}

// IdentityKey is the cache key of the signed-in user.
var IdentityKey = session.IdentityKey

// ListNotes returns one page of the user's notes.
func (c *Client) ListNotes(ctx context.Context, params ListNotesParams, opts ...QueryOption) (QueryResult[*NotePage], error) {
	fetch := func(ctx context.Context) (*NotePage, error) { return c.notes.List(ctx, params) }
	return query.Query(ctx, c.exec, NoteListKey(params), fetch, c.withPolicy(c.policies.List, opts)...)
}

// GetNote returns one note.
func (c *Client) GetNote(ctx context.Context, id int64, opts ...QueryOption) (QueryResult[*Note], error) {
	if err := types.ValidateNoteID(id); err != nil {
		return QueryResult[*Note]{}, err
	}
	fetch := func(ctx context.Context) (*Note, error) { return c.notes.Get(ctx, id) }
	return query.Query(ctx, c.exec, NoteKey(id), fetch, c.withPolicy(c.policies.Detail, opts)...)
}

func (c *Client) withPolicy(p query.Policy, opts []QueryOption) []QueryOption {
	return append([]QueryOption{query.WithPolicy(p)}, opts...)
}

// SubscribeNoteList calls fn whenever the cached page for params changes.
// Keys read at least once through ListNotes are refetched when invalidated
// while subscribed. The returned function unsubscribes.
func (c *Client) SubscribeNoteList(params ListNotesParams, fn func(QueryResult[*NotePage])) func() {
	return subscribe(c, NoteListKey(params), fn)
}

// SubscribeNote calls fn whenever the cached note changes.
func (c *Client) SubscribeNote(id int64, fn func(QueryResult[*Note])) func() {
	return subscribe(c, NoteKey(id), fn)
}

func subscribe[T any](c *Client, key cache.Key, fn func(QueryResult[T])) func() {
	return c.store.Subscribe(key, func(ev cache.Event) {
		res, err := query.Snapshot[T](c.exec, key, ev.Entry, ev.Type != cache.EventRemoved)
		if err != nil {
			c.log.Warn().Err(err).Str("key", key.String()).Msg("dropping cache event")
			return
		}
		fn(res)
	})
}

// InvalidateNotes marks every cached note and list page stale. Subscribed
// entries are refetched in the background.
func (c *Client) InvalidateNotes() []CacheKey {
	return c.exec.Invalidate(cache.Prefix("notes", ""))
}

// --------------------------------------------------------------------
// Notes - mutations
// --------------------------------------------------------------------

// CreateNote asks the backend to summarize a video. Cached list pages are
// invalidated so the next read includes the new note.
func (c *Client) CreateNote(ctx context.Context, req CreateNoteRequest) (*Note, error) {
	return query.Mutate(ctx, c.exec, query.Mutation[CreateNoteRequest, *Note]{
		Name: "create_note",
		Do:   c.notes.Create,
		Effects: func(CreateNoteRequest, *Note) []query.Effect {
			return []query.Effect{query.InvalidatePrefix(noteListPrefix)}
		},
	}, req)
}

type noteUpdate struct {
	id  int64
	req UpdateNoteRequest
}

// UpdateNote edits a note. The returned note replaces the cached one and list
// pages are invalidated.
func (c *Client) UpdateNote(ctx context.Context, id int64, req UpdateNoteRequest) (*Note, error) {
	return query.Mutate(ctx, c.exec, query.Mutation[noteUpdate, *Note]{
		Name: "update_note",
		Do: func(ctx context.Context, in noteUpdate) (*Note, error) {
			return c.notes.Update(ctx, in.id, in.req)
		},
		Effects: func(in noteUpdate, n *Note) []query.Effect {
			return []query.Effect{
				query.SetEntry(NoteKey(in.id), n, c.policies.Detail),
				query.InvalidatePrefix(noteListPrefix),
			}
		},
	}, noteUpdate{id: id, req: req})
}

// DeleteNote removes a note. Its cached entry is dropped and list pages are
// invalidated.
func (c *Client) DeleteNote(ctx context.Context, id int64) error {
	_, err := query.Mutate(ctx, c.exec, query.Mutation[int64, struct{}]{
		Name: "delete_note",
		Do: func(ctx context.Context, id int64) (struct{}, error) {
			return struct{}{}, c.notes.Delete(ctx, id)
		},
		Effects: func(id int64, _ struct{}) []query.Effect {
			return []query.Effect{
				query.RemoveEntry(NoteKey(id)),
				query.InvalidatePrefix(noteListPrefix),
			}
		},
	}, id)
	return err
}

// --------------------------------------------------------------------
// Utilities
// --------------------------------------------------------------------

// TimestampLink returns a link to source that starts playback at ts
// ("MM:SS" or "HH:MM:SS"). Unrecognised sources and malformed timestamps
// return source unchanged.
func TimestampLink(source, ts string) string { return deeplink.Link(source, ts) }

// ParseTimestamp converts "MM:SS" or "HH:MM:SS" to seconds.
func ParseTimestamp(ts string) (int, error) { return deeplink.ParseTimestamp(ts) }

// AwaitRevalidation blocks until every background refresh already scheduled
// for key has finished.
func (c *Client) AwaitRevalidation(ctx context.Context, key CacheKey) error {
	return c.exec.Await(ctx, key)
}

// CachedEntries returns the keys currently held in the cache, sorted.
func (c *Client) CachedEntries() []CacheKey { return c.store.Keys() }

// BaseURL returns the backend address the client talks to.
func (c *Client) BaseURL() string { return c.tr.BaseURL() }
