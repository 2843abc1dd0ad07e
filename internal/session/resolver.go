// Package session derives the authentication state of the process from the
// identity cache entry and keeps it current across probes, auth mutations and
// authorization failures seen on any request.
//
// States: unknown → loading on the first probe; loading → authenticated or
// anonymous when it settles; login, register and refresh move straight to
// authenticated; logout and any 401 move to anonymous.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/galib-hossain-meraz/youtube-notes/client/internal/cache"
	clienterrors "github.com/galib-hossain-meraz/youtube-notes/client/internal/errors"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/query"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/types"
)

// Probe triggers, used as metric labels.
const (
	TriggerMount      = "mount"
	TriggerFocus      = "focus"
	TriggerRevalidate = "revalidate"
)

type subscriber struct {
	id uint64
	fn Listener
}

// Resolver owns the session state machine. It watches the identity cache
// entry, so background revalidations move the state as well as explicit
// probes do.
type Resolver struct {
	exec   *query.Executor
	me     func(context.Context) (*types.User, error)
	policy query.Policy
	strict bool
	log    zerolog.Logger

	mu      sync.Mutex
	state   Session
	epoch   uint64
	subs    []subscriber
	nextSub uint64
	unwatch func()
}

func newResolver(exec *query.Executor, me func(context.Context) (*types.User, error), policy query.Policy, strict bool, log zerolog.Logger) *Resolver {
	r := &Resolver{
		exec:   exec,
		me:     me,
		policy: policy,
		strict: strict,
		log:    log,
		state:  Session{Status: StatusUnknown},
	}
	r.unwatch = exec.Store().Subscribe(IdentityKey, r.onIdentityEvent)
	return r
}

// Session returns the current state.
func (r *Resolver) Session() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Subscribe registers fn for every state change. Listeners run synchronously
// in whichever goroutine caused the change and must not block. The returned
// function unsubscribes.
func (r *Resolver) Subscribe(fn Listener) func() {
	r.mu.Lock()
	r.nextSub++
	id := r.nextSub
	r.subs = append(r.subs, subscriber{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, s := range r.subs {
				if s.id == id {
					r.subs = append(r.subs[:i], r.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Probe resolves the identity through the query executor using the identity
// policy: a fresh cached identity answers immediately, a stale one answers
// immediately and is revalidated in the background, otherwise the identity
// endpoint is called. The probe is never retried.
//
// A failed probe settles to anonymous and is not reported as an error. With
// strict probing, network, timeout, rate-limit and server failures leave the
// state as it was (unknown if nothing was known yet) and are returned.
//
// A probe overtaken by a login, register, refresh or logout changes nothing:
// its outcome belongs to the previous session and the current state is
// returned.
func (r *Resolver) Probe(ctx context.Context, trigger string) (Session, error) {
	probesTotal.WithLabelValues(trigger).Inc()
	gen := r.exec.Store().Generation(IdentityKey)
	r.transitionFrom(StatusUnknown, Session{Status: StatusLoading})

	res, err := query.Query(ctx, r.exec, IdentityKey, r.me, query.WithPolicy(r.policy))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return r.Session(), err
		}
		err = r.resolveFailure(gen, err)
		return r.Session(), err
	}
	if res.HasData && res.Data != nil {
		r.authenticate(gen, res.Data)
	}
	return r.Session(), nil
}

// Close stops watching the identity entry.
func (r *Resolver) Close() {
	if r.unwatch != nil {
		r.unwatch()
	}
}

// ------------------------- internals -------------------------

func (r *Resolver) onIdentityEvent(ev cache.Event) {
	switch ev.Type {
	case cache.EventUpdated:
		if u, ok := ev.Entry.Value.(*types.User); ok && u != nil {
			r.authenticate(ev.Gen, u)
		}
	case cache.EventLoading:
		r.mu.Lock()
		if !r.currentLocked(ev.Gen) || r.state.Status != StatusUnknown {
			r.mu.Unlock()
			return
		}
		r.commitLocked(Session{Status: StatusLoading})
	case cache.EventError:
		_ = r.resolveFailure(ev.Gen, ev.Entry.Err)
	case cache.EventRemoved:
		r.mu.Lock()
		if !r.currentLocked(ev.Gen) {
			r.mu.Unlock()
			return
		}
		r.commitLocked(Session{Status: StatusAnonymous})
	}
}

// currentLocked reports whether gen is still the generation of the identity
// entry. Sign-in and sign-out fence the entry while holding r.mu, so a true
// answer stays true until r.mu is released.
func (r *Resolver) currentLocked(gen uint64) bool {
	return r.exec.Store().Generation(IdentityKey) == gen
}

// authenticate moves to authenticated with u, provided nothing superseded gen
// and u is still the cached identity.
func (r *Resolver) authenticate(gen uint64, u *types.User) {
	r.mu.Lock()
	if !r.currentLocked(gen) {
		r.mu.Unlock()
		r.log.Debug().Msg("ignoring identity from a previous session")
		return
	}
	if entry, ok := r.exec.Store().Get(IdentityKey); !ok || entry.Value != any(u) {
		r.mu.Unlock()
		return
	}
	r.commitLocked(Session{Identity: u, Status: StatusAuthenticated})
}

// resolveFailure applies the probe-failure policy to a failure observed at
// gen and returns the error the caller should see, if any.
func (r *Resolver) resolveFailure(gen uint64, err error) error {
	if err == nil {
		return nil
	}
	r.mu.Lock()
	if !r.currentLocked(gen) {
		r.mu.Unlock()
		r.log.Debug().Err(err).Msg("ignoring identity failure from a previous session")
		return nil
	}
	if r.strict && !clienterrors.IsUnauthorized(err) && clienterrors.Retryable(err) {
		if r.state.Status == StatusLoading {
			r.commitLocked(Session{Status: StatusUnknown})
		} else {
			r.mu.Unlock()
		}
		r.log.Debug().Err(err).Msg("identity probe failed, session left unresolved")
		return err
	}
	r.commitLocked(Session{Status: StatusAnonymous})
	r.log.Debug().Err(err).Msg("identity probe failed, session is anonymous")
	r.exec.Store().RemoveIfCurrent(gen, IdentityKey)
	return nil
}

// dropIdentity signs the session out after a 401 unless an auth mutation
// happened since epoch. It reports whether it did.
func (r *Resolver) dropIdentity(epoch uint64) bool {
	r.mu.Lock()
	if r.epoch != epoch {
		r.mu.Unlock()
		return false
	}
	gen := r.exec.Store().Generation(IdentityKey)
	r.commitLocked(Session{Status: StatusAnonymous})
	r.exec.Store().RemoveIfCurrent(gen, IdentityKey)
	return true
}

// currentEpoch returns the sign-in epoch, advanced by every auth mutation.
func (r *Resolver) currentEpoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch
}

func (r *Resolver) transitionFrom(from Status, next Session) {
	r.mu.Lock()
	if r.state.Status != from {
		r.mu.Unlock()
		return
	}
	r.commitLocked(next)
}

// set moves to next. bump starts a new session epoch and fences the identity
// entry, so probes and fetches already in flight cannot override next.
func (r *Resolver) set(next Session, bump bool) {
	r.mu.Lock()
	if bump {
		r.epoch++
		r.exec.Store().Fence(IdentityKey)
	}
	r.commitLocked(next)
}

// commitLocked swaps in next, releases r.mu and notifies listeners.
func (r *Resolver) commitLocked(next Session) {
	if next.Status != StatusAuthenticated {
		next.Identity = nil
	}
	if r.state == next {
		r.mu.Unlock()
		return
	}
	prev, ls := r.swapLocked(next)
	r.mu.Unlock()
	r.notify(prev, next, ls)
}

func (r *Resolver) swapLocked(next Session) (Session, []Listener) {
	prev := r.state
	r.state = next
	ls := make([]Listener, 0, len(r.subs))
	for _, s := range r.subs {
		ls = append(ls, s.fn)
	}
	return prev, ls
}

func (r *Resolver) notify(prev, next Session, ls []Listener) {
	if prev.Status != next.Status {
		transitionsTotal.WithLabelValues(prev.Status.String(), next.Status.String()).Inc()
		r.log.Debug().Str("from", prev.Status.String()).Str("to", next.Status.String()).Msg("session transition")
	}
	for _, fn := range ls {
		fn(next)
	}
}
