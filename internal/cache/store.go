// Package cache is the key-indexed store behind every query and mutation.
// It owns all entries; callers only ever see snapshots and change entries
// through Store methods.
package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Status is the fetch state of an entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Entry is a snapshot of one cached value.
type Entry struct {
	Key       Key
	Value     any
	HasValue  bool
	FetchedAt time.Time
	StaleAt   time.Time
	GCAt      time.Time
	Status    Status
	Err       error
	// Invalidated is set by Invalidate and cleared by the next Set.
	Invalidated bool
}

// IsStale reports whether the entry should be refetched at now.
func (e Entry) IsStale(now time.Time) bool {
	return e.Invalidated || now.After(e.StaleAt)
}

// EventType says what happened to a key.
type EventType int

const (
	EventUpdated EventType = iota
	EventLoading
	EventError
	EventInvalidated
	EventRemoved
)

func (t EventType) String() string {
	switch t {
	case EventUpdated:
		return "updated"
	case EventLoading:
		return "loading"
	case EventError:
		return "error"
	case EventInvalidated:
		return "invalidated"
	case EventRemoved:
		return "removed"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event is delivered to subscribers of Key. Entry is the zero value for
// EventRemoved: subscribers must treat that as "no data". Gen is the key's
// generation when the event happened; listeners that race with Fence compare
// it against Generation to drop events that are already superseded.
type Event struct {
	Type  EventType
	Key   Key
	Entry Entry
	Gen   uint64
}

// Listener receives events for a subscribed key.
type Listener func(Event)

type delivery struct {
	fn Listener
	ev Event
}

// Store maps keys to entries. It is safe for concurrent use; listeners are
// invoked after the store lock has been released, in the calling goroutine.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*Entry
	subs    map[Key]map[uint64]Listener
	nextSub uint64
	gen     uint64
	fences  map[Key]uint64
	now     func() time.Time
	log     zerolog.Logger
	// placeholderTTL is the GC horizon of entries created without a value
	// (loading or failed first fetches).
	placeholderTTL time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPlaceholderTTL sets how long a value-less entry (a failed first fetch)
// is retained once unobserved.
func WithPlaceholderTTL(d time.Duration) Option {
	return func(s *Store) { s.placeholderTTL = d }
}

// WithLogger sets the logger used for sweep diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[Key]*Entry),
		subs:    make(map[Key]map[uint64]Listener),
		fences:  make(map[Key]uint64),
		now:     time.Now,
		log:     zerolog.Nop(),

		placeholderTTL: time.Minute,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time { return s.now() }

// Get returns a snapshot of the entry for key. An entry past its GC horizon
// with no subscribers is dropped here and reported as absent.
func (s *Store) Get(key Key) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	if s.collectableLocked(key, e, s.now()) {
		delete(s.entries, key)
		return Entry{}, false
	}
	return *e, true
}

// Set stores value under key, replacing any previous entry. staleTime and
// gcTime are measured from now; gcTime is raised to staleTime if shorter so
// that FetchedAt <= StaleAt <= GCAt always holds.
func (s *Store) Set(key Key, value any, staleTime, gcTime time.Duration) Entry {
	if staleTime < 0 {
		staleTime = 0
	}
	if gcTime < staleTime {
		gcTime = staleTime
	}
	s.mu.Lock()
	snap, out := s.setLocked(key, value, staleTime, gcTime)
	s.mu.Unlock()

	s.deliver(out)
	return snap
}

// Generation returns the write generation of key. It advances on every Clear
// and on every Fence of key. Fetches record it when they start and store their
// result through SetIfCurrent / MarkErrorIfCurrent, so nothing fetched before
// a Clear or Fence can land in the cache after it.
func (s *Store) Generation(key Key) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.genLocked(key)
}

// Fence advances the generation of key without touching its entry. Fetches
// for key already in flight can no longer store a value or an error.
func (s *Store) Fence(key Key) {
	s.mu.Lock()
	s.fences[key]++
	s.mu.Unlock()
}

// genLocked never repeats for a key: both counters only grow.
func (s *Store) genLocked(key Key) uint64 {
	return s.gen + s.fences[key]
}

// SetIfCurrent is Set guarded by generation. It reports false, storing
// nothing, if the store has been cleared since gen was read.
func (s *Store) SetIfCurrent(gen uint64, key Key, value any, staleTime, gcTime time.Duration) (Entry, bool) {
	if staleTime < 0 {
		staleTime = 0
	}
	if gcTime < staleTime {
		gcTime = staleTime
	}
	s.mu.Lock()
	if s.genLocked(key) != gen {
		s.mu.Unlock()
		return Entry{}, false
	}
	snap, out := s.setLocked(key, value, staleTime, gcTime)
	s.mu.Unlock()

	s.deliver(out)
	return snap, true
}

// MarkErrorIfCurrent is MarkError guarded by generation.
func (s *Store) MarkErrorIfCurrent(gen uint64, key Key, err error) bool {
	s.mu.Lock()
	if s.genLocked(key) != gen {
		s.mu.Unlock()
		return false
	}
	out := s.markErrorLocked(key, err)
	s.mu.Unlock()

	s.deliver(out)
	return true
}

// MarkLoading flags key as having a fetch in flight, creating an idle
// placeholder if there is no entry yet. Any cached value is kept.
func (s *Store) MarkLoading(key Key) {
	s.mu.Lock()
	out := s.markLoadingLocked(key)
	s.mu.Unlock()

	s.deliver(out)
}

// MarkLoadingIfCurrent is MarkLoading guarded by generation.
func (s *Store) MarkLoadingIfCurrent(gen uint64, key Key) bool {
	s.mu.Lock()
	if s.genLocked(key) != gen {
		s.mu.Unlock()
		return false
	}
	out := s.markLoadingLocked(key)
	s.mu.Unlock()

	s.deliver(out)
	return true
}

// MarkError records a failed fetch. Any cached value is kept.
func (s *Store) MarkError(key Key, err error) {
	s.mu.Lock()
	out := s.markErrorLocked(key, err)
	s.mu.Unlock()

	s.deliver(out)
}

// Invalidate marks every entry under prefix stale immediately without touching
// its value. Calling it again on already-invalidated entries changes nothing
// and emits no further events. It returns the matched keys.
func (s *Store) Invalidate(prefix Key) []Key {
	s.mu.Lock()
	now := s.now()
	var (
		matched []Key
		out     []delivery
	)
	for k, e := range s.entries {
		if !k.HasPrefix(prefix) {
			continue
		}
		matched = append(matched, k)
		if e.Invalidated {
			continue
		}
		e.Invalidated = true
		if e.StaleAt.After(now) {
			e.StaleAt = now
		}
		out = append(out, s.deliveriesLocked(k, Event{Type: EventInvalidated, Key: k, Entry: *e})...)
	}
	s.mu.Unlock()

	s.deliver(out)
	sortKeys(matched)
	return matched
}

// Remove deletes the entry for key. It reports whether an entry existed.
func (s *Store) Remove(key Key) bool {
	s.mu.Lock()
	_, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.entries, key)
	out := s.deliveriesLocked(key, Event{Type: EventRemoved, Key: key})
	s.mu.Unlock()

	s.deliver(out)
	return true
}

// RemoveIfCurrent is Remove guarded by generation.
func (s *Store) RemoveIfCurrent(gen uint64, key Key) bool {
	s.mu.Lock()
	if s.genLocked(key) != gen {
		s.mu.Unlock()
		return false
	}
	_, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.entries, key)
	out := s.deliveriesLocked(key, Event{Type: EventRemoved, Key: key})
	s.mu.Unlock()

	s.deliver(out)
	return true
}

// Clear removes every entry, advances the generation and returns how many
// entries were dropped. Subscriptions survive; their listeners receive
// EventRemoved.
func (s *Store) Clear() int {
	s.mu.Lock()
	n := len(s.entries)
	s.gen++
	var out []delivery
	for k := range s.entries {
		out = append(out, s.deliveriesLocked(k, Event{Type: EventRemoved, Key: k})...)
	}
	s.entries = make(map[Key]*Entry)
	s.mu.Unlock()

	s.deliver(out)
	return n
}

// Len returns the number of entries, including ones awaiting collection.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Keys returns the current keys in a stable order.
func (s *Store) Keys() []Key {
	s.mu.Lock()
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.Unlock()
	sortKeys(keys)
	return keys
}

// Subscribe registers fn for events on key. While at least one subscription
// exists the entry is never garbage collected. The returned function
// unsubscribes and is safe to call more than once.
func (s *Store) Subscribe(key Key, fn Listener) func() {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	m, ok := s.subs[key]
	if !ok {
		m = make(map[uint64]Listener)
		s.subs[key] = m
	}
	m[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if m, ok := s.subs[key]; ok {
				delete(m, id)
				if len(m) == 0 {
					delete(s.subs, key)
				}
			}
		})
	}
}

// Subscribers returns the number of active subscriptions on key.
func (s *Store) Subscribers(key Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[key])
}

// Sweep drops every collectable entry and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	now := s.now()
	n := 0
	for k, e := range s.entries {
		if s.collectableLocked(k, e, now) {
			delete(s.entries, k)
			n++
		}
	}
	s.mu.Unlock()
	if n > 0 {
		s.log.Debug().Int("evicted", n).Msg("cache sweep")
	}
	return n
}

// ------------------------- internals -------------------------

// collectableLocked: past the GC horizon, unobserved, and not mid-fetch.
func (s *Store) collectableLocked(key Key, e *Entry, now time.Time) bool {
	if e.Status == StatusLoading {
		return false
	}
	if len(s.subs[key]) > 0 {
		return false
	}
	return now.After(e.GCAt)
}

func (s *Store) setLocked(key Key, value any, staleTime, gcTime time.Duration) (Entry, []delivery) {
	now := s.now()
	e := &Entry{
		Key:       key,
		Value:     value,
		HasValue:  true,
		FetchedAt: now,
		StaleAt:   now.Add(staleTime),
		GCAt:      now.Add(gcTime),
		Status:    StatusSuccess,
	}
	s.entries[key] = e
	snap := *e
	return snap, s.deliveriesLocked(key, Event{Type: EventUpdated, Key: key, Entry: snap})
}

func (s *Store) markLoadingLocked(key Key) []delivery {
	e := s.entryLocked(key)
	e.Status = StatusLoading
	return s.deliveriesLocked(key, Event{Type: EventLoading, Key: key, Entry: *e})
}

func (s *Store) markErrorLocked(key Key, err error) []delivery {
	e := s.entryLocked(key)
	e.Status = StatusError
	e.Err = err
	return s.deliveriesLocked(key, Event{Type: EventError, Key: key, Entry: *e})
}

func (s *Store) entryLocked(key Key) *Entry {
	e, ok := s.entries[key]
	if !ok {
		now := s.now()
		e = &Entry{Key: key, Status: StatusIdle, StaleAt: now, GCAt: now.Add(s.placeholderTTL)}
		s.entries[key] = e
	}
	return e
}

func (s *Store) deliveriesLocked(key Key, ev Event) []delivery {
	m := s.subs[key]
	if len(m) == 0 {
		return nil
	}
	ev.Gen = s.genLocked(key)
	out := make([]delivery, 0, len(m))
	for _, fn := range m {
		out = append(out, delivery{fn: fn, ev: ev})
	}
	return out
}

func (s *Store) deliver(out []delivery) {
	for _, d := range out {
		d.fn(d.ev)
	}
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
}
