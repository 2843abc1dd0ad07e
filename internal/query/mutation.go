package query

import (
	"context"

	"github.com/galib-hossain-meraz/youtube-notes/client/internal/cache"
)

// EffectKind names a cache change applied after a successful write.
type EffectKind int

const (
	EffectSet EffectKind = iota
	EffectInvalidate
	EffectRemove
	EffectClear
)

func (k EffectKind) String() string {
	switch k {
	case EffectSet:
		return "set"
	case EffectInvalidate:
		return "invalidate"
	case EffectRemove:
		return "remove"
	case EffectClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Effect is one declared cache change.
type Effect struct {
	Kind   EffectKind
	Key    cache.Key
	Value  any
	Policy Policy
}

// SetEntry stores value under key with policy p.
func SetEntry(key cache.Key, value any, p Policy) Effect {
	return Effect{Kind: EffectSet, Key: key, Value: value, Policy: p}
}

// InvalidatePrefix marks every entry under prefix stale.
func InvalidatePrefix(prefix cache.Key) Effect {
	return Effect{Kind: EffectInvalidate, Key: prefix}
}

// RemoveEntry drops the entry for key.
func RemoveEntry(key cache.Key) Effect {
	return Effect{Kind: EffectRemove, Key: key}
}

// ClearAll drops every entry. In-flight fetches started before it cannot
// repopulate the cache.
func ClearAll() Effect {
	return Effect{Kind: EffectClear}
}

// Mutation describes a write and the cache effects of its success.
type Mutation[In, Out any] struct {
	Name    string
	Do      func(ctx context.Context, in In) (Out, error)
	Effects func(in In, out Out) []Effect
}

// Mutate performs m. On success the declared effects are applied in order; on
// failure the cache is left untouched and the error is returned as is. Writes
// are never retried.
func Mutate[In, Out any](ctx context.Context, e *Executor, m Mutation[In, Out], in In) (Out, error) {
	out, err := m.Do(ctx, in)
	mutationsTotal.WithLabelValues(m.Name, resultLabel(err)).Inc()
	if err != nil {
		e.log.Debug().Err(err).Str("mutation", m.Name).Msg("mutation failed")
		return out, err
	}
	if m.Effects != nil {
		e.Apply(m.Effects(in, out)...)
	}
	return out, nil
}

// Apply applies effects to the cache in order.
func (e *Executor) Apply(effects ...Effect) {
	for _, ef := range effects {
		switch ef.Kind {
		case EffectSet:
			e.store.Set(ef.Key, ef.Value, ef.Policy.StaleTime, ef.Policy.GCTime)
		case EffectInvalidate:
			e.Invalidate(ef.Key)
		case EffectRemove:
			e.store.Remove(ef.Key)
		case EffectClear:
			n := e.store.Clear()
			e.forgetAll()
			e.log.Debug().Int("entries", n).Msg("cache cleared")
		}
	}
}
