package cache

import (
	"net/url"
	"strings"
)

// Key identifies one cached value: (resource, scope, params). It is a plain
// comparable struct, so two keys are equal exactly when all components are,
// and a Key can index a map directly. Params holds the canonical encoding of
// the parameter set (sorted by name), never the caller's map.
type Key struct {
	Resource string
	Scope    string
	Params   string
}

// NewKey builds a key; params may be nil.
func NewKey(resource, scope string, params map[string]string) Key {
	k := Key{Resource: resource, Scope: scope}
	if len(params) > 0 {
		v := url.Values{}
		for name, val := range params {
			v.Set(name, val)
		}
		k.Params = v.Encode()
	}
	return k
}

// KeyFromValues builds a key from already-collected query values.
func KeyFromValues(resource, scope string, v url.Values) Key {
	return Key{Resource: resource, Scope: scope, Params: v.Encode()}
}

// Prefix returns a key usable as an invalidation prefix. Empty components
// match anything.
func Prefix(resource, scope string) Key {
	return Key{Resource: resource, Scope: scope}
}

// HasPrefix reports whether k falls under prefix p. Each non-empty component of
// p must equal the corresponding component of k; a prefix with an empty
// Resource matches every key.
func (k Key) HasPrefix(p Key) bool {
	if p.Resource != "" && p.Resource != k.Resource {
		return false
	}
	if p.Scope != "" && p.Scope != k.Scope {
		return false
	}
	if p.Params != "" && p.Params != k.Params {
		return false
	}
	return true
}

// String renders the key as "resource/scope?params".
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Resource)
	if k.Scope != "" {
		b.WriteByte('/')
		b.WriteString(k.Scope)
	}
	if k.Params != "" {
		b.WriteByte('?')
		b.WriteString(k.Params)
	}
	return b.String()
}
