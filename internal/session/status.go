package session

import (
	"fmt"

	"github.com/galib-hossain-meraz/youtube-notes/client/internal/cache"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/types"
)

// Status is the authentication state of the process.
type Status int

const (
	StatusUnknown Status = iota
	StatusLoading
	StatusAuthenticated
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Session is a snapshot of the current state. Identity is set only while
// Status is StatusAuthenticated.
type Session struct {
	Identity *types.User
	Status   Status
}

// Authenticated reports whether a user is signed in.
func (s Session) Authenticated() bool { return s.Status == StatusAuthenticated }

// Listener receives every session change.
type Listener func(Session)

// IdentityKey is the cache key of the current-user entry.
var IdentityKey = cache.NewKey("users", "me", nil)
