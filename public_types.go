package client

import (
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/cache"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/query"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/session"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/types"
)

// Public type aliases so SDK consumers can import only the client package.
// Requests
type (
	RegisterRequest   = types.RegisterRequest
	LoginRequest      = types.LoginRequest
	CreateNoteRequest = types.CreateNoteRequest
	UpdateNoteRequest = types.UpdateNoteRequest
	ListNotesParams   = types.ListNotesParams

	// Domain entities
	User      = types.User
	Note      = types.Note
	NotePage  = types.NotePage
	Timestamp = types.Timestamp
	Time      = types.Time

	// Cache and session
	CacheKey      = cache.Key
	CacheStatus   = cache.Status
	Session       = session.Session
	SessionStatus = session.Status
	Policy        = query.Policy
	Policies      = query.Policies
	QueryOption   = query.QueryOption
)

// QueryResult is what ListNotes and GetNote return.
type QueryResult[T any] = query.Result[T]

// Session states.
const (
	SessionUnknown       = session.StatusUnknown
	SessionLoading       = session.StatusLoading
	SessionAuthenticated = session.StatusAuthenticated
	SessionAnonymous     = session.StatusAnonymous
)

// Entry states reported by QueryResult.Status.
const (
	StatusIdle    = cache.StatusIdle
	StatusLoading = cache.StatusLoading
	StatusSuccess = cache.StatusSuccess
	StatusError   = cache.StatusError
)

// DefaultPolicies returns the built-in freshness windows.
func DefaultPolicies() Policies { return query.DefaultPolicies() }

// Enabled gates a query; while fn reports false nothing is fetched.
func Enabled(fn func() bool) QueryOption { return query.Enabled(fn) }

// BlockOnStale makes a stale read wait for a fresh value.
func BlockOnStale() QueryOption { return query.BlockOnStale() }
