package api

import (
	"context"
	"net/url"
)

// Requester is the transport surface the resource functions need. It is
// satisfied by *transport.Transport and by fakes in tests.
type Requester interface {
	Do(ctx context.Context, method, path string, query url.Values, body, out any) error
}

// Endpoint templates.
const (
	pathRegister = "/api/users/register"
	pathLogin    = "/api/users/login"
	pathLogout   = "/api/users/logout"
	pathMe       = "/api/users/me"
	pathRefresh  = "/api/users/refresh"
	pathNotes    = "/api/notes/"
	pathNoteByID = "/api/notes/%d"
)

// Paths exempt from forced session loss: a 401 there means "bad credentials",
// not "session expired".
var credentialPaths = map[string]bool{
	pathLogin:    true,
	pathRegister: true,
}

// IsCredentialPath reports whether path is the login or register endpoint.
func IsCredentialPath(path string) bool { return credentialPaths[path] }

// IsIdentityPath reports whether path is the current-identity probe.
func IsIdentityPath(path string) bool { return path == pathMe }
