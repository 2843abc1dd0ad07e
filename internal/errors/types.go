// Package errors classifies transport failures for the client SDK.
// Every failure leaving the transport is a *ClassifiedError carrying one Kind,
// so callers can branch with errors.Is against the sentinels below.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is the category a failure was classified into.
type Kind int

const (
	// KindUnexpected covers statuses and failures outside the taxonomy
	// (400, 409, undecodable bodies).
	KindUnexpected Kind = iota
	// KindNetwork: the request never produced a response.
	KindNetwork
	// KindTimeout: the request exceeded the configured ceiling.
	KindTimeout
	// KindUnauthorized: 401. Drives session loss.
	KindUnauthorized
	// KindForbidden: 403.
	KindForbidden
	// KindNotFound: 404.
	KindNotFound
	// KindValidation: 422, with field detail when the server sends it.
	KindValidation
	// KindRateLimited: 429.
	KindRateLimited
	// KindServer: 5xx.
	KindServer
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "Network"
	case KindTimeout:
		return "Timeout"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "Validation"
	case KindRateLimited:
		return "RateLimited"
	case KindServer:
		return "Server"
	case KindUnexpected:
		return "Unexpected"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Sentinels matched by (*ClassifiedError).Is.
var (
	ErrNetwork      = stderrors.New("network error")
	ErrTimeout      = stderrors.New("request timed out")
	ErrUnauthorized = stderrors.New("unauthorized")
	ErrForbidden    = stderrors.New("forbidden")
	ErrNotFound     = stderrors.New("not found")
	ErrValidation   = stderrors.New("validation failed")
	ErrRateLimited  = stderrors.New("rate limited")
	ErrServer       = stderrors.New("server error")
	ErrUnexpected   = stderrors.New("unexpected response")
)

var sentinels = map[Kind]error{
	KindNetwork:      ErrNetwork,
	KindTimeout:      ErrTimeout,
	KindUnauthorized: ErrUnauthorized,
	KindForbidden:    ErrForbidden,
	KindNotFound:     ErrNotFound,
	KindValidation:   ErrValidation,
	KindRateLimited:  ErrRateLimited,
	KindServer:       ErrServer,
	KindUnexpected:   ErrUnexpected,
}

// FieldError is one entry of a 422 response's detail list.
type FieldError struct {
	Location []string
	Message  string
	Type     string
}

func (f FieldError) String() string {
	if len(f.Location) == 0 {
		return f.Message
	}
	return fmt.Sprintf("%s: %s", joinLoc(f.Location), f.Message)
}

// ClassifiedError wraps a failure with its category and server detail.
type ClassifiedError struct {
	Kind       Kind
	Op         string       // operation name, e.g. "GET /api/notes/"
	StatusCode int          // 0 for failures without a response
	Detail     string       // server-provided message, if any
	Fields     []FieldError // field-level detail for validation failures
	Body       string       // raw response body for debugging
	Underlying error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	msg := e.Detail
	if msg == "" && e.Underlying != nil {
		msg = e.Underlying.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] %s: HTTP %d: %s", e.Kind, e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, msg)
}

// Unwrap returns the underlying error for error chain compatibility.
func (e *ClassifiedError) Unwrap() error {
	return e.Underlying
}

// Is matches the sentinel for e.Kind.
func (e *ClassifiedError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// Retryable reports whether the kind is transient. Nothing inside the SDK
// retries; this only informs caller-side retry policies.
func (e *ClassifiedError) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindRateLimited, KindServer:
		return true
	default:
		return false
	}
}

// As extracts the *ClassifiedError from err's chain.
func As(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// KindOf returns the classified kind of err, or KindUnexpected.
func KindOf(err error) Kind {
	if ce, ok := As(err); ok {
		return ce.Kind
	}
	return KindUnexpected
}

// IsUnauthorized reports whether err is a classified 401.
func IsUnauthorized(err error) bool {
	return stderrors.Is(err, ErrUnauthorized)
}

// Retryable reports whether err is classified and transient.
func Retryable(err error) bool {
	if ce, ok := As(err); ok {
		return ce.Retryable()
	}
	return false
}

func joinLoc(loc []string) string {
	out := ""
	for i, p := range loc {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}
