package client

import (
	"errors"

	clienterrors "github.com/galib-hossain-meraz/youtube-notes/client/internal/errors"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/shardqueue"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/types"
)

// Re-export the classified error so callers compare against a single symbol.
type (
	ClassifiedError = clienterrors.ClassifiedError
	ErrorKind       = clienterrors.Kind
	FieldError      = clienterrors.FieldError
)

// Error kinds.
const (
	KindUnexpected   = clienterrors.KindUnexpected
	KindNetwork      = clienterrors.KindNetwork
	KindTimeout      = clienterrors.KindTimeout
	KindUnauthorized = clienterrors.KindUnauthorized
	KindForbidden    = clienterrors.KindForbidden
	KindNotFound     = clienterrors.KindNotFound
	KindValidation   = clienterrors.KindValidation
	KindRateLimited  = clienterrors.KindRateLimited
	KindServer       = clienterrors.KindServer
)

// Sentinels matched with errors.Is.
var (
	ErrNetwork      = clienterrors.ErrNetwork
	ErrTimeout      = clienterrors.ErrTimeout
	ErrUnauthorized = clienterrors.ErrUnauthorized
	ErrForbidden    = clienterrors.ErrForbidden
	ErrNotFound     = clienterrors.ErrNotFound
	ErrValidation   = clienterrors.ErrValidation
	ErrRateLimited  = clienterrors.ErrRateLimited
	ErrServer       = clienterrors.ErrServer
	ErrUnexpected   = clienterrors.ErrUnexpected

	// ErrInvalidArgument is returned before any request when input fails
	// client-side validation.
	ErrInvalidArgument = types.ErrInvalidArgument
)

// ErrBackPressure is returned when the background revalidation queue is full.
var ErrBackPressure = shardqueue.ErrQueueFull

// IsBackPressure reports whether err is a back-pressure error.
func IsBackPressure(err error) bool { return errors.Is(err, ErrBackPressure) }

// KindOf returns the classification of err, KindUnexpected when err was not
// produced by the transport.
func KindOf(err error) ErrorKind { return clienterrors.KindOf(err) }

// IsUnauthorized reports whether err is a 401.
func IsUnauthorized(err error) bool { return clienterrors.IsUnauthorized(err) }

// IsRetryable reports whether repeating the call may succeed: network,
// timeout, rate-limit and server failures.
func IsRetryable(err error) bool { return clienterrors.Retryable(err) }
