// Package apperr implements the error taxonomy shared across the server:
// NotFound, Unauthorized, Forbidden, Conflict, InvalidInput, Upstream,
// EncodeFailed, TranscoderUnavailable, Transient, Internal (spec.md §7).
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	NotFound              Kind = "NOT_FOUND"
	Unauthorized          Kind = "UNAUTHORIZED"
	Forbidden             Kind = "FORBIDDEN"
	Conflict              Kind = "CONFLICT"
	InvalidInput          Kind = "INVALID_INPUT"
	Upstream              Kind = "UPSTREAM"
	EncodeFailed          Kind = "ENCODE_FAILED"
	TranscoderUnavailable Kind = "TRANSCODER_UNAVAILABLE"
	Transient             Kind = "TRANSIENT"
	Internal              Kind = "INTERNAL"
)

// Error wraps a Kind and a human-readable message, with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given Kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a Kind to an existing error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err, defaulting to Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// StatusCode maps a Kind to its HTTP status per spec.md §7.
func StatusCode(kind Kind) int {
	switch kind {
	case NotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	case InvalidInput:
		return http.StatusBadRequest
	case Upstream, Transient:
		return http.StatusBadGateway
	case EncodeFailed:
		return http.StatusUnprocessableEntity
	case TranscoderUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var (
	ErrScanBusy = New(Conflict, "a scan is already running")
)
