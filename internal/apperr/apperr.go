// Package apperr defines the error taxonomy shared by the store, worker,
// state machine, and HTTP layers (spec §7).
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the closed set of error classifications from spec §7.
type Kind string

const (
	KindBadRequest     Kind = "bad_request"
	KindNotFound       Kind = "not_found"
	KindInvalidState   Kind = "invalid_state"
	KindParseError     Kind = "parse_error"
	KindTransientStore Kind = "transient_store_error"
	KindTransientQueue Kind = "transient_queue_error"
	KindMirror         Kind = "mirror_error"
	KindInternal       Kind = "internal"
)

// Error wraps an underlying cause with a Kind so callers can discriminate
// without string-matching messages.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func BadRequest(format string, args ...interface{}) *Error {
	return New(KindBadRequest, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func InvalidState(format string, args ...interface{}) *Error {
	return New(KindInvalidState, fmt.Sprintf(format, args...))
}

func ParseError(format string, args ...interface{}) *Error {
	return New(KindParseError, fmt.Sprintf(format, args...))
}

// KindOf extracts the Kind from err, defaulting to internal when err isn't
// (or doesn't wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a Kind to the status code the HTTP boundary should emit.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindBadRequest, KindInvalidState, KindParseError:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindTransientStore, KindTransientQueue, KindInternal:
		return http.StatusInternalServerError
	case KindMirror:
		// mirror errors never propagate to HTTP; if one leaks, treat it
		// as internal rather than inventing a new status code.
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
