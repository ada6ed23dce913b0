// Package apperr defines the typed errors surfaced to API and CLI callers.
// Each carries a stable public code; the HTTP layer maps its Kind to a
// status.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is the category of an error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindExternal
)

// Public error codes.
const (
	CodeMissingImage      = "MISSING_IMAGE"
	CodeInvalidType       = "INVALID_TYPE"
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeIncompleteAddress = "INCOMPLETE_ADDRESS"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeNotFound          = "NOT_FOUND"
	CodeAnalysisFailed    = "ANALYSIS_FAILED"
)

// Error is an application error with a public code and message. Err holds
// detail that is logged but never shown to callers.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		if e.Code == CodeFileTooLarge {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Validation creates a caller error that should not be retried.
func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NotFound creates a missing-resource error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: message}
}

// AnalysisFailed wraps an unrecovered failure with a retry hint.
func AnalysisFailed(err error) *Error {
	kind := KindInternal
	if errors.As(err, new(*Error)) {
		kind = KindOf(err)
	} else if err != nil {
		kind = KindExternal
	}
	return &Error{
		Kind:    kind,
		Code:    CodeAnalysisFailed,
		Message: "analysis could not be completed, please try again shortly",
		Err:     err,
	}
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeAnalysisFailed, Message: "internal error", Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the public code for err, defaulting to ANALYSIS_FAILED.
func CodeOf(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeAnalysisFailed
}
