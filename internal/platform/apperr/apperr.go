// Package apperr carries the error kinds shared by every module so the HTTP
// layer can pick a status code without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	Internal Kind = iota
	Invalid
	Unauthorized
	Forbidden
	NotFound
	Conflict
)

// Error is a classified, user-visible error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// New creates a classified error. Code is a stable machine-readable identifier.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Invalidf is a shorthand for ad-hoc validation failures.
func Invalidf(format string, args ...interface{}) *Error {
	return &Error{Kind: Invalid, Code: "INVALID_REQUEST", Message: fmt.Sprintf(format, args...)}
}

// NotFoundf is a shorthand for ad-hoc lookups that miss.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: NotFound, Code: "NOT_FOUND", Message: fmt.Sprintf(format, args...)}
}

// Conflictf is a shorthand for ad-hoc uniqueness failures.
func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: Conflict, Code: "CONFLICT", Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// HTTPStatus maps an error to a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Invalid:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
