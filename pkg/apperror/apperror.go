// Package apperror carries the account service error taxonomy and its HTTP mapping.
package apperror

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation         Kind = "VALIDATION_ERROR"
	KindDuplicate          Kind = "DUPLICATE"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindUnknownField       Kind = "UNKNOWN_FIELD"
	KindInvalidImage       Kind = "INVALID_IMAGE"
	KindPersistence        Kind = "PERSISTENCE_ERROR"
	KindInternal           Kind = "INTERNAL_ERROR"
)

var statusByKind = map[Kind]int{
	KindValidation:         http.StatusBadRequest,
	KindDuplicate:          http.StatusBadRequest,
	KindInvalidCredentials: http.StatusBadRequest,
	KindUnauthorized:       http.StatusUnauthorized,
	// role failures answer 400 to stay compatible with existing clients
	KindForbidden:    http.StatusBadRequest,
	KindNotFound:     http.StatusNotFound,
	KindUnknownField: http.StatusBadRequest,
	KindInvalidImage: http.StatusBadRequest,
	KindPersistence:  http.StatusInternalServerError,
	KindInternal:     http.StatusInternalServerError,
}

// HTTPStatus returns the response status for the kind.
func (k Kind) HTTPStatus() int {
	if s, ok := statusByKind[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Public reports whether the message may be shown to API clients.
func (k Kind) Public() bool {
	return k.HTTPStatus() < http.StatusInternalServerError
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error of the same kind and message, so sentinels can be compared with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Message == "" || e.Message == t.Message)
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// KindOf returns the kind of err, KindInternal for untyped errors.
func KindOf(err error) Kind {
	if e := As(err); e != nil {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
