package authz

import (
	"fmt"
	"net/http"
)

// Kind classifies a domain error. Callers dispatch on kind, never on the
// concrete message.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindAlreadyExists
	KindInvalidInput
	KindUnauthorized
	KindPermissionAssigned
	KindPermissionNotInGroup
)

// Error is the tagged domain error used across the authorization model. It
// carries an HTTP status hint so the transport boundary can map errors
// without knowing individual messages.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Status returns the HTTP status hint for the error's kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindNotFound, KindPermissionNotInGroup:
		return http.StatusNotFound
	case KindAlreadyExists:
		return http.StatusConflict
	case KindInvalidInput, KindPermissionAssigned:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Is matches errors by kind, so errors.Is(err, ErrNotFound) holds for every
// not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Kind sentinels for errors.Is checks.
var (
	ErrInternal             = &Error{Kind: KindInternal, Message: "internal error"}
	ErrNotFound             = &Error{Kind: KindNotFound, Message: "not found"}
	ErrAlreadyExists        = &Error{Kind: KindAlreadyExists, Message: "already exists"}
	ErrInvalidInput         = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrUnauthorized         = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrPermissionAssigned   = &Error{Kind: KindPermissionAssigned, Message: "permission already assigned"}
	ErrPermissionNotInGroup = &Error{Kind: KindPermissionNotInGroup, Message: "permission not found in group"}
)

func errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func internalf(format string, args ...any) *Error {
	return errf(KindInternal, format, args...)
}

func notFoundf(format string, args ...any) *Error {
	return errf(KindNotFound, format, args...)
}

func conflictf(format string, args ...any) *Error {
	return errf(KindAlreadyExists, format, args...)
}

func invalidf(format string, args ...any) *Error {
	return errf(KindInvalidInput, format, args...)
}

func unauthorizedf(format string, args ...any) *Error {
	return errf(KindUnauthorized, format, args...)
}
