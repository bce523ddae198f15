// Package apperr defines the error taxonomy shared by the VidShare services.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so transports can map it to a stable status.
type Kind string

const (
	KindValidation             Kind = "VALIDATION"
	KindUnauthorized           Kind = "UNAUTHORIZED"
	KindInvalidSession         Kind = "INVALID_SESSION"
	KindSessionRevokedOrReused Kind = "SESSION_REVOKED_OR_REUSED"
	KindForbidden              Kind = "FORBIDDEN"
	KindNotFound               Kind = "NOT_FOUND"
	KindConflict               Kind = "CONFLICT"
	KindInvalidOperation       Kind = "INVALID_OPERATION"
	KindPayloadTooLarge        Kind = "PAYLOAD_TOO_LARGE"
	KindInternal               Kind = "INTERNAL"
)

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrValidation             = &Error{Kind: KindValidation}
	ErrUnauthorized           = &Error{Kind: KindUnauthorized}
	ErrInvalidSession         = &Error{Kind: KindInvalidSession}
	ErrSessionRevokedOrReused = &Error{Kind: KindSessionRevokedOrReused}
	ErrForbidden              = &Error{Kind: KindForbidden}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrConflict               = &Error{Kind: KindConflict}
	ErrInvalidOperation       = &Error{Kind: KindInvalidOperation}
	ErrPayloadTooLarge        = &Error{Kind: KindPayloadTooLarge}
	ErrInternal               = &Error{Kind: KindInternal}
)

// Error is an application error carrying a kind, a caller-safe message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }

func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

func NotFound(message string) *Error { return New(KindNotFound, message) }

func Conflict(message string) *Error { return New(KindConflict, message) }

func InvalidOperation(message string) *Error { return New(KindInvalidOperation, message) }

func Forbidden(message string) *Error { return New(KindForbidden, message) }

func PayloadTooLarge(message string) *Error { return New(KindPayloadTooLarge, message) }

// Internal wraps a backing-service failure.
func Internal(message string, err error) *Error { return Wrap(KindInternal, message, err) }

// KindOf reports the kind of err, defaulting to KindInternal for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-safe message of err.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "internal error"
}
