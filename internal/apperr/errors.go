// Package apperr defines the error taxonomy returned by the data-access core.
// Store-specific failures are translated into one of these kinds at the
// repository boundary so callers never see backend codes.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindTransient  Kind = "transient"
	KindInvariant  Kind = "invariant"
	KindAuth       Kind = "auth"
)

// Sentinels for errors.Is. Matching compares Kind only.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrTransient  = &Error{Kind: KindTransient}
	ErrInvariant  = &Error{Kind: KindInvariant}
	ErrAuth       = &Error{Kind: KindAuth}
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return t.Kind == e.Kind
}

// Validation reports malformed or missing input.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: "validation_failed", Message: message}
}

// Conflict reports a failed uniqueness guard.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Code: "identity_exists", Message: message}
}

// VersionConflict reports a lost race on a version-guarded update.
func VersionConflict(message string) *Error {
	return &Error{Kind: KindConflict, Code: "version_conflict", Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: "not_found", Message: message}
}

// InvalidToken is the single opaque failure for reset-token redemption.
func InvalidToken() *Error {
	return &Error{Kind: KindNotFound, Code: "invalid_token", Message: "invalid or expired token"}
}

func InvalidCredentials() *Error {
	return &Error{Kind: KindAuth, Code: "invalid_credentials", Message: "invalid username or password"}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindAuth, Code: "unauthorized", Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindAuth, Code: "forbidden", Message: message}
}

// Transient wraps a store or network failure that is safe to retry.
func Transient(op string, err error) *Error {
	return &Error{Kind: KindTransient, Code: "storage_unavailable", Message: op, Err: err}
}

// Invariant reports a should-never-happen state. It is a bug, not a user error.
func Invariant(message string) *Error {
	return &Error{Kind: KindInvariant, Code: "invariant_violation", Message: message}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
