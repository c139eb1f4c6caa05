// Package dwnerrors defines the structured error taxonomy shared by every
// layer of the message-processing engine.
//
// Every failure the engine can produce is wrapped in an *EngineError before
// it crosses a package boundary, carrying a tagged Kind (used to pick the
// HTTP-aligned status code at the entry point), a machine-readable Code, and
// a human-readable Detail. Sentinel errors.New values are reserved for
// conditions that are always the same regardless of call-site context.
package dwnerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the purpose of status-code mapping. See
// SPEC_FULL.md section 7.
type Kind int

const (
	KindMalformed Kind = iota
	KindAuthenticationFailure
	KindAuthorizationFailure
	KindNotFound
	KindConflict
	KindStoreFailure
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "Malformed"
	case KindAuthenticationFailure:
		return "AuthenticationFailure"
	case KindAuthorizationFailure:
		return "AuthorizationFailure"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindStoreFailure:
		return "StoreFailure"
	default:
		return "Unknown"
	}
}

// StatusCode returns the HTTP-aligned status code for the error kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindMalformed:
		return 400
	case KindAuthenticationFailure:
		return 401
	case KindAuthorizationFailure:
		return 401
	case KindNotFound:
		// Treated as a malformed reference, not 404: the reference is under
		// the caller's control (a dangling parentId or grant id they supplied).
		return 400
	case KindConflict:
		return 409
	case KindStoreFailure:
		return 500
	default:
		return 500
	}
}

// EngineError is the single structured error type threaded through every
// layer of the engine.
type EngineError struct {
	Kind   Kind
	Code   string
	Detail string
	Cause  error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP-aligned status code for this error.
func (e *EngineError) StatusCode() int {
	return e.Kind.StatusCode()
}

// New builds an EngineError. code should be a stable machine-readable
// identifier such as "PermissionsRevokeUnauthorizedRevoke".
func New(kind Kind, code, detail string) *EngineError {
	return &EngineError{Kind: kind, Code: code, Detail: detail}
}

// Wrap builds an EngineError that carries an underlying cause.
func Wrap(kind Kind, code, detail string, cause error) *EngineError {
	return &EngineError{Kind: kind, Code: code, Detail: detail, Cause: cause}
}

// Malformed is a convenience constructor for the most common kind.
func Malformed(code, detail string) *EngineError {
	return New(KindMalformed, code, detail)
}

// AsEngineError extracts the *EngineError from err's chain, if any.
func AsEngineError(err error) (*EngineError, bool) {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// ErrTenantLockClosed is returned by the tenant-lock manager when a lock is
// acquired after the manager has been shut down.
var ErrTenantLockClosed = errors.New("tenant lock manager is closed")
