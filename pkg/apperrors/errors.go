// Package apperrors defines the error taxonomy shared by services and
// handlers. Every failed operation surfaces one of the kinds below together
// with a human-readable message; validation and conflict errors additionally
// carry the offending field path.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and for HTTP status mapping.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindWorkflowState       Kind = "workflow_state"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindTimeout             Kind = "timeout"
	KindPermission          Kind = "permission"
	KindInternal            Kind = "internal"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Field   string // offending field path for validation/conflict errors
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field: %s)", msg, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is makes sentinel comparison work: errors.Is(err, apperrors.ErrNotFound)
// matches any *Error with the not_found kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinel instances for the common kinds. Use with errors.Is when the
// caller only cares about the classification.
var (
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict            = &Error{Kind: KindConflict, Message: "conflict"}
	ErrValidation          = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrWorkflowState       = &Error{Kind: KindWorkflowState, Message: "transition not allowed"}
	ErrProviderUnavailable = &Error{Kind: KindProviderUnavailable, Message: "no translation provider available"}
	ErrTimeout             = &Error{Kind: KindTimeout, Message: "operation timed out"}
	ErrPermission          = &Error{Kind: KindPermission, Message: "permission denied"}
)

// Validation builds a validation error for the given field path.
func Validation(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...), Field: field}
}

// NotFound builds a not_found error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a conflict error for the given field path.
func Conflict(field, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...), Field: field}
}

// WorkflowState builds a workflow_state error.
func WorkflowState(format string, args ...any) *Error {
	return &Error{Kind: KindWorkflowState, Message: fmt.Sprintf(format, args...)}
}

// ProviderUnavailable builds a provider_unavailable error wrapping the last
// provider failure.
func ProviderUnavailable(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindProviderUnavailable, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Timeout builds a timeout error.
func Timeout(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindTimeout, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Permission builds a permission error.
func Permission(format string, args ...any) *Error {
	return &Error{Kind: KindPermission, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unclassified persistence or infrastructure failure.
func Internal(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the kind from any error. Unclassified errors report
// KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
