package types

import (
	"errors"
	"fmt"
)

// ErrorKind buckets every propagated failure so the presentation layer can
// render distinct guidance per category.
type ErrorKind string

const (
	ErrKindValidation ErrorKind = "validation"
	ErrKindAuth       ErrorKind = "auth"
	ErrKindNotFound   ErrorKind = "not_found"
	ErrKindRateLimit  ErrorKind = "rate_limit"
	ErrKindTimeout    ErrorKind = "timeout"
	ErrKindParse      ErrorKind = "parse"
	ErrKindUnknown    ErrorKind = "unknown"
)

// TriageError is a typed error carrying a taxonomy kind, a human-readable
// message, and whether a retry could plausibly succeed.
type TriageError struct {
	Kind      ErrorKind
	Message   string
	Retryable bool
	Err       error // wrapped cause, may be nil
}

func (e *TriageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause for errors.Is/As chains
func (e *TriageError) Unwrap() error {
	return e.Err
}

// NewValidationError reports malformed input. Never retryable.
func NewValidationError(format string, args ...any) *TriageError {
	return &TriageError{Kind: ErrKindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewAuthError reports an invalid or under-privileged credential.
func NewAuthError(message string, cause error) *TriageError {
	return &TriageError{Kind: ErrKindAuth, Message: message, Err: cause}
}

// NewNotFoundError reports a missing remote entity.
func NewNotFoundError(message string, cause error) *TriageError {
	return &TriageError{Kind: ErrKindNotFound, Message: message, Err: cause}
}

// NewRateLimitError reports a rate-limited call. Retryable.
func NewRateLimitError(message string, cause error) *TriageError {
	return &TriageError{Kind: ErrKindRateLimit, Message: message, Retryable: true, Err: cause}
}

// NewTimeoutError reports an expired per-call deadline. Retryable.
func NewTimeoutError(message string, cause error) *TriageError {
	return &TriageError{Kind: ErrKindTimeout, Message: message, Retryable: true, Err: cause}
}

// NewParseError reports structurally unusable model output. The caller
// decides between fallback and surfacing; never guess silently.
func NewParseError(message string, cause error) *TriageError {
	return &TriageError{Kind: ErrKindParse, Message: message, Err: cause}
}

// NewUnknownError wraps an unclassified failure.
func NewUnknownError(message string, cause error) *TriageError {
	return &TriageError{Kind: ErrKindUnknown, Message: message, Err: cause}
}

// KindOf extracts the taxonomy kind from any error in the chain.
// Unclassified errors report ErrKindUnknown.
func KindOf(err error) ErrorKind {
	var te *TriageError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ErrKindUnknown
}

// IsRetryable reports whether any error in the chain is marked retryable.
func IsRetryable(err error) bool {
	var te *TriageError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return false
}
