// Package apierr defines the error taxonomy shared across every component
// boundary: router resolution, HMAC authentication, secret lookup, upstream
// badge resolution, and test-result ingestion all return an *Error rather
// than a bare error, so the dispatcher can map failures to the right HTTP
// status without re-deriving the kind from string matching.
package apierr

import (
	"fmt"
	"net/http"
)

// Kind enumerates the error categories every component may return.
type Kind string

const (
	// KindValidation marks a malformed request (bad params, bad body shape).
	KindValidation Kind = "validation_error"
	// KindUnauthorized marks a signature, secret, or generic auth failure.
	// Never reveals which secret, nonce, or substring matched.
	KindUnauthorized Kind = "unauthorized"
	// KindMissingHeaders marks a required auth header missing or blank.
	KindMissingHeaders Kind = "missing_headers"
	// KindInvalidTimestamp marks an unparsable or out-of-skew X-Timestamp.
	KindInvalidTimestamp Kind = "invalid_timestamp"
	// KindNonceUsed marks a replayed nonce.
	KindNonceUsed Kind = "nonce_used"
	// KindNotFound marks a missing route or resource.
	KindNotFound Kind = "not_found"
	// KindConflict marks a duplicate write (e.g. a re-used run ID).
	KindConflict Kind = "conflict"
	// KindUnavailable marks an upstream or circuit-breaker outage.
	KindUnavailable Kind = "unavailable"
	// KindInternal marks an unexpected internal failure.
	KindInternal Kind = "internal_error"
)

// defaultStatus maps each Kind to its default HTTP status. Callers may
// override Status explicitly (e.g. badge handlers downgrade NotFound and
// Unavailable to 200 so Shields.io still renders a badge).
var defaultStatus = map[Kind]int{
	KindValidation:       http.StatusBadRequest,
	KindUnauthorized:     http.StatusUnauthorized,
	KindMissingHeaders:   http.StatusBadRequest,
	KindInvalidTimestamp: http.StatusBadRequest,
	KindNonceUsed:        http.StatusBadRequest,
	KindNotFound:         http.StatusNotFound,
	KindConflict:         http.StatusConflict,
	KindUnavailable:      http.StatusServiceUnavailable,
	KindInternal:         http.StatusInternalServerError,
}

// Detail is one structured validation failure, named the way spec.md's
// wire body `{message, details:[{code, field}]}` names its fields.
type Detail struct {
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// Error is the discriminated error result type threaded through every
// component boundary.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details []Detail
	cause   error
}

// New builds an Error for kind with the default HTTP status for that kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Status: defaultStatus[kind], Message: message}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// WithStatus overrides the HTTP status, used by handlers that downgrade a
// Kind's default status (badge endpoints return 200 for NotFound/Unavailable).
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// WithDetails attaches structured validation details.
func (e *Error) WithDetails(details ...Detail) *Error {
	e.Details = details
	return e
}

// WithCause wraps an underlying error for logging; it is never exposed to
// the client.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Error implements the error interface. The string includes Kind and the
// wrapped cause and is for logs; clients only ever see Message (via
// respond.Error), which must never contain secret-, nonce-, or
// signature-derived substrings for auth failures.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Internal builds a 500 Error, wrapping cause for logs but keeping the
// client-visible message generic.
func Internal(cause error) *Error {
	return New(KindInternal, "internal error").WithCause(cause)
}

// Unauthorized builds a generic 401 Error. Per spec.md §4.4, auth failures
// never reveal which secret, nonce, or substring matched.
func Unauthorized() *Error {
	return New(KindUnauthorized, "unauthorized")
}
