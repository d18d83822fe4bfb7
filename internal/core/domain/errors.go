package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// DomainError represents a client-side error with a structured error code.
// Codes follow RC-<AREA>-<NNNN>, where the numeric part mirrors the HTTP
// status family the condition is closest to.
type DomainError struct {
	Code    string // Error code (e.g., "RC-AUTH-4010")
	Message string // Human-readable message
	Details string // Optional additional details
	Status  int    // HTTP status that produced the error, 0 when none
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// WithStatus returns a copy of the error carrying the HTTP status.
func (e *DomainError) WithStatus(status int) *DomainError {
	c := *e
	c.Status = status
	return &c
}

// ============================================================================
// Request Errors (REQ)
// ============================================================================

var (
	// ErrClientRejected indicates the backend answered with a 4xx other than 401.
	// Terminal: never retried.
	ErrClientRejected = NewDomainError("RC-REQ-4000", "request rejected")

	// ErrTransient indicates a timeout, network failure, 5xx, or an
	// undecodable success body. Retried by the request engine.
	ErrTransient = NewDomainError("RC-REQ-5030", "transient failure")

	// ErrRetriesExhausted indicates every attempt failed transiently.
	ErrRetriesExhausted = NewDomainError("RC-REQ-5031", "retries exhausted")
)

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrSessionExpired indicates the backend rejected the credentials (401)
	// or the session could not be refreshed. Stored credentials are purged.
	ErrSessionExpired = NewDomainError("RC-AUTH-4010", "session expired")

	// ErrRefreshDenied indicates the refresh exchange was refused.
	ErrRefreshDenied = NewDomainError("RC-AUTH-4011", "refresh denied")

	// ErrNotLoggedIn indicates no session is stored locally.
	ErrNotLoggedIn = NewDomainError("RC-AUTH-4012", "not logged in")
)

// ============================================================================
// Bridge Errors (BRG)
// ============================================================================

var (
	// ErrChannelUnavailable indicates the page bridge could not be reached
	// or closed while a call was pending.
	ErrChannelUnavailable = NewDomainError("RC-BRG-5030", "page channel unavailable")

	// ErrBridgeTimeout indicates a bridge call received no reply in time.
	ErrBridgeTimeout = NewDomainError("RC-BRG-5040", "page channel timeout")
)

// ============================================================================
// System and Argument Errors (SYS, ARG)
// ============================================================================

var (
	// ErrStorage indicates a credential store failure.
	ErrStorage = NewDomainError("RC-SYS-5001", "storage error")

	// ErrInvalidArgument indicates a locally rejected input.
	ErrInvalidArgument = NewDomainError("RC-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("RC-ARG-1002", "missing required argument")
)

// Kind is the engine-level failure taxonomy.
type Kind int

const (
	KindNone Kind = iota
	KindClientRejected
	KindSessionExpired
	KindRefreshDenied
	KindTransient
	KindRetriesExhausted
	KindChannelUnavailable
	KindValidation
	KindOther
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindClientRejected:
		return "client_rejected"
	case KindSessionExpired:
		return "session_expired"
	case KindRefreshDenied:
		return "refresh_denied"
	case KindTransient:
		return "transient"
	case KindRetriesExhausted:
		return "retries_exhausted"
	case KindChannelUnavailable:
		return "channel_unavailable"
	case KindValidation:
		return "validation"
	default:
		return "other"
	}
}

// KindOf classifies err. SessionExpired wins over RefreshDenied when an error
// carries both, since only the former drives navigation.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrSessionExpired):
		return KindSessionExpired
	case errors.Is(err, ErrRefreshDenied):
		return KindRefreshDenied
	case errors.Is(err, ErrRetriesExhausted):
		return KindRetriesExhausted
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, ErrClientRejected):
		return KindClientRejected
	case errors.Is(err, ErrChannelUnavailable), errors.Is(err, ErrBridgeTimeout):
		return KindChannelUnavailable
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrMissingArgument):
		return KindValidation
	default:
		return KindOther
	}
}

// Cause is the user-facing category of a failure.
type Cause string

const (
	CauseNetwork  Cause = "network"
	CauseTimeout  Cause = "timeout"
	CauseAuth     Cause = "auth"
	CauseServer   Cause = "server"
	CauseNotFound Cause = "not_found"
	CauseUnknown  Cause = "unknown"
)

var causeMessages = map[Cause]string{
	CauseNetwork:  "Cannot connect to server. Check your internet connection.",
	CauseTimeout:  "Request timed out. Please try again.",
	CauseAuth:     "Session expired. Please log in again.",
	CauseServer:   "Server error. Please try again later.",
	CauseNotFound: "Resource not found. Please try again.",
	CauseUnknown:  "Something went wrong. Please try again.",
}

// CauseOf infers the category of err from the wrapped status and error chain.
func CauseOf(err error) Cause {
	if err == nil {
		return CauseUnknown
	}
	if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrRefreshDenied) || errors.Is(err, ErrNotLoggedIn) {
		return CauseAuth
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrBridgeTimeout) {
		return CauseTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return CauseTimeout
	}

	var de *DomainError
	for e := err; errors.As(e, &de); e = de.Cause {
		switch {
		case de.Status == 401:
			return CauseAuth
		case de.Status == 404:
			return CauseNotFound
		case de.Status >= 500:
			return CauseServer
		}
	}

	if errors.As(err, &ne) || errors.Is(err, ErrChannelUnavailable) {
		return CauseNetwork
	}
	if strings.Contains(strings.ToLower(err.Error()), "connection refused") {
		return CauseNetwork
	}
	return CauseUnknown
}

// CauseMessage returns the fixed user-facing message for a cause.
func CauseMessage(c Cause) string {
	if msg, ok := causeMessages[c]; ok {
		return msg
	}
	return causeMessages[CauseUnknown]
}

// UserMessage renders err for the terminal. Rejections keep the backend's own
// explanation when it sent one; local validation keeps its details.
func UserMessage(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		switch {
		case (errors.Is(err, ErrClientRejected) && de.Status != 404) || KindOf(err) == KindValidation:
			if de.Details != "" {
				return de.Details
			}
			return de.Message
		}
	}
	return CauseMessage(CauseOf(err))
}
