package notion

import (
	"errors"
	"fmt"
)

// ── Error taxonomy ─────────────────────────────────────────
// Every failure surfaced by the client carries a Kind plus a
// human-readable message suitable for direct display. Retryable
// kinds are recovered internally up to the policy's attempt cap;
// everything else surfaces immediately.

// Kind classifies a client failure.
type Kind string

const (
	KindAuth        Kind = "auth_error"       // bad or missing credential
	KindNotFound    Kind = "not_found"        // missing page/database/user
	KindValidation  Kind = "validation_error" // malformed filter/schema/value
	KindRateLimited Kind = "rate_limited"     // HTTP 429
	KindServer      Kind = "server_error"     // HTTP 5xx
	KindNetwork     Kind = "network_error"    // transport failure or timeout
	KindSchema      Kind = "schema_error"     // unsupported remote property type
)

// Error is the structured error returned by the client layer.
type Error struct {
	Kind    Kind
	Message string

	// Attempts is the number of HTTP attempts made before the error
	// became terminal. Zero for errors raised before any request.
	Attempts int
}

func (e *Error) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s (after %d attempts): %s", e.Kind, e.Attempts, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// retryable reports whether the policy may recover this kind.
func (e *Error) retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindServer, KindNetwork:
		return true
	default:
		return false
	}
}

// NewError builds a client error with a formatted message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, or empty if err is not a client error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is a client error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
