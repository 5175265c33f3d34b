// Package errkind gives every component in Livermore a shared vocabulary
// for classifying failures, so a top-level orchestrator (the warmup
// service, the control channel) can decide whether to record-and-continue
// or abort without type-asserting against package-specific error types.
package errkind

import "fmt"

// Kind classifies an error per the propagation policy.
type Kind string

const (
	Transient         Kind = "transient"          // network / 5xx, retry with backoff
	RateLimited       Kind = "rate_limited"        // 429, honour server hint or back off
	Geo               Kind = "geo_restricted"      // HTTP 451, fatal for the exchange
	Auth              Kind = "auth"                // authentication failure, do not retry
	InvalidTransition Kind = "invalid_transition"   // FSM rejected a command
	CacheCorrupt      Kind = "cache_corrupt"        // parse error reading a cache blob
	DuplicateAlert    Kind = "duplicate_alert"      // unique-violation on alert insert
	SchemaViolation   Kind = "schema_violation"     // settings JSONB failed migration
)

// Error wraps a cause with a Kind so callers can branch on it.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// Is reports whether err (or anything it wraps) is of the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Cause
			continue
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Retryable reports whether the orchestrator should retry this error with
// backoff rather than abort immediately.
func Retryable(err error) bool {
	return Is(err, Transient) || Is(err, RateLimited)
}

// Fatal reports whether the error should stop the exchange's adapter
// entirely (geo-restriction, auth failure) rather than retry.
func Fatal(err error) bool {
	return Is(err, Geo) || Is(err, Auth)
}
