package llm

import (
	"errors"
	"fmt"
)

// Kind classifies a provider failure. Callers decide retry policy by
// Kind; the Retryable flag is the provider adapter's own suggestion for
// plain transient faults.
type Kind string

const (
	// KindMissingKey: no API key configured. Never retryable.
	KindMissingKey Kind = "missing_key"
	// KindAuth: the provider rejected the credentials. Never retryable.
	KindAuth Kind = "auth"
	// KindRateLimit: the provider reported quota exhaustion (HTTP 429).
	// Whether to back off and retry is the caller's policy.
	KindRateLimit Kind = "rate_limit"
	// KindTimeout: the call exceeded its deadline.
	KindTimeout Kind = "timeout"
	// KindNetwork: connection-level failure before a response arrived.
	KindNetwork Kind = "network"
	// KindUnavailable: the provider reported transient overload (HTTP 503).
	KindUnavailable Kind = "unavailable"
	// KindInvalid: the provider rejected the request as malformed.
	KindInvalid Kind = "invalid_request"
	// KindUnknown: unclassified failure; treated as possibly transient.
	KindUnknown Kind = "unknown"
)

// Error is a classified provider failure.
type Error struct {
	Kind      Kind
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind from err, or KindUnknown when err is not a
// classified *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports the adapter's transiency suggestion for err.
// Unclassified errors count as retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return true
}
