package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind classifies provider failures. The retry controller retries only
// RateLimited, Timeout, and ConnectionFailure; the rest propagate
// immediately.
type ErrorKind int

const (
	// KindFatal covers non-transient provider rejections (malformed request,
	// unknown model, empty response). Not retried.
	KindFatal ErrorKind = iota
	// KindRateLimited means the backend throttled the request (HTTP 429).
	KindRateLimited
	// KindTimeout means the call exceeded its deadline.
	KindTimeout
	// KindConnection covers network failures and transient server errors.
	KindConnection
	// KindAuth means the API key was rejected. Not retried.
	KindAuth
)

// String returns the kind's wire name.
func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection_failure"
	case KindAuth:
		return "auth_invalid"
	case KindFatal:
		return "fatal_provider_error"
	default:
		return "unknown"
	}
}

// Retryable reports whether the retry controller may attempt the call again.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimited, KindTimeout, KindConnection:
		return true
	default:
		return false
	}
}

// Error is a classified provider failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError wraps err with a kind, preserving an existing classification.
func newError(kind ErrorKind, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the classification from err, falling back to message
// pattern matching for errors the adapters could not type.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return classify(err)
}

// Pattern groups matched case-insensitively against err.Error().
//
// NOTE: string matching is a documented exception to the rule against
// strings.Contains(err.Error(), ...): the provider SDKs do not expose typed
// errors for every transient failure mode.
var (
	rateLimitPatterns  = []string{"rate limit", "quota exceeded", "resource exhausted", "429"}
	timeoutPatterns    = []string{"timeout", "deadline exceeded", "deadline_exceeded"}
	connectionPatterns = []string{"connection reset", "connection refused", "no such host", "broken pipe", "unexpected eof", "500", "502", "503", "504", "unavailable"}
	authPatterns       = []string{"api key", "unauthorized", "permission denied", "401", "403", "invalid authentication"}
)

// classify maps an untyped error onto the taxonomy.
func classify(err error) ErrorKind {
	if err == nil {
		return KindFatal
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindConnection
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, rateLimitPatterns):
		return KindRateLimited
	case containsAny(msg, timeoutPatterns):
		return KindTimeout
	case containsAny(msg, authPatterns):
		return KindAuth
	case containsAny(msg, connectionPatterns):
		return KindConnection
	default:
		return KindFatal
	}
}

// classifyStatus maps an HTTP status code onto the taxonomy.
func classifyStatus(code int) ErrorKind {
	switch {
	case code == 429:
		return KindRateLimited
	case code == 401 || code == 403:
		return KindAuth
	case code == 408 || code == 504:
		return KindTimeout
	case code >= 500:
		return KindConnection
	default:
		return KindFatal
	}
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
