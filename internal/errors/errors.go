// Package errors defines the error taxonomy for the divrisk pipeline:
// typed upstream fetch errors that drive retry and circuit-breaker
// decisions, and structured API errors for the HTTP surface.
package errors

import (
	"errors"
	"fmt"
)

// FetchErrorKind classifies upstream API failures.
type FetchErrorKind string

const (
	// KindAuth is a 401: invalid or missing API key. Never retried.
	KindAuth FetchErrorKind = "auth"
	// KindPlan is a 402/403: endpoint not covered by the plan. Never retried.
	KindPlan FetchErrorKind = "plan"
	// KindRateLimit is a 429. Retried by the outer loop, feeds the
	// consecutive-429 circuit breaker.
	KindRateLimit FetchErrorKind = "rate_limit"
	// KindServer is a 5xx. Retried with backoff.
	KindServer FetchErrorKind = "server"
	// KindNoData means the endpoint answered but returned nothing usable.
	KindNoData FetchErrorKind = "no_data"
)

// FetchError is a typed upstream API failure.
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %d %s (%s)", e.Endpoint, e.StatusCode, e.Message, e.Kind)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Endpoint, e.Message, e.Kind)
}

// NewFetchError creates a typed fetch error.
func NewFetchError(kind FetchErrorKind, statusCode int, endpoint, message string) *FetchError {
	return &FetchError{Kind: kind, StatusCode: statusCode, Endpoint: endpoint, Message: message}
}

// NoDataError reports an empty upstream response for an endpoint.
func NoDataError(endpoint, message string) *FetchError {
	return &FetchError{Kind: KindNoData, Endpoint: endpoint, Message: message}
}

// IsKind reports whether err is a FetchError of the given kind.
func IsKind(err error, kind FetchErrorKind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == kind
}

// IsRateLimit reports whether err is an upstream 429.
func IsRateLimit(err error) bool { return IsKind(err, KindRateLimit) }

// IsAuth reports whether err is an upstream 401.
func IsAuth(err error) bool { return IsKind(err, KindAuth) }

// IsPlan reports whether err is an upstream 402/403.
func IsPlan(err error) bool { return IsKind(err, KindPlan) }

// IsNoData reports whether err is an empty-response error.
func IsNoData(err error) bool { return IsKind(err, KindNoData) }

// IsRetryable reports whether the client retry loop may retry err.
// Rate limits are excluded: the batch runner owns 429 handling.
func IsRetryable(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Kind == KindServer
}

// IsHard reports whether err should abort work on the current ticker
// immediately (no point continuing with a bad key or plan).
func IsHard(err error) bool {
	return IsAuth(err) || IsPlan(err)
}
