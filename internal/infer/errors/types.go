// Package errors defines the failure taxonomy for inference operations.
// Every error surfaced by the client is classified as transient (worth
// retrying with backoff) or fatal (certain to recur without changing the
// request), which drives the retry discipline of the whole pipeline.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType categorizes inference failures for retry classification.
// Types determine whether an operation should be retried and with what
// backoff strategy.
type ErrorType string

const (
	// ErrorTypeTimeout indicates request timeout or deadline exceeded (transient).
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeRateLimit indicates a rate limit was hit, retry with backoff (transient).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeNetwork indicates network connectivity issues (transient).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeService indicates the inference service is unavailable or
	// failed server-side (transient).
	ErrorTypeService ErrorType = "service_unavailable"

	// ErrorTypeValidation indicates the response failed structural schema
	// validation or the request was malformed (fatal).
	ErrorTypeValidation ErrorType = "validation_failed"

	// ErrorTypeAuth indicates authentication failed (fatal).
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypeQuota indicates the account quota is exhausted (fatal).
	ErrorTypeQuota ErrorType = "quota_exceeded"

	// ErrorTypeUnknown indicates an unclassified error (fatal by default).
	ErrorTypeUnknown ErrorType = "unknown"
)

// Common inference errors for consistent handling across packages.
var (
	// ErrServiceUnavailable indicates the inference service is down or unreachable.
	ErrServiceUnavailable = errors.New("inference service unavailable")

	// ErrRateLimitExceeded indicates a rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrCacheMiss indicates the requested entry was not found in the response cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidResponse indicates the service returned a response that could
	// not be parsed at all.
	ErrInvalidResponse = errors.New("invalid service response")

	// ErrEmptyResponse indicates the service returned a structurally valid but
	// empty result. This is not a failure; callers treat it as "not yet done".
	ErrEmptyResponse = errors.New("empty service response")
)

// ServiceError captures a structured error response from the inference service.
// It carries the HTTP status code, the service error code, and retry timing so
// the retry middleware can classify and pace its attempts.
type ServiceError struct {
	StatusCode int       `json:"status_code"` // HTTP status code
	Message    string    `json:"message"`     // Error message
	Code       string    `json:"code"`        // Service error code (e.g. "RESOURCE_EXHAUSTED")
	Type       ErrorType `json:"type"`        // Classified error type
	RetryAfter int       `json:"retry_after"` // Retry-After guidance in seconds
}

// Error returns the formatted service error with status code context.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("inference service error (status %d): %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the error is transient and warrants a retry.
func (e *ServiceError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeService:
		return true
	default:
		return false
	}
}

// GetRetryAfter returns the service-recommended wait before the next attempt,
// or zero when the service gave no guidance.
func (e *ServiceError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

// RateLimitError reports that an outbound call was denied by a rate limit.
// Scope distinguishes the process-wide sliding window from the local smoothing
// bucket and from service-side limits.
type RateLimitError struct {
	Scope      string `json:"scope"`       // "window", "local", or "service"
	Limit      int    `json:"limit"`       // Configured limit
	RetryAfter int    `json:"retry_after"` // Seconds to wait before retry
}

// Error returns the formatted rate limit error with retry guidance.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded, retry after %d seconds", e.Scope, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded", e.Scope)
}

// GetRetryAfter returns the recommended wait before the next attempt.
func (e *RateLimitError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

// ValidationError captures a structural mismatch between a response and its
// declared schema, or a malformed request. Validation errors are always fatal:
// re-issuing the identical request cannot change the outcome of validation,
// and silently coercing the payload would hide contract violations.
type ValidationError struct {
	Path    string `json:"path"`    // JSON path of the offending value
	Message string `json:"message"` // What failed
	Schema  string `json:"schema"`  // Declared schema description
}

// Error returns the formatted validation error with path context.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("schema validation failed at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("schema validation failed: %s", e.Message)
}

// IsRetryable reports whether an error is transient and should be retried.
// It examines typed errors first, then sentinel errors, then HTTP status
// codes, defaulting to non-retryable for unknown errors so fatal failures
// surface instead of looping.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return false
	}

	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return true
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.IsRetryable()
	}

	if errors.Is(err, ErrRateLimitExceeded) || errors.Is(err, ErrServiceUnavailable) {
		return true
	}

	type statusCoder interface {
		StatusCode() int
	}
	if sc, ok := err.(statusCoder); ok {
		code := sc.StatusCode()
		return code == http.StatusTooManyRequests ||
			code == http.StatusRequestTimeout ||
			code == http.StatusGatewayTimeout ||
			code >= http.StatusInternalServerError
	}

	return IsNetworkError(err)
}

// GetRetryAfter extracts service-provided retry timing from an error chain.
// Returns zero when no guidance is available.
func GetRetryAfter(err error) time.Duration {
	if err == nil {
		return 0
	}

	type afterProvider interface {
		GetRetryAfter() time.Duration
	}
	var provider afterProvider
	if errors.As(err, &provider) {
		return provider.GetRetryAfter()
	}

	return 0
}
