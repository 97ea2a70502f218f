package errors

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// ClassifyStatus maps an HTTP status and service error code to an ErrorType.
// The service error code takes precedence over the status code because the
// service distinguishes quota exhaustion from rate limiting on the same 429.
func ClassifyStatus(statusCode int, errorCode string) ErrorType {
	lowerCode := strings.ToLower(errorCode)
	switch {
	case strings.Contains(lowerCode, "resource_exhausted"), strings.Contains(lowerCode, "rate"):
		return ErrorTypeRateLimit
	case strings.Contains(lowerCode, "deadline"), strings.Contains(lowerCode, "timeout"):
		return ErrorTypeTimeout
	case strings.Contains(lowerCode, "unauthenticated"), strings.Contains(lowerCode, "auth"):
		return ErrorTypeAuth
	case strings.Contains(lowerCode, "quota"):
		return ErrorTypeQuota
	case strings.Contains(lowerCode, "invalid_argument"):
		return ErrorTypeValidation
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrorTypeAuth
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case http.StatusBadRequest:
		return ErrorTypeValidation
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return ErrorTypeService
	default:
		if statusCode >= http.StatusInternalServerError {
			return ErrorTypeService
		}
		return ErrorTypeUnknown
	}
}

// IsNetworkError reports whether an error is a network-level failure using
// type assertions, falling back to string patterns for errors that reach us
// untyped through wrapping layers.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var netErr net.Error
		if errors.As(urlErr.Err, &netErr) {
			return netErr.Timeout()
		}
		return isNetworkErrorByString(urlErr.Err.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return isNetworkErrorByString(err.Error())
}

// isNetworkErrorByString checks for network failures using pre-lowercased patterns.
func isNetworkErrorByString(errStr string) bool {
	lowered := strings.ToLower(errStr)
	for _, indicator := range networkErrorIndicators {
		if strings.Contains(lowered, indicator) {
			return true
		}
	}
	return false
}

var networkErrorIndicators = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"eof",
}
