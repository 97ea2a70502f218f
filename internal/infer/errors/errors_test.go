package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	infererrors "github.com/newspulse/enrich/internal/infer/errors"
)

// TestIsRetryable verifies the transient/fatal split that drives the retry
// discipline: network, timeout, 5xx, and rate limits retry; validation,
// auth, and unknown errors do not.
func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation error", &infererrors.ValidationError{Message: "bad shape"}, false},
		{"rate limit error", &infererrors.RateLimitError{Scope: "service", Limit: 150}, true},
		{"service 500", &infererrors.ServiceError{StatusCode: 500, Type: infererrors.ErrorTypeService}, true},
		{"service timeout", &infererrors.ServiceError{StatusCode: 504, Type: infererrors.ErrorTypeTimeout}, true},
		{"service auth", &infererrors.ServiceError{StatusCode: 401, Type: infererrors.ErrorTypeAuth}, false},
		{"service quota", &infererrors.ServiceError{StatusCode: 429, Type: infererrors.ErrorTypeQuota}, false},
		{"sentinel unavailable", infererrors.ErrServiceUnavailable, true},
		{"wrapped sentinel", fmt.Errorf("call failed: %w", infererrors.ErrRateLimitExceeded), true},
		{"wrapped validation", fmt.Errorf("handler: %w", &infererrors.ValidationError{Message: "x"}), false},
		{"network by string", stderrors.New("dial tcp: connection refused"), true},
		{"plain error", stderrors.New("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, infererrors.IsRetryable(tt.err))
		})
	}
}

// TestGetRetryAfter verifies retry guidance extraction through wrapping.
func TestGetRetryAfter(t *testing.T) {
	err := fmt.Errorf("call failed: %w", &infererrors.ServiceError{
		StatusCode: 429,
		Type:       infererrors.ErrorTypeRateLimit,
		RetryAfter: 7,
	})
	assert.Equal(t, 7*time.Second, infererrors.GetRetryAfter(err))

	assert.Zero(t, infererrors.GetRetryAfter(stderrors.New("no guidance")))
	assert.Zero(t, infererrors.GetRetryAfter(nil))
}

// TestClassifyStatus verifies code-first classification with status fallback.
func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		want   infererrors.ErrorType
	}{
		{"resource exhausted code wins", 429, "RESOURCE_EXHAUSTED", infererrors.ErrorTypeRateLimit},
		{"quota code on 429", 429, "QUOTA_EXCEEDED", infererrors.ErrorTypeQuota},
		{"deadline code", 200, "DEADLINE_EXCEEDED", infererrors.ErrorTypeTimeout},
		{"invalid argument", 400, "INVALID_ARGUMENT", infererrors.ErrorTypeValidation},
		{"status 429", 429, "", infererrors.ErrorTypeRateLimit},
		{"status 401", 401, "", infererrors.ErrorTypeAuth},
		{"status 400", 400, "", infererrors.ErrorTypeValidation},
		{"status 503", 503, "", infererrors.ErrorTypeService},
		{"status 599", 599, "", infererrors.ErrorTypeService},
		{"unclassified", 418, "", infererrors.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, infererrors.ClassifyStatus(tt.status, tt.code))
		})
	}
}
