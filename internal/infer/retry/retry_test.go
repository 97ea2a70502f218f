package retry_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infererrors "github.com/newspulse/enrich/internal/infer/errors"
	"github.com/newspulse/enrich/internal/infer/retry"
	"github.com/newspulse/enrich/internal/infer/transport"
)

func fastConfig() retry.Config {
	return retry.Config{
		InitialInterval: time.Millisecond,
		MinInterval:     time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
		Multiplier:      2.0,
		UseJitter:       false,
	}
}

// TestNewMiddleware_ConfigValidation verifies that malformed retry policies
// are rejected at construction instead of misbehaving at call time.
func TestNewMiddleware_ConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*retry.Config)
	}{
		{"zero initial interval", func(c *retry.Config) { c.InitialInterval = 0 }},
		{"zero min interval", func(c *retry.Config) { c.MinInterval = 0 }},
		{"max below min", func(c *retry.Config) { c.MaxInterval = c.MinInterval / 2 }},
		{"multiplier below one", func(c *retry.Config) { c.Multiplier = 0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fastConfig()
			tt.mutate(&cfg)
			_, err := retry.NewMiddleware(cfg)
			require.Error(t, err)
		})
	}

	_, err := retry.NewMiddleware(fastConfig())
	require.NoError(t, err)
}

// TestRetryMiddleware_TransientThenSuccess verifies that a handler failing k
// times with a transient error is invoked exactly k+1 times and the final
// response is returned unchanged.
func TestRetryMiddleware_TransientThenSuccess(t *testing.T) {
	tests := []struct {
		name     string
		failures int32
	}{
		{"no failures", 0},
		{"one failure", 1},
		{"three failures", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			handler := transport.HandlerFunc(func(_ context.Context, _ *transport.Request) (*transport.Response, error) {
				n := atomic.AddInt32(&calls, 1)
				if n <= tt.failures {
					return nil, &infererrors.ServiceError{
						StatusCode: 503,
						Message:    "overloaded",
						Type:       infererrors.ErrorTypeService,
					}
				}
				return &transport.Response{Payload: []byte(`"ok"`)}, nil
			})

			middleware, err := retry.NewMiddleware(fastConfig())
			require.NoError(t, err)

			resp, err := middleware(handler).Handle(context.Background(), &transport.Request{Model: "test"})
			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.failures+1, atomic.LoadInt32(&calls))
		})
	}
}

// TestRetryMiddleware_FatalPropagatesImmediately verifies that a validation
// error aborts after a single attempt with no backoff.
func TestRetryMiddleware_FatalPropagatesImmediately(t *testing.T) {
	var calls int32
	handler := transport.HandlerFunc(func(_ context.Context, _ *transport.Request) (*transport.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, &infererrors.ValidationError{Path: "$", Message: "expected list"}
	})

	middleware, err := retry.NewMiddleware(fastConfig())
	require.NoError(t, err)

	_, err = middleware(handler).Handle(context.Background(), &transport.Request{Model: "test"})
	require.Error(t, err)

	var valErr *infererrors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// TestRetryMiddleware_ContextCancelledDuringBackoff verifies that cancelling
// the context during a backoff wait aborts the retry loop promptly.
func TestRetryMiddleware_ContextCancelledDuringBackoff(t *testing.T) {
	var calls int32
	handler := transport.HandlerFunc(func(_ context.Context, _ *transport.Request) (*transport.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, &infererrors.ServiceError{StatusCode: 500, Type: infererrors.ErrorTypeService}
	})

	cfg := fastConfig()
	cfg.InitialInterval = time.Second
	cfg.MinInterval = time.Second
	cfg.MaxInterval = 2 * time.Second

	middleware, err := retry.NewMiddleware(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = middleware(handler).Handle(ctx, &transport.Request{Model: "test"})
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

// TestRetryMiddleware_PreCancelledContext verifies the fail-fast path: an
// already-cancelled context never reaches the handler.
func TestRetryMiddleware_PreCancelledContext(t *testing.T) {
	var calls int32
	handler := transport.HandlerFunc(func(_ context.Context, _ *transport.Request) (*transport.Response, error) {
		atomic.AddInt32(&calls, 1)
		return &transport.Response{}, nil
	})

	middleware, err := retry.NewMiddleware(fastConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = middleware(handler).Handle(ctx, &transport.Request{Model: "test"})
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

// TestBackoff_GrowthAndClamp verifies the exponential schedule without jitter:
// delays grow by the multiplier and stay inside [MinInterval, MaxInterval].
func TestBackoff_GrowthAndClamp(t *testing.T) {
	cfg := retry.Config{
		InitialInterval: 4 * time.Second,
		MinInterval:     4 * time.Second,
		MaxInterval:     60 * time.Second,
		Multiplier:      2.0,
		UseJitter:       false,
	}

	assert.Equal(t, 4*time.Second, retry.Backoff(1, cfg))
	assert.Equal(t, 8*time.Second, retry.Backoff(2, cfg))
	assert.Equal(t, 16*time.Second, retry.Backoff(3, cfg))
	assert.Equal(t, 32*time.Second, retry.Backoff(4, cfg))
	assert.Equal(t, 60*time.Second, retry.Backoff(5, cfg))
	assert.Equal(t, 60*time.Second, retry.Backoff(50, cfg))
}

// TestBackoff_JitterBounds verifies that jittered delays always land inside
// [MinInterval, deterministic delay].
func TestBackoff_JitterBounds(t *testing.T) {
	cfg := retry.Config{
		InitialInterval: 4 * time.Second,
		MinInterval:     4 * time.Second,
		MaxInterval:     60 * time.Second,
		Multiplier:      2.0,
		UseJitter:       true,
	}
	plain := cfg
	plain.UseJitter = false

	for attempt := 1; attempt <= 8; attempt++ {
		ceiling := retry.Backoff(attempt, plain)
		for i := 0; i < 50; i++ {
			d := retry.Backoff(attempt, cfg)
			assert.GreaterOrEqual(t, d, cfg.MinInterval, "attempt %d", attempt)
			assert.LessOrEqual(t, d, ceiling, "attempt %d", attempt)
		}
	}
}
