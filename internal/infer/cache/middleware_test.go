package cache_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newspulse/enrich/internal/infer/cache"
	"github.com/newspulse/enrich/internal/infer/transport"
)

// TestMiddleware_DegradedPassThrough verifies graceful degradation: with an
// unreachable Redis the middleware constructs successfully and every call
// reaches the inner handler untouched.
func TestMiddleware_DegradedPassThrough(t *testing.T) {
	middleware, err := cache.NewMiddleware(cache.Config{
		Enabled:        true,
		RedisAddr:      "127.0.0.1:1",
		ConnectTimeout: 200 * time.Millisecond,
	}, nil)
	require.NoError(t, err, "an unreachable cache must not fail construction")

	var calls int64
	handler := middleware(transport.HandlerFunc(
		func(_ context.Context, _ *transport.Request) (*transport.Response, error) {
			atomic.AddInt64(&calls, 1)
			return &transport.Response{Payload: []byte(`"ok"`)}, nil
		}))

	req := &transport.Request{Model: "test", Segments: []string{"prompt"}}
	for i := 0; i < 2; i++ {
		resp, err := handler.Handle(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, resp.Cached)
	}
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls), "degraded mode must not serve hits")
}
