package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/newspulse/enrich/internal/infer/transport"
)

// Config controls the shared admission gate.
type Config struct {
	// WindowCalls is the ceiling of calls admitted per trailing window.
	WindowCalls int `json:"window_calls"`

	// Window is the trailing window length.
	Window time.Duration `json:"window"`

	// Local optionally smooths bursts with an in-process token bucket
	// underneath the sliding window.
	Local LocalConfig `json:"local"`
}

// LocalConfig for the optional token-bucket smoother.
type LocalConfig struct {
	Enabled         bool    `json:"enabled"`
	TokensPerSecond float64 `json:"tokens_per_second"`
	BurstSize       int     `json:"burst_size"`
}

// NewMiddleware creates the rate-limiting middleware around a shared Window.
// The window must be shared across every client in the process; constructing
// one middleware per call site would silently multiply the quota.
func NewMiddleware(window *Window, cfg Config) (transport.Middleware, error) {
	if window == nil {
		return nil, fmt.Errorf("ratelimit: window must not be nil")
	}
	if cfg.Local.Enabled && cfg.Local.TokensPerSecond <= 0 {
		return nil, fmt.Errorf("ratelimit: TokensPerSecond must be positive when local smoothing is enabled, got %f", cfg.Local.TokensPerSecond)
	}

	var local *rate.Limiter
	if cfg.Local.Enabled {
		burst := cfg.Local.BurstSize
		if burst < 1 {
			burst = 1
		}
		local = rate.NewLimiter(rate.Limit(cfg.Local.TokensPerSecond), burst)
	}

	logger := slog.Default().With("component", "ratelimit")

	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if local != nil {
				if err := local.Wait(ctx); err != nil {
					return nil, fmt.Errorf("local rate limit wait aborted: %w", err)
				}
			}

			if err := window.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait aborted: %w", err)
			}

			if remaining := window.Available(); remaining == 0 {
				logger.Debug("rate window saturated",
					"model", req.Model,
					"trace_id", req.TraceID)
			}

			return next.Handle(ctx, req)
		})
	}, nil
}
