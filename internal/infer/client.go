// Package infer provides the resilient client for the generative inference
// service. It turns an unreliable, rate-limited, schema-constrained external
// call into a dependable primitive: every call passes through a composable
// middleware pipeline of response caching, unbounded transient retry, and a
// process-wide sliding-window rate gate before reaching the provider.
//
// Pipeline order (outermost first):
//
//	logging -> cache -> retry -> ratelimit -> provider HTTP handler
//
// Caching sits outside retry so a cache hit costs nothing; rate limiting sits
// inside retry so every attempt, including retries, consumes window capacity.
package infer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/newspulse/enrich/internal/infer/cache"
	"github.com/newspulse/enrich/internal/infer/providers"
	"github.com/newspulse/enrich/internal/infer/ratelimit"
	"github.com/newspulse/enrich/internal/infer/retry"
	"github.com/newspulse/enrich/internal/infer/transport"
)

// Config aggregates the client's middleware and provider configuration.
type Config struct {
	// HTTPTimeout bounds each HTTP attempt end to end.
	HTTPTimeout time.Duration `json:"http_timeout"`

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client `json:"-"`

	Provider  providers.Config `json:"provider"`
	RateLimit ratelimit.Config `json:"rate_limit"`
	Retry     retry.Config     `json:"retry"`
	Cache     cache.Config     `json:"cache"`
}

// DefaultConfig returns the production configuration: 150 calls per trailing
// 60 seconds, unbounded transient retry with backoff clamped to [4s, 60s].
func DefaultConfig() Config {
	return Config{
		HTTPTimeout: 120 * time.Second,
		RateLimit: ratelimit.Config{
			WindowCalls: 150,
			Window:      60 * time.Second,
		},
		Retry: retry.Config{
			InitialInterval: time.Second,
			MinInterval:     4 * time.Second,
			MaxInterval:     60 * time.Second,
			Multiplier:      2.0,
			UseJitter:       true,
		},
	}
}

// Client issues inference calls with the full resilience pipeline applied.
type Client interface {
	// Generate sends one schema-constrained request. It returns once the
	// call succeeds, fails fatally, or the context is cancelled; transient
	// failures are retried internally without bound.
	Generate(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

type client struct {
	config  Config
	handler transport.Handler
}

// NewClient builds the client and its middleware chain. The sliding-window
// gate is created here and shared by every call issued through this client;
// a process should construct exactly one client so the window stays the
// single ceiling for all outbound calls.
func NewClient(cfg Config) (Client, error) {
	if cfg.RateLimit.WindowCalls <= 0 {
		return nil, fmt.Errorf("rate limit WindowCalls must be positive, got %d", cfg.RateLimit.WindowCalls)
	}
	if cfg.RateLimit.Window <= 0 {
		return nil, fmt.Errorf("rate limit Window must be positive, got %v", cfg.RateLimit.Window)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
			Timeout: cfg.HTTPTimeout,
		}
	}

	adapter := providers.NewGeminiAdapter(cfg.Provider)
	coreHandler := transport.NewHTTPHandler(httpClient, adapter)

	window := ratelimit.NewWindow(cfg.RateLimit.WindowCalls, cfg.RateLimit.Window)
	rlMiddleware, err := ratelimit.NewMiddleware(window, cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	retryMiddleware, err := retry.NewMiddleware(cfg.Retry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize retry middleware: %w", err)
	}

	middlewares := []transport.Middleware{NewLoggingMiddleware()}

	if cfg.Cache.Enabled {
		cacheMiddleware, err := cache.NewMiddleware(cfg.Cache, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize response cache: %w", err)
		}
		middlewares = append(middlewares, cacheMiddleware)
	}

	middlewares = append(middlewares, retryMiddleware, rlMiddleware)

	return &client{
		config:  cfg,
		handler: transport.Chain(coreHandler, middlewares...),
	}, nil
}

// NewClientWithHandler wraps a prebuilt handler. Used by tests and by callers
// that need to splice in their own core handler.
func NewClientWithHandler(h transport.Handler) Client {
	return &client{handler: h}
}

func (c *client) Generate(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	return c.handler.Handle(ctx, req)
}
