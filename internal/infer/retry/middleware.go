// Package retry implements the unbounded-retry discipline for transient
// inference failures. Transient errors (network, timeout, service-side, rate
// limit) are retried forever with clamped exponential backoff; fatal errors
// (validation, auth, malformed request) propagate immediately. The only way
// out of the retry loop besides success is context cancellation.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	infererrors "github.com/newspulse/enrich/internal/infer/errors"
	"github.com/newspulse/enrich/internal/infer/transport"
)

var (
	errInitialIntervalInvalid = errors.New("InitialInterval must be greater than 0")
	errMinIntervalInvalid     = errors.New("MinInterval must be greater than 0")
	errMaxIntervalInvalid     = errors.New("MaxInterval must be >= MinInterval")
	errMultiplierInvalid      = errors.New("Multiplier must be >= 1.0")

	errContextCancelledBeforeRetry = errors.New("context cancelled before retry")
	errContextCancelledDuringRetry = errors.New("context cancelled during retry")
)

// Config controls the retry policy. There is deliberately no attempt cap:
// the pipeline's completion guarantee rests on transient failures being
// retried until they stop being transient.
type Config struct {
	// InitialInterval seeds the exponential schedule.
	InitialInterval time.Duration `json:"initial_interval"`

	// MinInterval is the floor every computed delay is clamped to.
	MinInterval time.Duration `json:"min_interval"`

	// MaxInterval is the ceiling every computed delay is clamped to.
	MaxInterval time.Duration `json:"max_interval"`

	// Multiplier is the exponential growth factor between attempts.
	Multiplier float64 `json:"multiplier"`

	// UseJitter randomizes each delay over [MinInterval, delay].
	UseJitter bool `json:"use_jitter"`
}

// NewMiddleware creates retry middleware with the given policy.
func NewMiddleware(cfg Config) (transport.Middleware, error) {
	if cfg.InitialInterval <= 0 {
		return nil, fmt.Errorf("%w, got %v", errInitialIntervalInvalid, cfg.InitialInterval)
	}
	if cfg.MinInterval <= 0 {
		return nil, fmt.Errorf("%w, got %v", errMinIntervalInvalid, cfg.MinInterval)
	}
	if cfg.MaxInterval < cfg.MinInterval {
		return nil, fmt.Errorf("%w, MaxInterval: %v, MinInterval: %v", errMaxIntervalInvalid, cfg.MaxInterval, cfg.MinInterval)
	}
	if cfg.Multiplier < 1.0 {
		return nil, fmt.Errorf("%w, got %f", errMultiplierInvalid, cfg.Multiplier)
	}

	rm := &retryMiddleware{
		config: cfg,
		logger: slog.Default().With("component", "retry"),
	}
	return rm.middleware(), nil
}

type retryMiddleware struct {
	config Config
	logger *slog.Logger
}

func (r *retryMiddleware) middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			// Fail fast if the context is already cancelled.
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", errContextCancelledBeforeRetry, ctx.Err())
			default:
			}

			for attempt := 1; ; attempt++ {
				resp, err := next.Handle(ctx, req)
				if err == nil {
					if attempt > 1 {
						r.logger.Info("request succeeded after retry",
							"attempt", attempt,
							"model", req.Model,
							"trace_id", req.TraceID)
					}
					return resp, nil
				}

				if !infererrors.IsRetryable(err) {
					r.logger.Debug("non-retryable error",
						"error", err,
						"attempt", attempt,
						"model", req.Model)
					return nil, err
				}

				backoff := Backoff(attempt, r.config)

				// Service-provided retry guidance overrides the schedule but
				// stays inside the clamp so one bad header cannot stall a run.
				if after := infererrors.GetRetryAfter(err); after > 0 {
					backoff = after
					if backoff > r.config.MaxInterval {
						backoff = r.config.MaxInterval
					}
					if backoff < r.config.MinInterval {
						backoff = r.config.MinInterval
					}
				}

				r.logger.Debug("retrying after backoff",
					"attempt", attempt,
					"backoff", backoff,
					"error", err,
					"trace_id", req.TraceID)

				timer := time.NewTimer(backoff)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return nil, fmt.Errorf("%w: %w", errContextCancelledDuringRetry, ctx.Err())
				}
			}
		})
	}
}
