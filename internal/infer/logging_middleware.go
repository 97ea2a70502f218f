package infer

import (
	"context"
	"log/slog"
	"time"

	"github.com/newspulse/enrich/internal/infer/transport"
)

// NewLoggingMiddleware creates the outermost observability layer. It logs one
// line per logical call with latency and token usage; per-attempt detail
// belongs to the retry middleware underneath it.
func NewLoggingMiddleware() transport.Middleware {
	logger := slog.Default().With("component", "infer")

	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			start := time.Now()
			resp, err := next.Handle(ctx, req)
			elapsed := time.Since(start)

			if err != nil {
				logger.Error("inference call failed",
					"model", req.Model,
					"elapsed", elapsed,
					"trace_id", req.TraceID,
					"error", err)
				return nil, err
			}

			logger.Debug("inference call completed",
				"model", req.Model,
				"elapsed", elapsed,
				"total_tokens", resp.TotalTokens,
				"cached", resp.Cached,
				"trace_id", req.TraceID)

			return resp, nil
		})
	}
}
