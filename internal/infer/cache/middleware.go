// Package cache provides an optional Redis-backed, success-only response
// cache for inference calls. It is a latency and cost optimization layered
// above retry: file artifacts remain the authoritative memoization, so the
// cache may be disabled, flushed, or unavailable without affecting
// correctness. Redis failures degrade the middleware to a pass-through.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newspulse/enrich/internal/infer/transport"
)

// Config controls the response cache.
type Config struct {
	Enabled       bool          `json:"enabled"`
	TTL           time.Duration `json:"ttl"`
	RedisAddr     string        `json:"redis_addr"`
	RedisPassword string        `json:"-"` // Sensitive
	RedisDB       int           `json:"redis_db"`

	ConnectTimeout time.Duration `json:"connect_timeout"`
}

// entry is the serialized cache record.
type entry struct {
	Payload          json.RawMessage `json:"payload"`
	FinishReason     string          `json:"finish_reason"`
	PromptTokens     int64           `json:"prompt_tokens"`
	CompletionTokens int64           `json:"completion_tokens"`
	TotalTokens      int64           `json:"total_tokens"`
	StoredAt         int64           `json:"stored_at"`
}

type cacheMiddleware struct {
	client   *redis.Client
	ttl      time.Duration
	degraded atomic.Bool
	logger   *slog.Logger
}

// NewMiddleware creates the cache middleware. A nil client is constructed
// from the config; an unreachable Redis puts the middleware into degraded
// (pass-through) mode rather than failing the run.
func NewMiddleware(cfg Config, client *redis.Client) (transport.Middleware, error) {
	cm := &cacheMiddleware{
		ttl:    cfg.TTL,
		logger: slog.Default().With("component", "cache"),
	}
	if cm.ttl <= 0 {
		cm.ttl = 24 * time.Hour
	}

	if client == nil {
		connectTimeout := cfg.ConnectTimeout
		if connectTimeout <= 0 {
			connectTimeout = 5 * time.Second
		}
		client = redis.NewClient(&redis.Options{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: connectTimeout,
		})

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			cm.logger.Warn("Redis connection failed, response cache disabled", "error", err)
			cm.degraded.Store(true)
		}
	}
	cm.client = client

	return cm.middleware(), nil
}

func (c *cacheMiddleware) middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if c.degraded.Load() {
				return next.Handle(ctx, req)
			}

			key := Key(req)

			if resp, ok := c.lookup(ctx, key); ok {
				c.logger.Debug("cache hit", "model", req.Model, "trace_id", req.TraceID)
				return resp, nil
			}

			resp, err := next.Handle(ctx, req)
			if err != nil {
				return nil, err
			}

			// Success-only caching; empty payloads are the "try again" signal
			// and must never be replayed from cache.
			if !resp.Empty() {
				c.store(ctx, key, resp)
			}

			return resp, nil
		})
	}
}

func (c *cacheMiddleware) lookup(ctx context.Context, key string) (*transport.Response, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && c.isRedisError(err) {
			c.logger.Warn("Redis error, response cache disabled", "error", err)
			c.degraded.Store(true)
		}
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("corrupt cache entry dropped", "key", key, "error", err)
		return nil, false
	}

	return &transport.Response{
		Payload:          e.Payload,
		FinishReason:     e.FinishReason,
		PromptTokens:     e.PromptTokens,
		CompletionTokens: e.CompletionTokens,
		TotalTokens:      e.TotalTokens,
		Cached:           true,
	}, true
}

func (c *cacheMiddleware) store(ctx context.Context, key string, resp *transport.Response) {
	data, err := json.Marshal(entry{
		Payload:          resp.Payload,
		FinishReason:     resp.FinishReason,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		TotalTokens:      resp.TotalTokens,
		StoredAt:         time.Now().Unix(),
	})
	if err != nil {
		c.logger.Warn("failed to serialize cache entry", "error", err)
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		if c.isRedisError(err) {
			c.logger.Warn("Redis error, response cache disabled", "error", err)
			c.degraded.Store(true)
		}
	}
}

// isRedisError distinguishes Redis infrastructure failures, which degrade the
// cache, from application errors.
func (c *cacheMiddleware) isRedisError(err error) bool {
	if err == nil {
		return false
	}

	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
