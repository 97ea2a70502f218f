// Package transport provides the composable request pipeline for inference
// calls. A core handler issues the HTTP call through a provider adapter;
// middleware layers add rate limiting, retry, caching, and logging around it.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ProviderAdapter abstracts the provider-specific HTTP wire format.
type ProviderAdapter interface {
	// Build constructs the outbound HTTP request for an inference request.
	Build(ctx context.Context, req *Request) (*http.Request, error)

	// Parse extracts the normalized response from the provider's HTTP response.
	Parse(httpResp *http.Response) (*Response, error)

	// Name identifies the provider for logging and cache keys.
	Name() string
}

// Handler processes inference requests. It is the core abstraction the
// middleware pipeline composes around.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware transforms a Handler into an enhanced Handler.
type Middleware func(Handler) Handler

// Chain builds a middleware pipeline around a core handler. Middleware
// executes in the order provided, with the first middleware outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// NewHTTPHandler creates the core handler that performs the actual service
// call through the provider adapter and validates the declared schema.
func NewHTTPHandler(client *http.Client, adapter ProviderAdapter) Handler {
	return &httpHandler{client: client, adapter: adapter}
}

type httpHandler struct {
	client  *http.Client
	adapter ProviderAdapter
}

// Handle implements Handler by issuing the HTTP request and validating the
// response payload against the request's declared schema. A payload that does
// not conform is surfaced as a fatal validation error, never coerced.
func (h *httpHandler) Handle(ctx context.Context, req *Request) (*Response, error) {
	reqCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := h.adapter.Build(reqCtx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	httpResp, err := h.client.Do(httpReq)
	latency := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	resp, err := h.adapter.Parse(httpResp)
	if err != nil {
		return nil, err
	}

	resp.LatencyMs = latency.Milliseconds()

	// Vacant payloads skip validation: they are the "not yet produced"
	// signal, not a contract violation.
	if req.Schema != nil && !resp.Empty() {
		if err := req.Schema.Validate(resp.Payload); err != nil {
			return nil, err
		}
	}

	return resp, nil
}
