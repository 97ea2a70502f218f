// Package providers contains the wire-format adapter for the generative
// inference service. The adapter owns request construction and response
// parsing; everything above it works with normalized transport types.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	infererrors "github.com/newspulse/enrich/internal/infer/errors"
	"github.com/newspulse/enrich/internal/infer/transport"
)

// ProviderGemini is the provider name used in logs and cache keys.
const ProviderGemini = "gemini"

// DefaultEndpoint is the generative language API base used when no endpoint
// is configured.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// Config holds the adapter's endpoint and credentials.
type Config struct {
	Endpoint string            `json:"endpoint"`
	APIKey   string            `json:"-"` // Sensitive, not serialized
	Headers  map[string]string `json:"headers"`
}

// GeminiAdapter implements transport.ProviderAdapter for the Gemini
// generateContent API. Responses are requested as JSON constrained by the
// request's declared schema, with temperature pinned by the caller so repeat
// calls are near-deterministic and safe to retry.
type GeminiAdapter struct {
	config Config
}

// NewGeminiAdapter creates a Gemini adapter, defaulting the endpoint.
func NewGeminiAdapter(cfg Config) *GeminiAdapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &GeminiAdapter{config: cfg}
}

// Name returns the provider name.
func (a *GeminiAdapter) Name() string { return ProviderGemini }

// Build constructs the generateContent HTTP request. Each prompt segment
// becomes one content part, and the declared response schema is rendered into
// the generation config so the service returns structured JSON.
func (a *GeminiAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		a.config.Endpoint, req.Model, a.config.APIKey)

	parts := make([]map[string]any, 0, len(req.Segments))
	for _, segment := range req.Segments {
		parts = append(parts, map[string]any{"text": segment})
	}

	generationConfig := map[string]any{
		"temperature": req.Temperature,
	}
	if req.Schema != nil {
		generationConfig["responseMimeType"] = "application/json"
		generationConfig["responseSchema"] = req.Schema.ServiceSchema()
	}

	body := map[string]any{
		"contents": []map[string]any{
			{"parts": parts},
		},
		"generationConfig": generationConfig,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

// Parse extracts the normalized response. The first candidate's text part is
// the JSON payload (the service was asked for application/json); schema
// validation happens in the core handler, not here.
func (a *GeminiAdapter) Parse(httpResp *http.Response) (*transport.Response, error) {
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, parseServiceError(httpResp, body)
	}

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int64 `json:"promptTokenCount"`
			CandidatesTokenCount int64 `json:"candidatesTokenCount"`
			TotalTokenCount      int64 `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", infererrors.ErrInvalidResponse, err)
	}

	var payload json.RawMessage
	var finishReason string
	if len(resp.Candidates) > 0 && len(resp.Candidates[0].Content.Parts) > 0 {
		payload = json.RawMessage(resp.Candidates[0].Content.Parts[0].Text)
		finishReason = resp.Candidates[0].FinishReason
	}

	return &transport.Response{
		Payload:          payload,
		FinishReason:     finishReason,
		PromptTokens:     resp.UsageMetadata.PromptTokenCount,
		CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		Headers:          httpResp.Header,
		RawBody:          body,
	}, nil
}

// parseServiceError converts a non-200 response into a classified
// ServiceError, extracting the service's error status and any Retry-After
// header for backoff guidance.
func parseServiceError(httpResp *http.Response, body []byte) error {
	retryAfter := 0
	if header := httpResp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			retryAfter = seconds
		}
	}

	var errResp struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return &infererrors.ServiceError{
			StatusCode: httpResp.StatusCode,
			Message:    errResp.Error.Message,
			Code:       errResp.Error.Status,
			Type:       infererrors.ClassifyStatus(httpResp.StatusCode, errResp.Error.Status),
			RetryAfter: retryAfter,
		}
	}

	return &infererrors.ServiceError{
		StatusCode: httpResp.StatusCode,
		Message:    string(body),
		Type:       infererrors.ClassifyStatus(httpResp.StatusCode, ""),
		RetryAfter: retryAfter,
	}
}
