package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/newspulse/enrich/internal/infer/schema"
)

// Request is a normalized inference request. The payload is an ordered
// sequence of text segments (prompt parts) plus a declared response schema
// that is fixed for the lifetime of the request.
type Request struct {
	// Model specifies the exact model version to call.
	Model string `json:"model"`

	// Segments are the ordered prompt parts sent to the service.
	Segments []string `json:"segments"`

	// Schema declares the structural contract the response must satisfy.
	Schema *schema.Schema `json:"-"`

	// Temperature controls sampling; the pipeline pins it to 0 so repeat
	// calls of the same request are safe to retry.
	Temperature float64 `json:"temperature"`

	// Timeout bounds a single attempt; zero means no per-attempt timeout.
	Timeout time.Duration `json:"timeout"`

	// TraceID correlates every attempt of one pipeline run in logs.
	TraceID string `json:"trace_id"`
}

// Response is the normalized output of an inference call. Payload holds the
// schema-conforming JSON value; callers decode it into their own types.
type Response struct {
	// Payload is the JSON value that passed schema validation.
	Payload json.RawMessage `json:"payload"`

	// FinishReason is the service's reported stop reason.
	FinishReason string `json:"finish_reason"`

	// Usage counters as reported by the service.
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	LatencyMs        int64 `json:"latency_ms"`

	// Cached marks responses served from the response cache.
	Cached bool `json:"cached"`

	// Headers preserves raw response headers for debugging.
	Headers http.Header `json:"-"`

	// RawBody preserves the original response body for audit.
	RawBody []byte `json:"-"`
}

// Empty reports whether the payload is a structurally valid but vacant
// result: JSON null, an empty string, an empty list, or absent entirely.
// Callers treat an empty response as "not yet produced" and retry the exact
// same request, which is distinct from the transient-error retry path.
func (r *Response) Empty() bool {
	if r == nil || len(r.Payload) == 0 {
		return true
	}
	switch string(r.Payload) {
	case "null", `""`, "[]":
		return true
	}
	return false
}
