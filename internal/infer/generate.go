package infer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/newspulse/enrich/internal/infer/transport"
)

// GenerateAs issues a request and decodes the schema-validated payload into
// T. The second return value reports whether the service actually produced a
// value: false means the response was structurally valid but empty, which
// callers treat as "not yet done" and retry with the identical request.
func GenerateAs[T any](ctx context.Context, c Client, req *transport.Request) (T, bool, error) {
	var zero T

	resp, err := c.Generate(ctx, req)
	if err != nil {
		return zero, false, err
	}

	if resp.Empty() {
		return zero, false, nil
	}

	var value T
	if err := json.Unmarshal(resp.Payload, &value); err != nil {
		// The payload passed structural validation, so a decode failure means
		// the declared schema and the Go type disagree. That is a programming
		// error, not a service failure.
		return zero, false, fmt.Errorf("payload does not decode into %T: %w", value, err)
	}

	return value, true, nil
}
