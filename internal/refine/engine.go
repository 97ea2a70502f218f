// Package refine applies a fixed number of whole-mapping refinement passes.
// Each pass rebuilds every partition's value from its current one; within a
// pass a partition whose refinement comes back empty is retried with the
// identical input until it produces a value. The pass count is a loop bound,
// not a convergence test, so zero passes returns the input untouched.
package refine

import (
	"context"
	"log/slog"
	"sort"
)

// RefineFunc rewrites one partition's value. A nil result with a nil error
// means the step produced nothing usable this attempt and is retried; an
// error aborts refinement.
type RefineFunc[V any] func(ctx context.Context, key string, current V) (*V, error)

// Engine drives counted refinement passes.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a refinement engine.
func NewEngine() *Engine {
	return &Engine{logger: slog.Default().With("component", "refine")}
}

// Iterate runs refine over the complete mapping for the given number of
// passes and returns the final mapping. Every pass replaces every value;
// partial passes are never returned, so a cancelled context yields an error
// rather than a mapping that mixes pass generations.
func Iterate[V any](ctx context.Context, e *Engine, results map[string]V, passes int, refine RefineFunc[V]) (map[string]V, error) {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	current := results
	for pass := 1; pass <= passes; pass++ {
		e.logger.Info("refinement pass", "pass", pass, "of", passes, "partitions", len(keys))

		next := make(map[string]V, len(current))
		for _, key := range keys {
			value, err := refinePartition(ctx, e, key, current[key], refine)
			if err != nil {
				return nil, err
			}
			next[key] = value
		}
		current = next
	}
	return current, nil
}

// refinePartition retries one partition until the refine step yields a value.
func refinePartition[V any](ctx context.Context, e *Engine, key string, current V, refine RefineFunc[V]) (V, error) {
	var zero V
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		value, err := refine(ctx, key, current)
		if err != nil {
			return zero, err
		}
		if value != nil {
			return *value, nil
		}
		e.logger.Warn("refinement produced no value, retrying", "key", key, "attempt", attempt)
	}
}
