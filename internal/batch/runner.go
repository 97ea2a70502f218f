// Package batch runs a per-partition generation step over a date-keyed
// dataset with resumable results. The result mapping is itself an artifact:
// a partition whose value is null is pending, and the runner keeps retrying
// pending partitions until every key has a value. Completed partitions are
// never regenerated, whether they completed in this run or a previous one.
package batch

import (
	"context"
	"log/slog"
	"sort"

	"github.com/newspulse/enrich/internal/artifact"
)

// GenerateFunc produces the enrichment value for one partition. Returning a
// nil value with a nil error means the partition is not done yet and will be
// retried with the same rows; an error aborts the whole run.
type GenerateFunc[R, V any] func(ctx context.Context, key string, rows []R) (*V, error)

// Runner executes partitioned batch jobs against an artifact store.
type Runner struct {
	store  *artifact.Store
	logger *slog.Logger
}

// NewRunner creates a batch runner backed by the given artifact store.
func NewRunner(store *artifact.Store) *Runner {
	return &Runner{
		store:  store,
		logger: slog.Default().With("component", "batch"),
	}
}

// Run produces one value per partition and returns the complete mapping.
//
// An existing artifact at cachePath is loaded and trusted; otherwise every
// partition is generated once in ascending key order and the mapping is
// persisted, nulls included, so an interrupted run can resume. Pending
// partitions are then retried until none remain, and a mapping that gained
// any value is re-persisted, replacing the null-bearing snapshot. A
// cancelled context aborts between partitions without persisting the
// partial progress of the current pass.
func Run[R, V any](ctx context.Context, r *Runner, cachePath string, partitions map[string][]R, generate GenerateFunc[R, V]) (map[string]*V, error) {
	keys := sortedKeys(partitions)

	results, err := artifact.LoadOrCreateJSON(r.store, cachePath, func() (map[string]*V, error) {
		out := make(map[string]*V, len(keys))
		for _, key := range keys {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			value, err := generate(ctx, key, partitions[key])
			if err != nil {
				return nil, err
			}
			out[key] = value
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	// A snapshot from an earlier run may predate partitions that exist now.
	changed := false
	for _, key := range keys {
		if _, ok := results[key]; !ok {
			results[key] = nil
			changed = true
		}
	}

	for pass := 1; ; pass++ {
		pending := pendingKeys(results)
		if len(pending) == 0 {
			break
		}
		r.logger.Info("retrying pending partitions",
			"path", cachePath, "pass", pass, "pending", len(pending))

		progress := false
		for _, key := range pending {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			value, err := generate(ctx, key, partitions[key])
			if err != nil {
				return nil, err
			}
			if value != nil {
				results[key] = value
				progress = true
				changed = true
			}
		}
		if !progress {
			r.logger.Warn("pass completed no partitions",
				"path", cachePath, "pass", pass, "pending", len(pending))
		}
	}

	if changed {
		if err := artifact.SaveJSON(r.store, cachePath, results); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func sortedKeys[R any](partitions map[string][]R) []string {
	keys := make([]string, 0, len(partitions))
	for k := range partitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func pendingKeys[V any](results map[string]*V) []string {
	var pending []string
	for key, value := range results {
		if value == nil {
			pending = append(pending, key)
		}
	}
	sort.Strings(pending)
	return pending
}
