package refine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newspulse/enrich/internal/refine"
)

type entry struct {
	Rownum  int
	Keyword string
}

func initial() map[string][]entry {
	return map[string][]entry{
		"2025-08-24": {{Rownum: 0, Keyword: "A"}, {Rownum: 1, Keyword: "B"}},
		"2025-08-25": {{Rownum: 2, Keyword: "C"}},
	}
}

// TestIterate_ZeroPassesIsNoOp verifies that zero passes returns the input
// unchanged without invoking the refine function.
func TestIterate_ZeroPassesIsNoOp(t *testing.T) {
	engine := refine.NewEngine()
	calls := 0

	got, err := refine.Iterate(context.Background(), engine, initial(), 0,
		func(_ context.Context, _ string, _ []entry) (*[]entry, error) {
			calls++
			return nil, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
	assert.Equal(t, initial(), got)
}

// TestIterate_PassCountAndReplacement verifies that every partition is
// refined exactly n times and each pass feeds on the previous pass's output.
func TestIterate_PassCountAndReplacement(t *testing.T) {
	engine := refine.NewEngine()
	var mu sync.Mutex
	perKey := map[string]int{}

	got, err := refine.Iterate(context.Background(), engine, initial(), 3,
		func(_ context.Context, key string, current []entry) (*[]entry, error) {
			mu.Lock()
			perKey[key]++
			mu.Unlock()

			next := make([]entry, len(current))
			for i, e := range current {
				next[i] = entry{Rownum: e.Rownum, Keyword: e.Keyword + "*"}
			}
			return &next, nil
		})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2025-08-24": 3, "2025-08-25": 3}, perKey)
	assert.Equal(t, "A***", got["2025-08-24"][0].Keyword, "three passes must compound")
}

// TestIterate_RetriesNullUntilValue verifies the inner retry loop: a
// partition whose refinement comes back empty is re-attempted with the same
// input until it yields a value, within the same pass.
func TestIterate_RetriesNullUntilValue(t *testing.T) {
	engine := refine.NewEngine()
	attempts := 0
	var seen []string

	got, err := refine.Iterate(context.Background(), engine,
		map[string][]entry{"2025-08-24": {{Rownum: 0, Keyword: "A"}}}, 1,
		func(_ context.Context, _ string, current []entry) (*[]entry, error) {
			attempts++
			seen = append(seen, current[0].Keyword)
			if attempts < 3 {
				return nil, nil
			}
			next := []entry{{Rownum: 0, Keyword: "MERGED"}}
			return &next, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []string{"A", "A", "A"}, seen, "retries must reuse the identical input")
	assert.Equal(t, "MERGED", got["2025-08-24"][0].Keyword)
}

// TestIterate_PreservesRowIdentifiers verifies the reduction contract end to
// end: a merge-style refine function keeps every rownum, so the refined
// mapping stays joinable back to the source rows.
func TestIterate_PreservesRowIdentifiers(t *testing.T) {
	engine := refine.NewEngine()

	merge := func(_ context.Context, _ string, current []entry) (*[]entry, error) {
		next := make([]entry, len(current))
		for i, e := range current {
			next[i] = entry{Rownum: e.Rownum, Keyword: "COMBATING CORRUPTION"}
		}
		return &next, nil
	}

	got, err := refine.Iterate(context.Background(), engine, initial(), 3, merge)
	require.NoError(t, err)

	for key, before := range initial() {
		after := got[key]
		require.Len(t, after, len(before), "partition %s", key)
		for i := range before {
			assert.Equal(t, before[i].Rownum, after[i].Rownum)
		}
	}
}

// TestIterate_MergeReachesMinimalCardinality verifies that a reducing
// refine function collapses a partition to a single entry and that further
// passes are idempotent at minimal cardinality.
func TestIterate_MergeReachesMinimalCardinality(t *testing.T) {
	engine := refine.NewEngine()

	mergeAll := func(_ context.Context, _ string, current []entry) (*[]entry, error) {
		next := []entry{{Rownum: current[0].Rownum, Keyword: "MERGED"}}
		return &next, nil
	}

	state := map[string][]entry{"2025-08-24": {{Rownum: 0, Keyword: "A"}, {Rownum: 1, Keyword: "B"}}}
	got, err := refine.Iterate(context.Background(), engine, state, 3, mergeAll)
	require.NoError(t, err)
	require.Len(t, got["2025-08-24"], 1)
	assert.Equal(t, "MERGED", got["2025-08-24"][0].Keyword)

	again, err := refine.Iterate(context.Background(), engine, got, 2, mergeAll)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

// TestIterate_ErrorAborts verifies that a refine error propagates and no
// partial mapping is returned.
func TestIterate_ErrorAborts(t *testing.T) {
	engine := refine.NewEngine()
	boom := errors.New("fatal")

	got, err := refine.Iterate(context.Background(), engine, initial(), 2,
		func(_ context.Context, _ string, _ []entry) (*[]entry, error) {
			return nil, boom
		})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}

// TestIterate_CancellationAborts verifies that cancellation during the inner
// retry loop surfaces the context error.
func TestIterate_CancellationAborts(t *testing.T) {
	engine := refine.NewEngine()
	ctx, cancel := context.WithCancel(context.Background())

	_, err := refine.Iterate(ctx, engine, initial(), 1,
		func(_ context.Context, _ string, _ []entry) (*[]entry, error) {
			cancel()
			return nil, nil
		})
	require.ErrorIs(t, err, context.Canceled)
}
