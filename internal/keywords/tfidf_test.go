package keywords_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newspulse/enrich/internal/keywords"
)

// TestTokenize verifies normalization: trim, uppercase, spaces to
// underscores, empty tokens dropped.
func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		field string
		want  []string
	}{
		{"plain", "protes; demo", []string{"PROTES", "DEMO"}},
		{"spaces become underscores", "aksi massa; DPR RI", []string{"AKSI_MASSA", "DPR_RI"}},
		{"trims and drops empties", "  protes ; ; demo ", []string{"PROTES", "DEMO"}},
		{"empty field", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keywords.Tokenize(tt.field)
			if tt.want == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// TestExtract verifies the frequency metrics on a small corpus: TF counts
// every occurrence, IDF uses the smoothed formula ln((1+N)/(1+df))+1, and
// TF-IDF is their product.
func TestExtract(t *testing.T) {
	fields := []string{
		"protes; demo",
		"protes; dpr",
		"protes",
		"demo",
	}

	stats := keywords.Extract(fields, 10)
	require.NotEmpty(t, stats)

	byKeyword := make(map[string]keywords.Stat, len(stats))
	for _, s := range stats {
		byKeyword[s.Keyword] = s
	}

	protes, ok := byKeyword["PROTES"]
	require.True(t, ok)
	assert.Equal(t, 3, protes.TF)
	wantIDF := math.Log(5.0/4.0) + 1
	assert.InDelta(t, wantIDF, protes.IDF, 1e-9)
	assert.InDelta(t, 3*wantIDF, protes.TFIDF, 1e-9)

	demo, ok := byKeyword["DEMO"]
	require.True(t, ok)
	assert.Equal(t, 2, demo.TF)
}

// TestExtract_TopNOverlap verifies that only keywords in both top-N lists
// survive and the result is sorted by TF-IDF descending.
func TestExtract_TopNOverlap(t *testing.T) {
	fields := []string{
		"a; a; a; b; c",
		"a; b",
		"b",
		"c; d",
	}

	stats := keywords.Extract(fields, 2)
	require.NotEmpty(t, stats)
	assert.LessOrEqual(t, len(stats), 2)
	for i := 1; i < len(stats); i++ {
		assert.GreaterOrEqual(t, stats[i-1].TFIDF, stats[i].TFIDF)
	}
}

// TestExtract_Empty verifies degenerate inputs yield no keywords.
func TestExtract_Empty(t *testing.T) {
	assert.Empty(t, keywords.Extract(nil, 10))
	assert.Empty(t, keywords.Extract([]string{"", " "}, 10))
	assert.Empty(t, keywords.Extract([]string{"a; b"}, 0))
}
