package pipeline

import (
	"strconv"

	"github.com/newspulse/enrich/internal/artifact"
	"github.com/newspulse/enrich/internal/dataset"
)

var trendHeader = []string{
	"date", "unrest_violence", "unrest_no_violence",
	"no_unrest_violence", "no_unrest_no_violence",
}

// Tabulate writes the per-day cross-tabulation of unrest and violence counts
// as a CSV artifact.
func (p *Pipeline) Tabulate(rows []dataset.AnnotatedArticle) error {
	_, err := artifact.LoadOrCreateTable(p.store, p.cfg.Paths.TrendTable, func() ([][]string, error) {
		return TrendTable(rows), nil
	})
	return err
}

// TrendTable counts rows per day in each unrest/violence combination. Days
// appear in ascending order; null-date rows are excluded.
func TrendTable(rows []dataset.AnnotatedArticle) [][]string {
	type cell struct{ unrest, violent bool }
	counts := make(map[string]map[cell]int)
	for _, row := range rows {
		key, ok := row.PartitionKey()
		if !ok {
			continue
		}
		if counts[key] == nil {
			counts[key] = make(map[cell]int)
		}
		counts[key][cell{row.IsUnrest, row.IsViolent}]++
	}

	records := [][]string{trendHeader}
	for _, key := range dataset.SortedKeys(counts) {
		day := counts[key]
		records = append(records, []string{
			key,
			strconv.Itoa(day[cell{true, true}]),
			strconv.Itoa(day[cell{true, false}]),
			strconv.Itoa(day[cell{false, true}]),
			strconv.Itoa(day[cell{false, false}]),
		})
	}
	return records
}
