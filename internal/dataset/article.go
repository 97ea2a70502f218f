// Package dataset is the tabular input boundary of the pipeline. It loads
// news articles from CSV or JSON, derives the calendar-date partition key
// from each row's publication timestamp, and carries the annotated table the
// enrichment stages produce. Rows with unparsable timestamps keep a null-date
// sentinel and are excluded from partitioning rather than failing the run.
package dataset

import (
	"sort"
	"strings"
	"time"
)

// PartitionKeyLayout is the YYYY-MM-DD rendering of a partition key.
const PartitionKeyLayout = "2006-01-02"

// Article is one raw news row. Rownum is the unique row identifier carried
// through every enrichment stage; PubDateTime's zero value is the null-date
// sentinel for rows whose timestamp could not be parsed.
type Article struct {
	Rownum       int       `json:"rownum"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	Content      string    `json:"content"`
	Keyword      string    `json:"keyword"`
	MatchPattern string    `json:"match_pattern"`
	PubDateTime  time.Time `json:"pubDateTime"`
}

// PartitionKey returns the calendar date of the article's timestamp and
// whether the article belongs to any partition at all.
func (a Article) PartitionKey() (string, bool) {
	if a.PubDateTime.IsZero() {
		return "", false
	}
	return a.PubDateTime.Format(PartitionKeyLayout), true
}

// Partition groups articles by calendar date. Partitions are disjoint and
// their union is every article with a parsable timestamp; null-date rows are
// dropped silently.
func Partition(articles []Article) map[string][]Article {
	return GroupBy(articles, Article.PartitionKey)
}

// GroupBy buckets rows under the key function. Rows whose key function
// reports no key are dropped.
func GroupBy[R any](rows []R, key func(R) (string, bool)) map[string][]R {
	groups := make(map[string][]R)
	for _, row := range rows {
		k, ok := key(row)
		if !ok {
			continue
		}
		groups[k] = append(groups[k], row)
	}
	return groups
}

// SortedKeys returns the partition keys in ascending order. YYYY-MM-DD keys
// sort chronologically as strings.
func SortedKeys[V any](partitions map[string]V) []string {
	keys := make([]string, 0, len(partitions))
	for k := range partitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// timestampLayouts are tried in order when parsing publication timestamps.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses a publication timestamp leniently. An empty or
// unparsable value returns the zero-time null-date sentinel.
func ParseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
