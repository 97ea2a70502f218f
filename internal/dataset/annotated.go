package dataset

import (
	"strconv"
	"strings"
	"time"
)

// AnnotatedArticle is one row of the enriched table: the surviving raw
// columns joined with the per-article annotation by rownum. The raw title,
// keyword, and match-pattern columns are dropped during the merge; the
// keyword column here is the model-assigned set.
type AnnotatedArticle struct {
	Rownum      int       `json:"rownum"`
	URL         string    `json:"url"`
	Content     string    `json:"content"`
	PubDateTime time.Time `json:"pubDateTime"`

	Keywords   []string `json:"keyword"`
	Topic      string   `json:"topic"`
	Highlight  string   `json:"highlight"`
	Summary    string   `json:"summary"`
	IsUnrest   bool     `json:"is_unrest"`
	IsNational bool     `json:"is_ina"`
	IsViolent  bool     `json:"is_violent"`
}

// PartitionKey returns the calendar date of the row's timestamp.
func (a AnnotatedArticle) PartitionKey() (string, bool) {
	if a.PubDateTime.IsZero() {
		return "", false
	}
	return a.PubDateTime.Format(PartitionKeyLayout), true
}

// PartitionAnnotated groups annotated rows by calendar date, dropping
// null-date rows like Partition does for raw articles.
func PartitionAnnotated(rows []AnnotatedArticle) map[string][]AnnotatedArticle {
	return GroupBy(rows, AnnotatedArticle.PartitionKey)
}

// annotatedHeader is the column order of the annotated CSV artifact.
var annotatedHeader = []string{
	"rownum", "url", "content", "keyword", "topic", "highlight",
	"summary", "is_unrest", "is_ina", "is_violent", "pubDateTime",
}

// AnnotatedToRecords renders the annotated table as CSV records with a
// header row. Keywords are joined with "; " like the source dataset.
func AnnotatedToRecords(rows []AnnotatedArticle) [][]string {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, annotatedHeader)
	for _, row := range rows {
		timestamp := ""
		if !row.PubDateTime.IsZero() {
			timestamp = row.PubDateTime.Format("2006-01-02 15:04:05")
		}
		records = append(records, []string{
			strconv.Itoa(row.Rownum),
			row.URL,
			row.Content,
			strings.Join(row.Keywords, "; "),
			row.Topic,
			row.Highlight,
			row.Summary,
			strconv.FormatBool(row.IsUnrest),
			strconv.FormatBool(row.IsNational),
			strconv.FormatBool(row.IsViolent),
			timestamp,
		})
	}
	return records
}

// AnnotatedFromRecords parses the annotated table back from CSV records.
func AnnotatedFromRecords(records [][]string) []AnnotatedArticle {
	if len(records) < 2 {
		return nil
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.TrimSpace(name)] = i
	}
	field := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	rows := make([]AnnotatedArticle, 0, len(records)-1)
	for _, record := range records[1:] {
		rownum, _ := strconv.Atoi(field(record, "rownum"))
		isUnrest, _ := strconv.ParseBool(field(record, "is_unrest"))
		isNational, _ := strconv.ParseBool(field(record, "is_ina"))
		isViolent, _ := strconv.ParseBool(field(record, "is_violent"))

		var keywords []string
		if raw := field(record, "keyword"); raw != "" {
			for _, kw := range strings.Split(raw, "; ") {
				if kw = strings.TrimSpace(kw); kw != "" {
					keywords = append(keywords, kw)
				}
			}
		}

		rows = append(rows, AnnotatedArticle{
			Rownum:      rownum,
			URL:         field(record, "url"),
			Content:     field(record, "content"),
			Keywords:    keywords,
			Topic:       field(record, "topic"),
			Highlight:   field(record, "highlight"),
			Summary:     field(record, "summary"),
			IsUnrest:    isUnrest,
			IsNational:  isNational,
			IsViolent:   isViolent,
			PubDateTime: ParseTimestamp(field(record, "pubDateTime")),
		})
	}
	return rows
}
