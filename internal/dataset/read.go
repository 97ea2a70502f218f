package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrUnsupportedFormat reports an input file whose extension the loader does
// not recognize. This is a fatal error: retrying cannot change the extension.
var ErrUnsupportedFormat = fmt.Errorf("unsupported file format, use .csv or .json")

// ReadArticles loads the news dataset from a CSV or JSON file. Rows lacking
// both a URL and content are dropped; every surviving row gets a rownum (the
// file's own rownum column when present, the row index otherwise).
func ReadArticles(path string) ([]Article, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return readArticlesCSV(path)
	case ".json":
		return readArticlesJSON(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func readArticlesCSV(path string) ([]Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
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

	articles := make([]Article, 0, len(records)-1)
	for i, row := range records[1:] {
		a := Article{
			Rownum:       i,
			Title:        field(row, "title"),
			URL:          field(row, "url"),
			Content:      field(row, "content"),
			Keyword:      field(row, "keyword"),
			MatchPattern: field(row, "match_pattern"),
			PubDateTime:  ParseTimestamp(field(row, "pubDateTime")),
		}
		if raw := field(row, "rownum"); raw != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
				a.Rownum = n
			}
		}
		if a.URL == "" && a.Content == "" {
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func readArticlesJSON(path string) ([]Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}

	var rows []struct {
		Rownum       *int   `json:"rownum"`
		Title        string `json:"title"`
		URL          string `json:"url"`
		Content      string `json:"content"`
		Keyword      string `json:"keyword"`
		MatchPattern string `json:"match_pattern"`
		PubDateTime  string `json:"pubDateTime"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}

	articles := make([]Article, 0, len(rows))
	for i, row := range rows {
		a := Article{
			Rownum:       i,
			Title:        row.Title,
			URL:          row.URL,
			Content:      row.Content,
			Keyword:      row.Keyword,
			MatchPattern: row.MatchPattern,
			PubDateTime:  ParseTimestamp(row.PubDateTime),
		}
		if row.Rownum != nil {
			a.Rownum = *row.Rownum
		}
		if a.URL == "" && a.Content == "" {
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}
