package pipeline

// Annotation is one element of the batched article-annotation response. The
// JSON field names match the declared response schema exactly.
type Annotation struct {
	Rownum     int      `json:"rownum"`
	Keywords   []string `json:"keyword"`
	Topic      string   `json:"topic"`
	Highlight  string   `json:"highlight"`
	Summary    string   `json:"summary"`
	IsUnrest   bool     `json:"is_unrest"`
	IsNational bool     `json:"is_ina"`
	IsViolent  bool     `json:"is_violent"`
}

// Theme is one keyword/theme record for a single article within a day. The
// reduction stage rewrites kw and thm but must keep every rownum, so a day's
// refined records remain joinable back to the annotated table.
type Theme struct {
	Rownum           int    `json:"rownum"`
	Keyword          string `json:"kw"`
	Theme            string `json:"thm"`
	KeywordRationale string `json:"rx_kw"`
	ThemeRationale   string `json:"rx_thm"`
}

// articleRef is the per-article slice of the dataset sent for annotation.
type articleRef struct {
	Rownum  int    `json:"rownum"`
	Content string `json:"content"`
}

// newsEntry is the per-article slice of the annotated table sent for daily
// highlight and theme generation.
type newsEntry struct {
	Rownum    int    `json:"rownum"`
	Summary   string `json:"summary"`
	Topic     string `json:"topic"`
	Highlight string `json:"highlight"`
}
