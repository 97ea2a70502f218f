// Package keywords extracts the top dataset keywords by text-frequency
// metrics. Each article's keyword field is a "; "-separated list; tokens are
// normalized, scored by term frequency and smoothed inverse document
// frequency, and the extraction keeps the overlap of the top-N lists under
// both metrics.
package keywords

import (
	"math"
	"sort"
	"strings"
)

// Stat carries the frequency metrics for one extracted keyword.
type Stat struct {
	Keyword string  `json:"keyword"`
	TF      int     `json:"tf"`
	IDF     float64 `json:"idf"`
	TFIDF   float64 `json:"tf_idf"`
}

// Normalize canonicalizes one keyword token: trimmed, uppercased, inner
// spaces replaced with underscores.
func Normalize(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	return strings.ReplaceAll(strings.ToUpper(token), " ", "_")
}

// Tokenize splits one article's keyword field into normalized tokens.
func Tokenize(field string) []string {
	parts := strings.Split(field, "; ")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if token := Normalize(part); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// Extract computes TF and smoothed-IDF scores over the per-article keyword
// fields and returns the keywords appearing in both the top-N list by TF and
// the top-N list by TF-IDF, sorted by TF-IDF descending.
func Extract(fields []string, topN int) []Stat {
	if topN <= 0 {
		return nil
	}

	docs := make([][]string, 0, len(fields))
	for _, field := range fields {
		docs = append(docs, Tokenize(field))
	}

	tf := make(map[string]int)
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, token := range doc {
			tf[token]++
			if _, ok := seen[token]; !ok {
				seen[token] = struct{}{}
				df[token]++
			}
		}
	}
	if len(tf) == 0 {
		return nil
	}

	// Smoothed IDF: ln((1+N)/(1+df)) + 1.
	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for token, count := range df {
		idf[token] = math.Log((1+n)/(1+float64(count))) + 1
	}

	tfidf := make(map[string]float64, len(tf))
	for token, count := range tf {
		tfidf[token] = float64(count) * idf[token]
	}

	topByTF := topTokens(tf, topN, func(token string) float64 { return float64(tf[token]) })
	topByTFIDF := topTokens(tfidf, topN, func(token string) float64 { return tfidf[token] })

	overlap := make([]Stat, 0, topN)
	for token := range topByTF {
		if _, ok := topByTFIDF[token]; !ok {
			continue
		}
		overlap = append(overlap, Stat{
			Keyword: token,
			TF:      tf[token],
			IDF:     idf[token],
			TFIDF:   tfidf[token],
		})
	}

	sort.Slice(overlap, func(i, j int) bool {
		if overlap[i].TFIDF != overlap[j].TFIDF {
			return overlap[i].TFIDF > overlap[j].TFIDF
		}
		return overlap[i].Keyword < overlap[j].Keyword
	})
	return overlap
}

// topTokens returns the top-N token set under the given score, breaking ties
// lexicographically so extraction is deterministic.
func topTokens[V any](scores map[string]V, topN int, score func(string) float64) map[string]struct{} {
	tokens := make([]string, 0, len(scores))
	for token := range scores {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		si, sj := score(tokens[i]), score(tokens[j])
		if si != sj {
			return si > sj
		}
		return tokens[i] < tokens[j]
	})

	if len(tokens) > topN {
		tokens = tokens[:topN]
	}
	top := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		top[token] = struct{}{}
	}
	return top
}
