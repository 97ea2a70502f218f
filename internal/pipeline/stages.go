package pipeline

import (
	"context"
	"encoding/json"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/newspulse/enrich/internal/artifact"
	"github.com/newspulse/enrich/internal/batch"
	"github.com/newspulse/enrich/internal/dataset"
	"github.com/newspulse/enrich/internal/infer"
	"github.com/newspulse/enrich/internal/keywords"
	"github.com/newspulse/enrich/internal/refine"
)

// annotateConcurrency bounds how many annotation chunks are in flight at
// once. Every request still passes the client's shared rate-limit window, so
// this only controls memory and connection pressure, not the call rate.
const annotateConcurrency = 4

// NormalizeKeywords extracts the top dataset keywords and asks the service to
// merge, translate, and standardize them into one canonical list. The result
// is memoized as a JSON artifact.
func (p *Pipeline) NormalizeKeywords(ctx context.Context, articles []dataset.Article) ([]string, error) {
	return artifact.LoadOrCreateJSON(p.store, p.cfg.Paths.Keywords, func() ([]string, error) {
		fields := make([]string, 0, len(articles))
		for _, a := range articles {
			fields = append(fields, a.Keyword)
		}

		stats := keywords.Extract(fields, p.cfg.Analysis.TopKeywords)
		top := make([]string, 0, len(stats))
		for _, s := range stats {
			top = append(top, s.Keyword)
		}

		payload, err := json.Marshal(top)
		if err != nil {
			return nil, err
		}

		p.logger.Info("normalizing keywords", "candidates", len(top))
		req := p.request(p.cfg.Analysis.FastModel, keywordListSchema,
			normalizePrompt, "```\n"+string(payload)+"\n```")
		return generateValue[[]string](ctx, p, "normalize_keywords", req)
	})
}

// AnnotateArticles annotates every article in fixed-size chunks and joins the
// annotations back onto the dataset by rownum. The merged table is memoized
// as a CSV artifact; on a hit no inference call is made at all.
func (p *Pipeline) AnnotateArticles(ctx context.Context, articles []dataset.Article, normKeywords []string) ([]dataset.AnnotatedArticle, error) {
	records, err := artifact.LoadOrCreateTable(p.store, p.cfg.Paths.Annotated, func() ([][]string, error) {
		rows, err := p.annotate(ctx, articles, normKeywords)
		if err != nil {
			return nil, err
		}
		return dataset.AnnotatedToRecords(rows), nil
	})
	if err != nil {
		return nil, err
	}
	return dataset.AnnotatedFromRecords(records), nil
}

func (p *Pipeline) annotate(ctx context.Context, articles []dataset.Article, normKeywords []string) ([]dataset.AnnotatedArticle, error) {
	refs := make([]articleRef, 0, len(articles))
	for _, a := range articles {
		refs = append(refs, articleRef{Rownum: a.Rownum, Content: a.Content})
	}

	reference, err := json.Marshal(normKeywords)
	if err != nil {
		return nil, err
	}

	chunkSize := p.cfg.Analysis.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 1
	}
	chunks := chunkRefs(refs, chunkSize)
	results := make([][]Annotation, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(annotateConcurrency)
	for i, part := range chunks {
		i, part := i, part
		g.Go(func() error {
			p.logger.Info("annotating chunk", "chunk", i, "articles", len(part))
			payload, err := json.Marshal(part)
			if err != nil {
				return err
			}
			req := p.request(p.cfg.Analysis.DeepModel, annotationSchema,
				annotatePrompt,
				"Reference keywords: "+string(reference),
				"Articles:\n"+string(payload))
			out, err := generateValue[[]Annotation](gctx, p, "annotate", req)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byRownum := make(map[int]Annotation)
	for _, part := range results {
		for _, ann := range part {
			byRownum[ann.Rownum] = ann
		}
	}

	// Inner join on rownum: articles the service skipped are dropped.
	rows := make([]dataset.AnnotatedArticle, 0, len(articles))
	for _, a := range articles {
		ann, ok := byRownum[a.Rownum]
		if !ok {
			continue
		}
		rows = append(rows, dataset.AnnotatedArticle{
			Rownum:      a.Rownum,
			URL:         a.URL,
			Content:     a.Content,
			PubDateTime: a.PubDateTime,
			Keywords:    ann.Keywords,
			Topic:       ann.Topic,
			Highlight:   ann.Highlight,
			Summary:     ann.Summary,
			IsUnrest:    ann.IsUnrest,
			IsNational:  ann.IsNational,
			IsViolent:   ann.IsViolent,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].PubDateTime.Before(rows[j].PubDateTime)
	})
	return rows, nil
}

func chunkRefs(refs []articleRef, size int) [][]articleRef {
	chunks := make([][]articleRef, 0, (len(refs)+size-1)/size)
	for start := 0; start < len(refs); start += size {
		end := min(start+size, len(refs))
		chunks = append(chunks, refs[start:end])
	}
	return chunks
}

// DailyHighlights produces one ~100-word highlight per calendar day through
// the batch runner, so completed days are never regenerated across runs.
func (p *Pipeline) DailyHighlights(ctx context.Context, rows []dataset.AnnotatedArticle) (map[string]*string, error) {
	partitions := dataset.PartitionAnnotated(rows)
	return batch.Run(ctx, p.runner, p.cfg.Paths.Highlights, partitions,
		func(ctx context.Context, key string, day []dataset.AnnotatedArticle) (*string, error) {
			payload, err := json.Marshal(entries(day))
			if err != nil {
				return nil, err
			}
			p.logger.Info("generating daily highlight", "date", key, "articles", len(day))
			req := p.request(p.cfg.Analysis.DeepModel, highlightSchema,
				highlightPrompt, "News Array:\n"+string(payload))
			value, ok, err := infer.GenerateAs[string](ctx, p.client, req)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
			return &value, nil
		})
}

// DailyThemes produces the per-day keyword/theme records through the batch
// runner and returns the complete mapping with every partition filled.
func (p *Pipeline) DailyThemes(ctx context.Context, rows []dataset.AnnotatedArticle) (map[string][]Theme, error) {
	partitions := dataset.PartitionAnnotated(rows)
	results, err := batch.Run(ctx, p.runner, p.cfg.Paths.Themes, partitions,
		func(ctx context.Context, key string, day []dataset.AnnotatedArticle) (*[]Theme, error) {
			payload, err := json.Marshal(entries(day))
			if err != nil {
				return nil, err
			}
			p.logger.Info("generating daily themes", "date", key, "articles", len(day))
			req := p.request(p.cfg.Analysis.DeepModel, themeListSchema,
				themePrompt, "News Array:\n"+string(payload))
			value, ok, err := infer.GenerateAs[[]Theme](ctx, p.client, req)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
			return &value, nil
		})
	if err != nil {
		return nil, err
	}

	themes := make(map[string][]Theme, len(results))
	for key, value := range results {
		themes[key] = *value
	}
	return themes, nil
}

// RefineThemes runs the configured number of reduction passes over the daily
// themes. The refined mapping is memoized as a JSON artifact, so the whole
// refinement is skipped when a refined snapshot already exists.
func (p *Pipeline) RefineThemes(ctx context.Context, themes map[string][]Theme) (map[string][]Theme, error) {
	return artifact.LoadOrCreateJSON(p.store, p.cfg.Paths.RefinedThemes, func() (map[string][]Theme, error) {
		return refine.Iterate(ctx, p.engine, themes, p.cfg.Analysis.RefineIterations,
			func(ctx context.Context, key string, current []Theme) (*[]Theme, error) {
				payload, err := json.Marshal(current)
				if err != nil {
					return nil, err
				}
				req := p.request(p.cfg.Analysis.DeepModel, themeListSchema,
					reducePrompt, "Theme Array:\n"+string(payload))
				value, ok, err := infer.GenerateAs[[]Theme](ctx, p.client, req)
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, nil
				}
				return &value, nil
			})
	})
}

func entries(day []dataset.AnnotatedArticle) []newsEntry {
	out := make([]newsEntry, 0, len(day))
	for _, row := range day {
		out = append(out, newsEntry{
			Rownum:    row.Rownum,
			Summary:   row.Summary,
			Topic:     row.Topic,
			Highlight: row.Highlight,
		})
	}
	return out
}
