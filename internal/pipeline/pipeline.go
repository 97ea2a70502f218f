// Package pipeline wires the enrichment stages end to end: dataset load,
// keyword normalization, batched article annotation, daily highlights, daily
// themes, theme refinement, and trend tabulation. Every expensive stage is
// memoized through the artifact store, so an interrupted run resumes from the
// last completed artifact instead of repeating inference calls.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/newspulse/enrich/internal/artifact"
	"github.com/newspulse/enrich/internal/batch"
	"github.com/newspulse/enrich/internal/config"
	"github.com/newspulse/enrich/internal/dataset"
	"github.com/newspulse/enrich/internal/infer"
	"github.com/newspulse/enrich/internal/infer/schema"
	"github.com/newspulse/enrich/internal/infer/transport"
	"github.com/newspulse/enrich/internal/refine"
)

// Pipeline executes the enrichment run. Construct one per process so every
// stage shares the client's single rate-limit window.
type Pipeline struct {
	cfg     config.Config
	client  infer.Client
	store   *artifact.Store
	runner  *batch.Runner
	engine  *refine.Engine
	logger  *slog.Logger
	traceID string
}

// New creates a pipeline around an inference client.
func New(cfg config.Config, client infer.Client) *Pipeline {
	store := artifact.NewStore()
	return &Pipeline{
		cfg:     cfg,
		client:  client,
		store:   store,
		runner:  batch.NewRunner(store),
		engine:  refine.NewEngine(),
		logger:  slog.Default().With("component", "pipeline"),
		traceID: uuid.NewString(),
	}
}

// Run executes every stage in order. The first fatal error aborts the run;
// transient service failures are absorbed inside the client and the batch
// runner and never surface here.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline starting", "trace_id", p.traceID, "dataset", p.cfg.Paths.Dataset)

	articles, err := dataset.ReadArticles(p.cfg.Paths.Dataset)
	if err != nil {
		return err
	}
	p.logger.Info("dataset loaded", "rows", len(articles))

	normKeywords, err := p.NormalizeKeywords(ctx, articles)
	if err != nil {
		return err
	}
	p.logger.Info("keywords normalized", "count", len(normKeywords))

	annotated, err := p.AnnotateArticles(ctx, articles, normKeywords)
	if err != nil {
		return err
	}
	p.logger.Info("articles annotated", "rows", len(annotated))

	national := nationalRows(annotated)
	p.logger.Info("national subset selected", "rows", len(national))

	if _, err := p.DailyHighlights(ctx, national); err != nil {
		return err
	}

	themes, err := p.DailyThemes(ctx, national)
	if err != nil {
		return err
	}

	if _, err := p.RefineThemes(ctx, themes); err != nil {
		return err
	}

	if err := p.Tabulate(national); err != nil {
		return err
	}

	p.logger.Info("pipeline complete", "trace_id", p.traceID)
	return nil
}

// nationalRows keeps the rows flagged as relevant to the national situation;
// downstream daily reporting only covers those.
func nationalRows(rows []dataset.AnnotatedArticle) []dataset.AnnotatedArticle {
	out := make([]dataset.AnnotatedArticle, 0, len(rows))
	for _, row := range rows {
		if row.IsNational {
			out = append(out, row)
		}
	}
	return out
}

func (p *Pipeline) request(model string, sc *schema.Schema, segments ...string) *transport.Request {
	return &transport.Request{
		Model:    model,
		Segments: segments,
		Schema:   sc,
		TraceID:  p.traceID,
	}
}

// generateValue issues a request and retries the identical request whenever
// the service answers with a structurally valid but empty payload. Errors,
// including fatal classification from the client, propagate immediately.
func generateValue[T any](ctx context.Context, p *Pipeline, stage string, req *transport.Request) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		value, ok, err := infer.GenerateAs[T](ctx, p.client, req)
		if err != nil {
			return zero, err
		}
		if ok {
			return value, nil
		}
		p.logger.Warn("service returned no value, retrying", "stage", stage, "attempt", attempt)
	}
}
