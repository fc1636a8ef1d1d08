package services

import (
	"context"
	"fmt"
	"time"

	"opinion-etl/models"
	"opinion-etl/storage"
	"opinion-etl/utils"
)

// Source is where products are searched for and scraped from.
type Source interface {
	Search(ctx context.Context, keyword string) ([]models.Product, error)
	Extract(ctx context.Context, p models.Product) (models.ProductDetails, error)
}

// RunOptions tune a full pipeline run.
type RunOptions struct {
	// Limit caps how many search hits are processed; 0 means all.
	Limit int
	// OnExtracted, when set, receives the successfully extracted details
	// before they are transformed.
	OnExtracted func(runID string, details []models.ProductDetails)
}

// AuditRaw returns an OnExtracted hook that dumps the raw opinions of every
// run to w. Write failures are logged and never fail the run.
func AuditRaw(w storage.RawOpinionWriter, logger *utils.Logger) func(runID string, details []models.ProductDetails) {
	return func(runID string, details []models.ProductDetails) {
		if err := w.WriteRaw(details); err != nil {
			logger.Error("[pipeline] Run %s: raw opinions not written: %v", runID, err)
			return
		}
		logger.Debug("[pipeline] Run %s: raw opinions of %d products written", runID, len(details))
	}
}

// Pipeline sequences extract, transform and load over batches. Every item
// succeeds or fails on its own and failures travel as envelopes.
type Pipeline struct {
	source      Source
	transformer *Transformer
	loader      *Loader
	runs        *RunRegistry
	concurrency int
	logger      *utils.Logger
}

func NewPipeline(source Source, transformer *Transformer, loader *Loader, runs *RunRegistry, concurrency int, logger *utils.Logger) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		source:      source,
		transformer: transformer,
		loader:      loader,
		runs:        runs,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Search wraps a keyword search in its envelope.
func (p *Pipeline) Search(ctx context.Context, keyword string) models.SearchResult {
	products, err := p.source.Search(ctx, keyword)
	if err != nil {
		p.logger.Error("[pipeline] Search %q failed: %v", keyword, err)
		return models.SearchResult{Error: models.ErrorMessage(err)}
	}
	return models.SearchResult{Success: true, Data: products}
}

func (p *Pipeline) Extract(ctx context.Context, products []models.Product) []models.Result[models.ProductDetails] {
	return utils.MapOrdered(ctx, p.concurrency, products, func(ctx context.Context, _ int, prod models.Product) models.Result[models.ProductDetails] {
		d, err := p.source.Extract(ctx, prod)
		if err != nil {
			p.logger.Warn("[pipeline] Extract %s failed: %v", prod.LinkToProduct, err)
			return models.Failed[models.ProductDetails](err)
		}
		return models.Succeeded(d)
	})
}

func (p *Pipeline) Transform(ctx context.Context, details []models.ProductDetails) []models.Result[models.TransformedProduct] {
	return utils.MapOrdered(ctx, p.concurrency, details, func(ctx context.Context, _ int, d models.ProductDetails) models.Result[models.TransformedProduct] {
		if err := ctx.Err(); err != nil {
			return models.Failed[models.TransformedProduct](err)
		}
		tp, err := p.transformer.Transform(d)
		if err != nil {
			p.logger.Warn("[pipeline] Transform %s failed: %v", d.ProductNameID, err)
			return models.Failed[models.TransformedProduct](err)
		}
		return models.Succeeded(tp)
	})
}

func (p *Pipeline) Load(ctx context.Context, products []models.TransformedProduct) []models.Result[models.LoadOutcome] {
	return utils.MapOrdered(ctx, p.concurrency, products, func(ctx context.Context, _ int, tp models.TransformedProduct) models.Result[models.LoadOutcome] {
		out, err := p.loader.Load(ctx, tp)
		if err != nil {
			p.logger.Warn("[pipeline] Load %d failed: %v", tp.ProductID, err)
			return models.Failed[models.LoadOutcome](err)
		}
		return models.Succeeded(out)
	})
}

// Run searches for keyword and pushes the hits through all three stages.
// Starting another run marks this one stale and cancels its remaining work.
func (p *Pipeline) Run(ctx context.Context, keyword string, opts RunOptions) (models.RunSummary, error) {
	run := p.runs.Begin(ctx)
	defer run.Finish()

	summary := models.RunSummary{RunID: run.ID, Keyword: keyword, Started: time.Now()}
	p.logger.Info("[pipeline] Run %s started for %q", run.ID, keyword)

	found, err := p.source.Search(run.Ctx, keyword)
	if err != nil {
		summary.Finished = time.Now()
		summary.Stale = run.Stale()
		return summary, fmt.Errorf("run %s: search: %w", run.ID, err)
	}
	summary.Found = len(found)

	seen := utils.NewKeySet()
	products := make([]models.Product, 0, len(found))
	for _, prod := range found {
		if seen.Add(prod.LinkToProduct) {
			products = append(products, prod)
		}
	}
	if opts.Limit > 0 && len(products) > opts.Limit {
		products = products[:opts.Limit]
	}

	extracted := keepSucceeded(p.Extract(run.Ctx, products), &summary, func(i int) string { return products[i].LinkToProduct })
	summary.Extracted = len(extracted)
	if opts.OnExtracted != nil && len(extracted) > 0 {
		opts.OnExtracted(run.ID, extracted)
	}

	transformed := keepSucceeded(p.Transform(run.Ctx, extracted), &summary, func(i int) string { return extracted[i].ProductNameID })
	summary.Transformed = len(transformed)

	loadResults := p.Load(run.Ctx, transformed)
	for i, res := range loadResults {
		if !res.Succeed {
			summary.Failed++
			summary.Errors = append(summary.Errors, transformed[i].ProductNameID+": "+res.Error)
			continue
		}
		summary.Loaded++
		if res.Data.NewProduct {
			summary.NewProducts++
		}
		summary.NewOpinions += res.Data.NewOpinions
	}

	summary.Finished = time.Now()
	summary.Stale = run.Stale()
	if summary.Stale {
		p.logger.Warn("[pipeline] Run %s was superseded, its results are stale", run.ID)
	}
	p.logger.Info("[pipeline] Run %s done: %d found, %d loaded, %d failed, %d new products, %d new opinions",
		run.ID, summary.Found, summary.Loaded, summary.Failed, summary.NewProducts, summary.NewOpinions)
	return summary, nil
}

// keepSucceeded returns the payloads of successful envelopes and records the
// failures, labelled by name(i), in the summary.
func keepSucceeded[T any](results []models.Result[T], summary *models.RunSummary, name func(i int) string) []T {
	out := make([]T, 0, len(results))
	for i, res := range results {
		if !res.Succeed {
			summary.Failed++
			summary.Errors = append(summary.Errors, name(i)+": "+res.Error)
			continue
		}
		out = append(out, *res.Data)
	}
	return out
}
