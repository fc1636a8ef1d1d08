package services

import (
	"context"
	"sync"

	"opinion-etl/models"
	"opinion-etl/storage"
	"opinion-etl/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func rawOpinion(id, overall string, grades ...[2]string) models.Opinion {
	raw := []models.RawGrade{}
	for _, g := range grades {
		raw = append(raw, models.RawGrade{Attribute: g[0], Grade: g[1]})
	}
	return models.Opinion{
		OpinionID:      id,
		OverallRate:    overall,
		Grades:         raw,
		Date:           "05-06-2020,",
		UsefulVotes:    "3",
		NotUsefulVotes: "1",
	}
}

func details(productID, code, nameID string, opinions ...models.Opinion) models.ProductDetails {
	if opinions == nil {
		opinions = []models.Opinion{}
	}
	return models.ProductDetails{
		ProductID:      productID,
		ProductCode:    code,
		ProductNameID:  nameID,
		Title:          "Title " + nameID,
		Brand:          "Brand",
		Category:       "Telewizory",
		Attributes:     []models.ProductAttribute{{Name: "Ekran", Value: "55"}},
		Opinions:       opinions,
		OpinionsAmount: len(opinions),
	}
}

// fakeSource serves canned search hits and product details. When gate is
// set, Extract waits for it to close or for ctx to end.
type fakeSource struct {
	mu        sync.Mutex
	hits      map[string][]models.Product
	byLink    map[string]models.ProductDetails
	searchErr error
	gate      chan struct{}
	extracted []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{hits: map[string][]models.Product{}, byLink: map[string]models.ProductDetails{}}
}

func (f *fakeSource) add(keyword string, d models.ProductDetails) models.Product {
	p := models.Product{LinkToProduct: "/p/" + d.ProductNameID + ".bhtml", Title: d.Title}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[keyword] = append(f.hits[keyword], p)
	f.byLink[p.LinkToProduct] = d
	return p
}

func (f *fakeSource) Search(_ context.Context, keyword string) ([]models.Product, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[keyword], nil
}

func (f *fakeSource) Extract(ctx context.Context, p models.Product) (models.ProductDetails, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return models.ProductDetails{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extracted = append(f.extracted, p.LinkToProduct)
	d, ok := f.byLink[p.LinkToProduct]
	if !ok {
		return models.ProductDetails{}, &models.FetchError{URL: p.LinkToProduct, StatusCode: 404}
	}
	return d, nil
}

type fixture struct {
	repo        *storage.MemoryRepository
	source      *fakeSource
	transformer *Transformer
	loader      *Loader
	curator     *Curator
	runs        *RunRegistry
	pipeline    *Pipeline
}

func newFixture() *fixture {
	logger := newTestLogger()
	repo := storage.NewMemoryRepository()
	locker := storage.NewLocalLocker()
	source := newFakeSource()
	transformer := NewTransformer(logger)
	loader := NewLoader(repo, locker, logger)
	runs := NewRunRegistry()
	return &fixture{
		repo:        repo,
		source:      source,
		transformer: transformer,
		loader:      loader,
		curator:     NewCurator(repo, locker, source, transformer, loader, logger),
		runs:        runs,
		pipeline:    NewPipeline(source, transformer, loader, runs, 4, logger),
	}
}
