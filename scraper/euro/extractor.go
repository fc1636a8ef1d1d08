package euro

import (
	"context"
	"fmt"

	"opinion-etl/models"
	"opinion-etl/scraper"
	"opinion-etl/utils"
)

// Extractor turns catalog pages into Product and ProductDetails records.
type Extractor struct {
	fetcher     scraper.Fetcher
	concurrency int
	logger      *utils.Logger
}

// New creates an Extractor. concurrency bounds how many pages of one listing
// are fetched at the same time.
func New(fetcher scraper.Fetcher, concurrency int, logger *utils.Logger) *Extractor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Extractor{fetcher: fetcher, concurrency: concurrency, logger: logger}
}

// Search returns the products matching keyword, in result order. A nil slice
// with a nil error means the catalog found nothing.
func (e *Extractor) Search(ctx context.Context, keyword string) ([]models.Product, error) {
	doc, err := e.fetcher.Fetch(ctx, SearchPath(keyword, 0))
	if err != nil {
		return nil, err
	}
	page, err := parseDocument(doc)
	if err != nil {
		return nil, err
	}

	if page.Find(".product-box").Length() == 0 {
		e.logger.Info("[extractor] No products found for %q", keyword)
		return nil, nil
	}

	lastPage := lastPageNumber(page)
	if lastPage == 0 {
		products := parseProductBoxes(page, doc.Path)
		e.logger.Info("[extractor] Search %q: %d products on a single page", keyword, len(products))
		return products, nil
	}

	products, err := fetchPages(ctx, e.concurrency, lastPage, func(ctx context.Context, n int) ([]models.Product, error) {
		doc, err := e.fetcher.Fetch(ctx, SearchPath(keyword, n))
		if err != nil {
			return nil, err
		}
		page, err := parseDocument(doc)
		if err != nil {
			return nil, err
		}
		return parseProductBoxes(page, ""), nil
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", keyword, err)
	}

	e.logger.Info("[extractor] Search %q: %d products across %d pages", keyword, len(products), lastPage)
	return products, nil
}

// Extract scrapes the product page of p and all of its opinion pages.
func (e *Extractor) Extract(ctx context.Context, p models.Product) (models.ProductDetails, error) {
	if p.LinkToProduct == "" {
		return models.ProductDetails{}, &models.ParseError{Source: "product", Field: "linkToProduct"}
	}

	doc, err := e.fetcher.Fetch(ctx, p.LinkToProduct)
	if err != nil {
		return models.ProductDetails{}, err
	}
	page, err := parseDocument(doc)
	if err != nil {
		return models.ProductDetails{}, err
	}

	details, err := parseProductPage(page, p.LinkToProduct, doc.URL)
	if err != nil {
		return models.ProductDetails{}, err
	}

	opinions := []models.Opinion{}
	if page.Find("#opinion-list-empty").Length() == 0 {
		opinions, err = e.opinions(ctx, details.ProductNameID, lastPageNumber(page))
		if err != nil {
			return models.ProductDetails{}, fmt.Errorf("opinions of %s: %w", details.ProductNameID, err)
		}
	}

	details.Opinions = opinions
	details.OpinionsAmount = len(opinions)

	e.logger.Debug("[extractor] %s (%s): %d attributes, %d opinions",
		details.ProductNameID, details.ProductID, len(details.Attributes), details.OpinionsAmount)
	return details, nil
}

func (e *Extractor) opinions(ctx context.Context, productNameID string, lastPage int) ([]models.Opinion, error) {
	fetchPage := func(ctx context.Context, n int) ([]models.Opinion, error) {
		doc, err := e.fetcher.Fetch(ctx, OpinionPath(productNameID, n))
		if err != nil {
			return nil, err
		}
		page, err := parseDocument(doc)
		if err != nil {
			return nil, err
		}
		return parseOpinions(page, doc.URL)
	}

	if lastPage == 0 {
		return fetchPage(ctx, 1)
	}
	return fetchPages(ctx, e.concurrency, lastPage, fetchPage)
}
