package services

import (
	"context"
	"fmt"
	"strconv"

	"opinion-etl/models"
	"opinion-etl/storage"
	"opinion-etl/utils"
)

// DeletedProduct reports what DeleteProduct removed.
type DeletedProduct struct {
	Product  models.ProductRecord `json:"deletedProductDetails"`
	Opinions int                  `json:"deletedOpinions"`
}

// RefreshOutcome reports what RefreshProduct changed.
type RefreshOutcome struct {
	NewOpinions    int                  `json:"newOpinions"`
	UpdatedProduct models.ProductRecord `json:"updatedProduct"`
}

// Curator serves the stored data: listing, deletion with aggregate
// maintenance, and refreshing a product from the source catalog.
type Curator struct {
	repo        storage.Repository
	locker      storage.Locker
	source      Source
	transformer *Transformer
	loader      *Loader
	logger      *utils.Logger
}

func NewCurator(repo storage.Repository, locker storage.Locker, source Source, transformer *Transformer, loader *Loader, logger *utils.Logger) *Curator {
	return &Curator{
		repo:        repo,
		locker:      locker,
		source:      source,
		transformer: transformer,
		loader:      loader,
		logger:      logger,
	}
}

// ListProducts returns every stored product with its opinions and rates.
func (c *Curator) ListProducts(ctx context.Context) ([]models.ProductOverview, error) {
	products, err := c.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.ProductOverview, 0, len(products))
	for _, p := range products {
		opinions, err := c.repo.ListOpinionsByProduct(ctx, p.ProductID)
		if err != nil {
			return nil, err
		}
		rate, err := c.repo.FindRate(ctx, p.ProductID)
		if err != nil && !models.IsNotFound(err) {
			return nil, err
		}
		out = append(out, models.ProductOverview{ProductRecord: p, Opinions: opinions, Rates: rate})
	}
	return out, nil
}

func (c *Curator) ListOpinions(ctx context.Context) ([]models.TransformedOpinion, error) {
	return c.repo.ListOpinions(ctx)
}

// DeleteOpinion removes one opinion and folds its removal into the product's
// aggregate. A product without an aggregate is left alone.
func (c *Curator) DeleteOpinion(ctx context.Context, opinionID string) (*models.TransformedOpinion, error) {
	found, err := c.repo.FindOpinion(ctx, opinionID)
	if err != nil {
		return nil, err
	}

	release := c.loader.shared()
	defer release()

	unlock, err := c.locker.Lock(ctx, productLockKey(found.ProductID))
	if err != nil {
		return nil, fmt.Errorf("delete opinion %s: lock: %w", opinionID, err)
	}
	defer unlock()

	removed, err := c.repo.DeleteOpinion(ctx, opinionID)
	if err != nil {
		return nil, err
	}
	c.logger.Info("[curator] Opinion %s of product %d deleted", opinionID, removed.ProductID)

	rate, err := c.repo.FindRate(ctx, removed.ProductID)
	if models.IsNotFound(err) {
		return removed, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete opinion %s: %w", opinionID, err)
	}

	updated := RemoveOpinion(*rate, *removed)
	if err := c.repo.UpdateRate(ctx, updated); err != nil {
		return nil, fmt.Errorf("delete opinion %s: %w", opinionID, err)
	}
	c.logger.Debug("[curator] Rates of product %d: %d opinions, overall %.2f",
		updated.ProductID, updated.OpinionsAmount, updated.OverallRate)
	return removed, nil
}

// DeleteAllOpinions clears every opinion and every aggregate. It waits for
// loads in flight and holds new ones back until done.
func (c *Curator) DeleteAllOpinions(ctx context.Context) error {
	release := c.loader.exclusive()
	defer release()
	return c.clearOpinions(ctx)
}

func (c *Curator) clearOpinions(ctx context.Context) error {
	if err := c.repo.DeleteAllOpinions(ctx); err != nil {
		return err
	}
	if err := c.repo.DeleteAllRates(ctx); err != nil {
		return err
	}
	c.logger.Info("[curator] Opinions and product rates cleared")
	return nil
}

// DeleteProduct removes a product with its opinions and aggregate. The
// aggregate is discarded, not recomputed.
func (c *Curator) DeleteProduct(ctx context.Context, productID int64) (*DeletedProduct, error) {
	release := c.loader.shared()
	defer release()

	unlock, err := c.locker.Lock(ctx, productLockKey(productID))
	if err != nil {
		return nil, fmt.Errorf("delete product %d: lock: %w", productID, err)
	}
	defer unlock()

	product, err := c.repo.DeleteProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	n, err := c.repo.DeleteOpinionsByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := c.repo.DeleteRate(ctx, productID); err != nil {
		return nil, err
	}

	c.logger.Info("[curator] Product %d deleted with %d opinions", productID, n)
	return &DeletedProduct{Product: *product, Opinions: n}, nil
}

// DeleteAll clears products, opinions and aggregates.
func (c *Curator) DeleteAll(ctx context.Context) error {
	release := c.loader.exclusive()
	defer release()

	if err := c.repo.DeleteAllProducts(ctx); err != nil {
		return err
	}
	if err := c.clearOpinions(ctx); err != nil {
		return err
	}
	c.logger.Info("[curator] Database cleared")
	return nil
}

// RefreshProduct re-scrapes a stored product, found in the catalog by its
// product code, loads any new opinions and overwrites its catalog fields.
func (c *Curator) RefreshProduct(ctx context.Context, productID int64) (*RefreshOutcome, error) {
	stored, err := c.repo.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	hits, err := c.source.Search(ctx, strconv.FormatInt(stored.ProductCode, 10))
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, &models.NotFoundError{Kind: "Product", ID: strconv.FormatInt(productID, 10), Where: "the source catalog"}
	}

	details, err := c.source.Extract(ctx, hits[0])
	if err != nil {
		return nil, err
	}
	transformed, err := c.transformer.Transform(details)
	if err != nil {
		return nil, err
	}
	if transformed.ProductID != productID {
		c.logger.Warn("[curator] Product code %d now resolves to product %d, expected %d",
			stored.ProductCode, transformed.ProductID, productID)
		return nil, &models.NotFoundError{Kind: "Product", ID: strconv.FormatInt(productID, 10), Where: "the source catalog"}
	}

	outcome, err := c.loader.Load(ctx, transformed)
	if err != nil {
		return nil, err
	}

	updated := transformed.ProductRecord
	updated.ProductID = productID
	if err := c.repo.UpdateProduct(ctx, updated); err != nil {
		return nil, err
	}

	c.logger.Info("[curator] Product %d refreshed, %d new opinions", productID, outcome.NewOpinions)
	return &RefreshOutcome{NewOpinions: outcome.NewOpinions, UpdatedProduct: updated}, nil
}
