package storage

import (
	"context"

	"opinion-etl/models"
)

// ProductStore persists catalog entries keyed by productId.
type ProductStore interface {
	FindProduct(ctx context.Context, productID int64) (*models.ProductRecord, error)
	// InsertProduct stores p unless a product with the same id exists. It
	// reports whether a row was created.
	InsertProduct(ctx context.Context, p models.ProductRecord) (bool, error)
	UpdateProduct(ctx context.Context, p models.ProductRecord) error
	DeleteProduct(ctx context.Context, productID int64) (*models.ProductRecord, error)
	ListProducts(ctx context.Context) ([]models.ProductRecord, error)
	DeleteAllProducts(ctx context.Context) error
}

// OpinionStore persists normalised opinions keyed by opinionId.
type OpinionStore interface {
	FindOpinion(ctx context.Context, opinionID string) (*models.TransformedOpinion, error)
	InsertOpinion(ctx context.Context, o models.TransformedOpinion) (bool, error)
	DeleteOpinion(ctx context.Context, opinionID string) (*models.TransformedOpinion, error)
	DeleteOpinionsByProduct(ctx context.Context, productID int64) (int, error)
	ListOpinions(ctx context.Context) ([]models.TransformedOpinion, error)
	ListOpinionsByProduct(ctx context.Context, productID int64) ([]models.TransformedOpinion, error)
	DeleteAllOpinions(ctx context.Context) error
}

// RateStore persists one ProductRate per product.
type RateStore interface {
	FindRate(ctx context.Context, productID int64) (*models.ProductRate, error)
	InsertRate(ctx context.Context, r models.ProductRate) (bool, error)
	// UpdateRate replaces the stored aggregate of r.ProductID in place.
	UpdateRate(ctx context.Context, r models.ProductRate) error
	DeleteRate(ctx context.Context, productID int64) error
	DeleteAllRates(ctx context.Context) error
}

// Repository is the full storage backend. Lookups of absent keys return a
// *models.NotFoundError; storage failures a *models.PersistenceError.
type Repository interface {
	ProductStore
	OpinionStore
	RateStore
	Close() error
}

// Locker serialises work on a natural key across goroutines (LocalLocker) or
// processes (RedisLocker).
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// RawOpinionWriter is the interface for persisting unprocessed scraped opinions.
type RawOpinionWriter interface {
	WriteRaw(details []models.ProductDetails) error
	Close() error
}
