package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"opinion-etl/models"
	"opinion-etl/storage"
	"opinion-etl/utils"
)

// Loader idempotently persists transformed products, their opinions and
// their rate aggregate.
type Loader struct {
	repo   storage.Repository
	locker storage.Locker
	logger *utils.Logger

	// held shared by per-product writes and exclusively while the store is
	// cleared. It only serialises writers inside this process.
	clearing sync.RWMutex
}

func NewLoader(repo storage.Repository, locker storage.Locker, logger *utils.Logger) *Loader {
	return &Loader{repo: repo, locker: locker, logger: logger}
}

func (l *Loader) shared() func() {
	l.clearing.RLock()
	return l.clearing.RUnlock
}

func (l *Loader) exclusive() func() {
	l.clearing.Lock()
	return l.clearing.Unlock
}

func productLockKey(productID int64) string {
	return "product:" + strconv.FormatInt(productID, 10)
}

// Load stores p. An existing product is left as is; only opinions not seen
// before are inserted. The stored aggregate is created when missing and
// replaced when at least one opinion was new. Writes are not transactional:
// a failure part-way keeps whatever was already saved.
func (l *Loader) Load(ctx context.Context, p models.TransformedProduct) (models.LoadOutcome, error) {
	var out models.LoadOutcome
	if p.ProductID <= 0 {
		return out, fmt.Errorf("load %q: %w", p.ProductNameID, models.ErrInvalidProduct)
	}

	release := l.shared()
	defer release()

	unlock, err := l.locker.Lock(ctx, productLockKey(p.ProductID))
	if err != nil {
		return out, fmt.Errorf("load %d: lock: %w", p.ProductID, err)
	}
	defer unlock()

	created, err := l.repo.InsertProduct(ctx, p.ProductRecord)
	if err != nil {
		return out, fmt.Errorf("load %d: %w", p.ProductID, err)
	}
	out.NewProduct = created

	for _, o := range p.Opinions {
		o.ProductID = p.ProductID
		created, err := l.repo.InsertOpinion(ctx, o)
		if err != nil {
			return out, fmt.Errorf("load %d: opinion %s: %w", p.ProductID, o.OpinionID, err)
		}
		if created {
			out.NewOpinions++
		}
	}

	rate := models.ProductRate{ProductID: p.ProductID, Rates: p.Rates}
	_, err = l.repo.FindRate(ctx, p.ProductID)
	switch {
	case models.IsNotFound(err):
		if _, err := l.repo.InsertRate(ctx, rate); err != nil {
			return out, fmt.Errorf("load %d: rates: %w", p.ProductID, err)
		}
	case err != nil:
		return out, fmt.Errorf("load %d: rates: %w", p.ProductID, err)
	case out.NewOpinions > 0:
		if err := l.repo.UpdateRate(ctx, rate); err != nil {
			return out, fmt.Errorf("load %d: rates: %w", p.ProductID, err)
		}
	}

	l.logger.Info("[loader] Product %d (%s): new product=%t, new opinions=%d",
		p.ProductID, p.ProductNameID, out.NewProduct, out.NewOpinions)
	return out, nil
}
