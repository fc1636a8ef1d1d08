package storage

import (
	"context"
	"strconv"
	"sync"

	"opinion-etl/models"
)

// MemoryRepository keeps everything in process memory. Listing order is
// insertion order. It is safe for concurrent use.
type MemoryRepository struct {
	mu sync.RWMutex

	products     map[int64]models.ProductRecord
	productOrder []int64

	opinions     map[string]models.TransformedOpinion
	opinionOrder []string

	rates map[int64]models.ProductRate
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		products: make(map[int64]models.ProductRecord),
		opinions: make(map[string]models.TransformedOpinion),
		rates:    make(map[int64]models.ProductRate),
	}
}

func productNotFound(id int64) error {
	return &models.NotFoundError{Kind: "Product", ID: strconv.FormatInt(id, 10)}
}

func (m *MemoryRepository) FindProduct(_ context.Context, productID int64) (*models.ProductRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[productID]
	if !ok {
		return nil, productNotFound(productID)
	}
	p = cloneProduct(p)
	return &p, nil
}

func (m *MemoryRepository) InsertProduct(_ context.Context, p models.ProductRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.products[p.ProductID]; exists {
		return false, nil
	}
	m.products[p.ProductID] = cloneProduct(p)
	m.productOrder = append(m.productOrder, p.ProductID)
	return true, nil
}

func (m *MemoryRepository) UpdateProduct(_ context.Context, p models.ProductRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.products[p.ProductID]; !exists {
		return productNotFound(p.ProductID)
	}
	m.products[p.ProductID] = cloneProduct(p)
	return nil
}

func (m *MemoryRepository) DeleteProduct(_ context.Context, productID int64) (*models.ProductRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok {
		return nil, productNotFound(productID)
	}
	delete(m.products, productID)
	m.productOrder = removeKey(m.productOrder, productID)
	return &p, nil
}

func (m *MemoryRepository) ListProducts(_ context.Context) ([]models.ProductRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ProductRecord, 0, len(m.productOrder))
	for _, id := range m.productOrder {
		out = append(out, cloneProduct(m.products[id]))
	}
	return out, nil
}

func (m *MemoryRepository) DeleteAllProducts(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.products = make(map[int64]models.ProductRecord)
	m.productOrder = nil
	return nil
}

func (m *MemoryRepository) FindOpinion(_ context.Context, opinionID string) (*models.TransformedOpinion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.opinions[opinionID]
	if !ok {
		return nil, &models.NotFoundError{Kind: "Opinion", ID: opinionID}
	}
	o = cloneOpinion(o)
	return &o, nil
}

func (m *MemoryRepository) InsertOpinion(_ context.Context, o models.TransformedOpinion) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.opinions[o.OpinionID]; exists {
		return false, nil
	}
	m.opinions[o.OpinionID] = cloneOpinion(o)
	m.opinionOrder = append(m.opinionOrder, o.OpinionID)
	return true, nil
}

func (m *MemoryRepository) DeleteOpinion(_ context.Context, opinionID string) (*models.TransformedOpinion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.opinions[opinionID]
	if !ok {
		return nil, &models.NotFoundError{Kind: "Opinion", ID: opinionID}
	}
	delete(m.opinions, opinionID)
	m.opinionOrder = removeKey(m.opinionOrder, opinionID)
	return &o, nil
}

func (m *MemoryRepository) DeleteOpinionsByProduct(_ context.Context, productID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.opinionOrder[:0]
	removed := 0
	for _, id := range m.opinionOrder {
		if m.opinions[id].ProductID == productID {
			delete(m.opinions, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	m.opinionOrder = kept
	return removed, nil
}

func (m *MemoryRepository) ListOpinions(_ context.Context) ([]models.TransformedOpinion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.TransformedOpinion, 0, len(m.opinionOrder))
	for _, id := range m.opinionOrder {
		out = append(out, cloneOpinion(m.opinions[id]))
	}
	return out, nil
}

func (m *MemoryRepository) ListOpinionsByProduct(_ context.Context, productID int64) ([]models.TransformedOpinion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.TransformedOpinion{}
	for _, id := range m.opinionOrder {
		if o := m.opinions[id]; o.ProductID == productID {
			out = append(out, cloneOpinion(o))
		}
	}
	return out, nil
}

func (m *MemoryRepository) DeleteAllOpinions(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.opinions = make(map[string]models.TransformedOpinion)
	m.opinionOrder = nil
	return nil
}

func (m *MemoryRepository) FindRate(_ context.Context, productID int64) (*models.ProductRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rates[productID]
	if !ok {
		return nil, &models.NotFoundError{Kind: "ProductRate", ID: strconv.FormatInt(productID, 10)}
	}
	r = cloneRate(r)
	return &r, nil
}

func (m *MemoryRepository) InsertRate(_ context.Context, r models.ProductRate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rates[r.ProductID]; exists {
		return false, nil
	}
	m.rates[r.ProductID] = cloneRate(r)
	return true, nil
}

func (m *MemoryRepository) UpdateRate(_ context.Context, r models.ProductRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rates[r.ProductID]; !exists {
		return &models.NotFoundError{Kind: "ProductRate", ID: strconv.FormatInt(r.ProductID, 10)}
	}
	m.rates[r.ProductID] = cloneRate(r)
	return nil
}

func (m *MemoryRepository) DeleteRate(_ context.Context, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rates, productID)
	return nil
}

func (m *MemoryRepository) DeleteAllRates(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rates = make(map[int64]models.ProductRate)
	return nil
}

func (m *MemoryRepository) Close() error { return nil }

func removeKey[K comparable](keys []K, key K) []K {
	for i, k := range keys {
		if k == key {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}

// Stored values are copied on the way in and out so callers cannot mutate them.

func cloneProduct(p models.ProductRecord) models.ProductRecord {
	p.Attributes = append([]models.ProductAttribute(nil), p.Attributes...)
	return p
}

func cloneOpinion(o models.TransformedOpinion) models.TransformedOpinion {
	o.Grades = append([]models.Grade(nil), o.Grades...)
	return o
}

func cloneRate(r models.ProductRate) models.ProductRate {
	r.RatedAttributes = append([]models.RatedAttribute(nil), r.RatedAttributes...)
	return r
}
