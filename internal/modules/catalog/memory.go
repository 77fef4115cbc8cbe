package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepo struct {
	mu       sync.RWMutex
	products map[uuid.UUID]Product
}

func NewMemoryRepository() Repository {
	return &memoryRepo{products: make(map[uuid.UUID]Product)}
}

func (r *memoryRepo) skuTaken(p *Product) bool {
	if p.SKU == "" {
		return false
	}
	for _, other := range r.products {
		if other.ShopID == p.ShopID && other.SKU == p.SKU && other.ID != p.ID {
			return true
		}
	}
	return false
}

func (r *memoryRepo) Create(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.skuTaken(p) {
		return ErrSKUTaken
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.products[p.ID] = *p
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, shopID, id uuid.UUID) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok || p.ShopID != shopID {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (r *memoryRepo) List(_ context.Context, shopID uuid.UUID, filter Filter) ([]*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	products := []*Product{}
	for _, p := range r.products {
		if p.ShopID != shopID {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		cp := p
		products = append(products, &cp)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (r *memoryRepo) Update(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.products[p.ID]
	if !ok || existing.ShopID != p.ShopID {
		return ErrProductNotFound
	}
	if r.skuTaken(p) {
		return ErrSKUTaken
	}
	p.UpdatedAt = time.Now().UTC()
	r.products[p.ID] = *p
	return nil
}
