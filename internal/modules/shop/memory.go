package shop

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu       sync.RWMutex
	shops    map[uuid.UUID]Shop
	branches map[uuid.UUID]Branch
}

// NewMemoryRepository returns a process-local repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		shops:    make(map[uuid.UUID]Shop),
		branches: make(map[uuid.UUID]Branch),
	}
}

func (r *memoryRepository) CreateShop(_ context.Context, s *Shop) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	r.shops[s.ID] = *s
	return nil
}

func (r *memoryRepository) GetShop(_ context.Context, id uuid.UUID) (*Shop, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shops[id]
	if !ok {
		return nil, ErrShopNotFound
	}
	return &s, nil
}

func (r *memoryRepository) UpdateShop(_ context.Context, s *Shop) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shops[s.ID]; !ok {
		return ErrShopNotFound
	}
	s.UpdatedAt = time.Now().UTC()
	r.shops[s.ID] = *s
	return nil
}

func (r *memoryRepository) ListShopsByIDs(_ context.Context, ids []uuid.UUID) ([]Shop, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	shops := []Shop{}
	for _, id := range ids {
		if s, ok := r.shops[id]; ok {
			shops = append(shops, s)
		}
	}
	sort.Slice(shops, func(i, j int) bool { return shops[i].Name < shops[j].Name })
	return shops, nil
}

func (r *memoryRepository) CreateBranch(_ context.Context, b *Branch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	r.branches[b.ID] = *b
	return nil
}

func (r *memoryRepository) GetBranch(_ context.Context, shopID, branchID uuid.UUID) (*Branch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.branches[branchID]
	if !ok || b.ShopID != shopID {
		return nil, ErrBranchNotFound
	}
	return &b, nil
}

func (r *memoryRepository) ListBranches(_ context.Context, shopID uuid.UUID) ([]Branch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	branches := []Branch{}
	for _, b := range r.branches {
		if b.ShopID == shopID {
			branches = append(branches, b)
		}
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].CreatedAt.Before(branches[j].CreatedAt) })
	return branches, nil
}

func (r *memoryRepository) CountBranches(ctx context.Context, shopID uuid.UUID) (int, error) {
	branches, err := r.ListBranches(ctx, shopID)
	return len(branches), err
}
