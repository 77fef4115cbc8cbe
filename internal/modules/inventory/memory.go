package inventory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/google/uuid"
)

type memoryRepository struct {
	// keyLocks serializes Apply per branch product.
	keyLocks sync.Map

	mu       sync.RWMutex
	products map[uuid.UUID]BranchProduct
	ledger   map[uuid.UUID][]Transaction
	seq      int64
}

// NewMemoryRepository returns a process-local repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		products: make(map[uuid.UUID]BranchProduct),
		ledger:   make(map[uuid.UUID][]Transaction),
	}
}

func (r *memoryRepository) lockFor(id uuid.UUID) *sync.Mutex {
	l, _ := r.keyLocks.LoadOrStore(id, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func (r *memoryRepository) CreateBranchProduct(_ context.Context, bp *BranchProduct) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.products {
		if existing.BranchID == bp.BranchID && existing.ProductID == bp.ProductID {
			return ErrBranchProductExists
		}
	}
	now := time.Now().UTC()
	bp.Quantity = 0
	bp.CreatedAt, bp.UpdatedAt = now, now
	r.products[bp.ID] = *bp
	return nil
}

func (r *memoryRepository) get(key Key) (BranchProduct, bool) {
	bp, ok := r.products[key.BranchProductID]
	if !ok || bp.ShopID != key.ShopID || bp.BranchID != key.BranchID {
		return BranchProduct{}, false
	}
	return bp, true
}

func (r *memoryRepository) GetBranchProduct(_ context.Context, key Key) (*BranchProduct, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bp, ok := r.get(key)
	if !ok {
		return nil, ErrProductNotFound
	}
	return &bp, nil
}

func (r *memoryRepository) ListBranchProducts(_ context.Context, shopID, branchID uuid.UUID) ([]BranchProduct, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	products := []BranchProduct{}
	for _, bp := range r.products {
		if bp.ShopID == shopID && bp.BranchID == branchID {
			products = append(products, bp)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].CreatedAt.Before(products[j].CreatedAt) })
	return products, nil
}

func (r *memoryRepository) UpdateSettings(_ context.Context, key Key, req SettingsRequest) (*BranchProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.get(key)
	if !ok {
		return nil, ErrProductNotFound
	}
	if req.Price != nil {
		stored.Price = *req.Price
	}
	if req.MinQuantity != nil {
		stored.MinQuantity = *req.MinQuantity
	}
	if req.IsAvailable != nil {
		stored.IsAvailable = *req.IsAvailable
	}
	stored.UpdatedAt = time.Now().UTC()
	r.products[stored.ID] = stored
	return &stored, nil
}

func (r *memoryRepository) Apply(_ context.Context, key Key, mutate Mutation) (*Transaction, error) {
	l := r.lockFor(key.BranchProductID)
	l.Lock()
	defer l.Unlock()

	r.mu.RLock()
	current, ok := r.get(key)
	r.mu.RUnlock()
	if !ok {
		return nil, ErrProductNotFound
	}

	t, err := mutate(current)
	if err != nil {
		return nil, err
	}
	if t.ResultingQuantity < 0 {
		return nil, ErrInsufficientStock
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Settings may have changed while mutate ran; only quantity is ours.
	stored, ok := r.get(key)
	if !ok {
		return nil, ErrProductNotFound
	}
	now := time.Now().UTC()
	stored.Quantity = t.ResultingQuantity
	stored.UpdatedAt = now
	r.products[stored.ID] = stored
	r.seq++
	t.Seq = r.seq
	t.CreatedAt = now
	r.ledger[stored.ID] = append(r.ledger[stored.ID], *t)
	return t, nil
}

func (r *memoryRepository) History(_ context.Context, key Key, page httpx.Page) ([]Transaction, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.get(key); !ok {
		return []Transaction{}, 0, nil
	}
	all := r.ledger[key.BranchProductID]
	total := len(all)
	out := []Transaction{}
	for i := total - 1 - page.Offset(); i >= 0 && len(out) < page.Size; i-- {
		out = append(out, all[i])
	}
	return out, total, nil
}

func (r *memoryRepository) Replay(_ context.Context, key Key) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.get(key); !ok {
		return []Transaction{}, nil
	}
	return append([]Transaction(nil), r.ledger[key.BranchProductID]...), nil
}
