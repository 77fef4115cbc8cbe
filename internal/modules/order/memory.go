package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memoryRepository struct {
	mu      sync.RWMutex
	orders  map[uuid.UUID]Order
	numbers map[string]uuid.UUID
}

// NewMemoryRepository returns a process-local repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		orders:  make(map[uuid.UUID]Order),
		numbers: make(map[string]uuid.UUID),
	}
}

func (r *memoryRepository) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.numbers[o.OrderNumber]; taken {
		return ErrDuplicateOrder
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	stored := *o
	stored.Items = make([]Item, len(o.Items))
	for i, item := range o.Items {
		item.OrderID = o.ID
		o.Items[i].OrderID = o.ID
		stored.Items[i] = item
	}
	r.orders[o.ID] = stored
	r.numbers[o.OrderNumber] = o.ID
	return nil
}

func (r *memoryRepository) Get(_ context.Context, shopID, id uuid.UUID) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok || o.ShopID != shopID {
		return nil, ErrOrderNotFound
	}
	o.Items = append([]Item(nil), o.Items...)
	return &o, nil
}

func (r *memoryRepository) ListByBranch(_ context.Context, shopID, branchID uuid.UUID, filter Filter, page httpx.Page) ([]Order, int, error) {
	r.mu.RLock()
	var matched []Order
	for _, o := range r.orders {
		if o.ShopID != shopID || o.BranchID != branchID || !filter.match(o) {
			continue
		}
		o.Items = nil
		matched = append(matched, o)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].OrderNumber > matched[j].OrderNumber
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return append([]Order{}, matched[start:end]...), total, nil
}

func (r *memoryRepository) UpdateStatus(_ context.Context, shopID, id uuid.UUID, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.ShopID != shopID {
		return ErrOrderNotFound
	}
	if o.Status != from {
		return ErrStatusChanged
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return nil
}

func (r *memoryRepository) Totals(_ context.Context, shopID uuid.UUID, branchID *uuid.UUID, from, to time.Time) ([]BranchTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byBranch := map[uuid.UUID]*BranchTotals{}
	filter := Filter{From: from, To: to}
	for _, o := range r.orders {
		if o.ShopID != shopID || o.Status == StatusCancelled || !filter.match(o) {
			continue
		}
		if branchID != nil && o.BranchID != *branchID {
			continue
		}
		t, ok := byBranch[o.BranchID]
		if !ok {
			t = &BranchTotals{BranchID: o.BranchID, Revenue: decimal.Zero}
			byBranch[o.BranchID] = t
		}
		t.Orders++
		t.Revenue = t.Revenue.Add(o.Total)
	}

	totals := make([]BranchTotals, 0, len(byBranch))
	for _, t := range byBranch {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].BranchID.String() < totals[j].BranchID.String()
	})
	return totals, nil
}

func (f Filter) match(o Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && o.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !o.CreatedAt.Before(f.To) {
		return false
	}
	return true
}
