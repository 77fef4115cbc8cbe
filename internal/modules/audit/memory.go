package audit

import (
	"context"
	"sync"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/google/uuid"
)

// MemoryRepository keeps entries in insertion order.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []Entry
	// Fail, when set, is returned from Record.
	Fail error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Record(_ context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	entry.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryRepository) ListByShop(_ context.Context, shopID uuid.UUID, page httpx.Page) ([]Entry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []Entry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].ShopID == shopID {
			matched = append(matched, r.entries[i])
		}
	}
	total := len(matched)
	start := page.Offset()
	if start >= total {
		return []Entry{}, total, nil
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// Actions returns the recorded actions for shopID, oldest first.
func (r *MemoryRepository) Actions(shopID uuid.UUID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		if e.ShopID == shopID {
			out = append(out, e.Action)
		}
	}
	return out
}
