package membership

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryKey struct {
	shop, branch, user uuid.UUID
}

func toMemoryKey(k Key) memoryKey {
	mk := memoryKey{shop: k.ShopID, user: k.UserID}
	if k.BranchID != nil {
		mk.branch = *k.BranchID
	}
	return mk
}

type memoryRepository struct {
	mu   sync.Mutex
	rows map[memoryKey]*Membership
}

// NewMemoryRepository returns a process-local repository. The key map plays
// the role of the unique constraint.
func NewMemoryRepository() Repository {
	return &memoryRepository{rows: make(map[memoryKey]*Membership)}
}

func (r *memoryRepository) FindActive(_ context.Context, key Key) (*Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[toMemoryKey(key)]
	if !ok || m.Revoked {
		return nil, ErrMembershipNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memoryRepository) Upsert(_ context.Context, m *Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	k := toMemoryKey(m.Key())
	if existing, ok := r.rows[k]; ok {
		if !existing.Revoked {
			return ErrDuplicateMembership
		}
		existing.Role = m.Role
		existing.Revoked = false
		existing.RevokedAt = nil
		existing.CreatedBy = m.CreatedBy
		existing.UpdatedAt = now
		*m = *existing
		return nil
	}
	m.CreatedAt, m.UpdatedAt = now, now
	cp := *m
	r.rows[k] = &cp
	return nil
}

func (r *memoryRepository) Revoke(_ context.Context, key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[toMemoryKey(key)]
	if !ok || m.Revoked {
		return ErrMembershipNotFound
	}
	now := time.Now().UTC()
	m.Revoked = true
	m.RevokedAt = &now
	m.UpdatedAt = now
	return nil
}

func (r *memoryRepository) ListActiveByShop(_ context.Context, shopID uuid.UUID) ([]Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := []Membership{}
	for _, m := range r.rows {
		if m.ShopID == shopID && !m.Revoked {
			members = append(members, *m)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].CreatedAt.Before(members[j].CreatedAt) })
	return members, nil
}

func (r *memoryRepository) ListShopIDsForUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, m := range r.rows {
		if m.UserID == userID && !m.Revoked && !seen[m.ShopID] {
			seen[m.ShopID] = true
			ids = append(ids, m.ShopID)
		}
	}
	return ids, nil
}
