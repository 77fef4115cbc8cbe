package membership

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines membership storage. Implementations enforce that at most
// one non-revoked row exists per Key.
type Repository interface {
	// FindActive returns ErrMembershipNotFound when no active row matches.
	FindActive(ctx context.Context, key Key) (*Membership, error)
	// Upsert inserts m or reactivates a revoked row with the same key. It
	// returns ErrDuplicateMembership when an active row already exists.
	Upsert(ctx context.Context, m *Membership) error
	// Revoke returns ErrMembershipNotFound when no active row matches.
	Revoke(ctx context.Context, key Key) error
	ListActiveByShop(ctx context.Context, shopID uuid.UUID) ([]Membership, error)
	ListShopIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}
