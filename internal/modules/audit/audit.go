// Package audit records who changed what in a shop. Recording is best effort:
// callers never fail because the audit write failed.
package audit

import (
	"context"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/google/uuid"
)

// Target types.
const (
	TargetShop          = "SHOP"
	TargetBranch        = "BRANCH"
	TargetMembership    = "MEMBERSHIP"
	TargetProduct       = "PRODUCT"
	TargetBranchProduct = "BRANCH_PRODUCT"
	TargetOrder         = "ORDER"
	TargetSubscription  = "SUBSCRIPTION"
)

// Entry is one audit record.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	ActorID     uuid.UUID `json:"actor_id"`
	ShopID      uuid.UUID `json:"shop_id"`
	TargetID    string    `json:"target_id"`
	TargetType  string    `json:"target_type"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository persists entries.
type Repository interface {
	Record(ctx context.Context, entry *Entry) error
	// ListByShop returns entries newest first and the total count.
	ListByShop(ctx context.Context, shopID uuid.UUID, page httpx.Page) ([]Entry, int, error)
}

// Logger is what other modules depend on.
type Logger interface {
	Log(ctx context.Context, entry Entry)
}
