package order

import (
	"context"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/google/uuid"
)

// Repository defines data access for orders.
type Repository interface {
	// Create persists a new order and its items atomically.
	Create(ctx context.Context, o *Order) error

	// Get returns an order with its items. The order must belong to shopID.
	Get(ctx context.Context, shopID, id uuid.UUID) (*Order, error)

	// ListByBranch returns orders newest first, without items.
	ListByBranch(ctx context.Context, shopID, branchID uuid.UUID, filter Filter, page httpx.Page) ([]Order, int, error)

	// UpdateStatus moves the order from one status to another. It returns
	// ErrStatusChanged when the stored status is no longer from.
	UpdateStatus(ctx context.Context, shopID, id uuid.UUID, from, to Status) error

	// Totals sums non-cancelled orders created in [from, to) per branch.
	// A nil branchID covers every branch of the shop.
	Totals(ctx context.Context, shopID uuid.UUID, branchID *uuid.UUID, from, to time.Time) ([]BranchTotals, error)
}
