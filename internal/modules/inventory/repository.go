package inventory

import (
	"context"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/google/uuid"
)

// Mutation derives the transaction to append from the locked current row.
// Returning an error aborts the unit of work without writing anything.
type Mutation func(current BranchProduct) (*Transaction, error)

// Repository defines branch product and ledger storage.
type Repository interface {
	CreateBranchProduct(ctx context.Context, bp *BranchProduct) error
	GetBranchProduct(ctx context.Context, key Key) (*BranchProduct, error)
	ListBranchProducts(ctx context.Context, shopID, branchID uuid.UUID) ([]BranchProduct, error)
	// UpdateSettings writes the set fields of req and returns the stored row.
	// Unset fields and quantity are left as they are.
	UpdateSettings(ctx context.Context, key Key, req SettingsRequest) (*BranchProduct, error)

	// Apply locks the row for key, runs mutate, stores the resulting quantity
	// and appends the transaction as one atomic unit. The returned transaction
	// carries its assigned Seq and CreatedAt.
	Apply(ctx context.Context, key Key, mutate Mutation) (*Transaction, error)
	// History returns transactions newest first and the total count.
	History(ctx context.Context, key Key, page httpx.Page) ([]Transaction, int, error)
	// Replay returns every transaction for key oldest first.
	Replay(ctx context.Context, key Key) ([]Transaction, error)
}
