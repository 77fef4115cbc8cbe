package shop

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines shop and branch storage.
type Repository interface {
	CreateShop(ctx context.Context, shop *Shop) error
	GetShop(ctx context.Context, id uuid.UUID) (*Shop, error)
	UpdateShop(ctx context.Context, shop *Shop) error
	ListShopsByIDs(ctx context.Context, ids []uuid.UUID) ([]Shop, error)

	CreateBranch(ctx context.Context, branch *Branch) error
	GetBranch(ctx context.Context, shopID, branchID uuid.UUID) (*Branch, error)
	ListBranches(ctx context.Context, shopID uuid.UUID) ([]Branch, error)
	CountBranches(ctx context.Context, shopID uuid.UUID) (int, error)
}
