package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for product data storage.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, shopID, id uuid.UUID) (*Product, error)
	List(ctx context.Context, shopID uuid.UUID, filter Filter) ([]*Product, error)
	Update(ctx context.Context, p *Product) error
}
