package report

import (
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/modules/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesSummary aggregates non-cancelled orders in [From, To).
type SalesSummary struct {
	ShopID   uuid.UUID            `json:"shop_id"`
	From     time.Time            `json:"from"`
	To       time.Time            `json:"to"`
	Orders   int                  `json:"orders"`
	Revenue  decimal.Decimal      `json:"revenue"`
	Branches []order.BranchTotals `json:"branches"`
}

// StockLine is one branch product in a stock snapshot.
type StockLine struct {
	BranchProductID uuid.UUID       `json:"branch_product_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku,omitempty"`
	Quantity        int             `json:"quantity"`
	MinQuantity     int             `json:"min_quantity"`
	LowStock        bool            `json:"low_stock"`
	Price           decimal.Decimal `json:"price"`
	Value           decimal.Decimal `json:"value"`
}

// StockSnapshot is the stock of one branch at TakenAt.
type StockSnapshot struct {
	ShopID     uuid.UUID       `json:"shop_id"`
	BranchID   uuid.UUID       `json:"branch_id"`
	BranchName string          `json:"branch_name"`
	TakenAt    time.Time       `json:"taken_at"`
	Lines      []StockLine     `json:"lines"`
	TotalUnits int             `json:"total_units"`
	TotalValue decimal.Decimal `json:"total_value"`
	LowStock   int             `json:"low_stock"`
}
