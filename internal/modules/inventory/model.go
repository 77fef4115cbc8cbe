package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the kind of stock movement.
type TransactionType string

const (
	Import     TransactionType = "IMPORT"
	Export     TransactionType = "EXPORT"
	Adjustment TransactionType = "ADJUSTMENT"
)

// BranchProduct is a catalog product stocked at one branch. Quantity is only
// ever changed through the ledger.
type BranchProduct struct {
	ID          uuid.UUID       `json:"id"`
	ShopID      uuid.UUID       `json:"shop_id"`
	BranchID    uuid.UUID       `json:"branch_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	MinQuantity int             `json:"min_quantity"`
	IsAvailable bool            `json:"is_available"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// LowStock reports whether the quantity is at or below the threshold.
func (bp *BranchProduct) LowStock() bool {
	return bp.Quantity <= bp.MinQuantity
}

func (bp *BranchProduct) Key() Key {
	return Key{ShopID: bp.ShopID, BranchID: bp.BranchID, BranchProductID: bp.ID}
}

// Key addresses one stock counter.
type Key struct {
	ShopID          uuid.UUID `json:"shop_id"`
	BranchID        uuid.UUID `json:"branch_id"`
	BranchProductID uuid.UUID `json:"branch_product_id"`
}

// Transaction is an immutable ledger entry. Seq orders entries of the same
// key and breaks timestamp ties.
type Transaction struct {
	ID                uuid.UUID       `json:"id"`
	Seq               int64           `json:"seq"`
	ShopID            uuid.UUID       `json:"shop_id"`
	BranchID          uuid.UUID       `json:"branch_id"`
	BranchProductID   uuid.UUID       `json:"branch_product_id"`
	Type              TransactionType `json:"type"`
	QuantityDelta     int             `json:"quantity_delta"`
	ResultingQuantity int             `json:"resulting_quantity"`
	Note              string          `json:"note,omitempty"`
	ReferenceID       *string         `json:"reference_id,omitempty"`
	ActorID           uuid.UUID       `json:"actor_id"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Movement is a request to change stock. Quantity is the number of units for
// imports and exports and the target level for adjustments.
type Movement struct {
	Key
	Quantity    int       `json:"quantity"`
	Note        string    `json:"note"`
	ReferenceID string    `json:"reference_id"`
	ActorID     uuid.UUID `json:"-"`
}

// Result of a ledger mutation. Skipped is set for shops that do not track
// stock; nothing was written in that case.
type Result struct {
	Quantity    int          `json:"quantity"`
	Transaction *Transaction `json:"transaction,omitempty"`
	Skipped     bool         `json:"skipped"`
}

// Verification compares stored stock with a replay of its history.
type Verification struct {
	Key            Key  `json:"key"`
	StoredQuantity int  `json:"stored_quantity"`
	ReplayQuantity int  `json:"replay_quantity"`
	Transactions   int  `json:"transactions"`
	Consistent     bool `json:"consistent"`
}
