package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReady      Status = "READY"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// transitions defines the allowed status state machine.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusReady},
	StatusReady:      {StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanMoveTo reports whether next is reachable from s in one step.
func (s Status) CanMoveTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// taxRate is the standard VAT rate applied to the discounted subtotal.
var taxRate = decimal.RequireFromString("0.16")

// Order is a sale at one branch. Its items draw stock through the inventory
// ledger with the order id as reference.
type Order struct {
	ID          uuid.UUID       `json:"id"`
	ShopID      uuid.UUID       `json:"shop_id"`
	BranchID    uuid.UUID       `json:"branch_id"`
	CustomerID  *uuid.UUID      `json:"customer_id,omitempty"`
	OrderNumber string          `json:"order_number"`
	Status      Status          `json:"status"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	Notes       string          `json:"notes,omitempty"`
	CreatedBy   uuid.UUID       `json:"created_by"`
	Items       []Item          `json:"items,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Item is a single line of an order.
type Item struct {
	ID              uuid.UUID       `json:"id"`
	OrderID         uuid.UUID       `json:"order_id"`
	BranchProductID uuid.UUID       `json:"branch_product_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

// Line is what the caller asks for: a branch product and a quantity.
type Line struct {
	BranchProductID uuid.UUID `json:"branch_product_id"`
	Quantity        int       `json:"quantity"`
}

// PlaceOrderRequest is the payload for creating a new order.
type PlaceOrderRequest struct {
	ShopID     uuid.UUID       `json:"-"`
	BranchID   uuid.UUID       `json:"-"`
	CustomerID *uuid.UUID      `json:"customer_id,omitempty"`
	Items      []Line          `json:"items"`
	Notes      string          `json:"notes,omitempty"`
	Discount   decimal.Decimal `json:"discount"`
}

// UpdateStatusRequest is the payload for advancing an order's status.
type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

// Filter narrows branch order listings.
type Filter struct {
	Status Status
	From   time.Time
	To     time.Time
}

// BranchTotals aggregates non-cancelled orders of one branch.
type BranchTotals struct {
	BranchID uuid.UUID       `json:"branch_id"`
	Orders   int             `json:"orders"`
	Revenue  decimal.Decimal `json:"revenue"`
}
