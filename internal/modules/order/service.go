package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/modules/audit"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/inventory"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/membership"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/shop"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/apperr"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrOrderNotFound      = apperr.New(apperr.NotFound, "ORDER_NOT_FOUND", "order not found")
	ErrEmptyOrder         = apperr.New(apperr.Invalid, "EMPTY_ORDER", "order must contain at least one item")
	ErrInvalidLine        = apperr.New(apperr.Invalid, "INVALID_LINE", "every line needs a product and a positive quantity")
	ErrInvalidDiscount    = apperr.New(apperr.Invalid, "INVALID_DISCOUNT", "discount must not be negative")
	ErrProductUnavailable = apperr.New(apperr.Invalid, "PRODUCT_UNAVAILABLE", "product is currently unavailable")
	ErrInvalidStatus      = apperr.New(apperr.Invalid, "INVALID_STATUS", "unknown order status")
	ErrInvalidTransition  = apperr.New(apperr.Invalid, "INVALID_TRANSITION", "status transition not allowed")
	ErrStatusChanged      = apperr.New(apperr.Conflict, "STATUS_CHANGED", "order status changed concurrently")
	ErrDuplicateOrder     = apperr.New(apperr.Conflict, "DUPLICATE_ORDER", "order number already used")
)

// Stock is the part of the inventory ledger orders draw on.
type Stock interface {
	Import(ctx context.Context, m inventory.Movement) (inventory.Result, error)
	Export(ctx context.Context, m inventory.Movement) (inventory.Result, error)
	BranchProduct(ctx context.Context, key inventory.Key) (*inventory.BranchProduct, error)
}

// Shops resolves shop metadata without authorization.
type Shops interface {
	Lookup(ctx context.Context, shopID uuid.UUID) (*shop.Shop, error)
}

// Service defines the order management business logic.
type Service interface {
	// PlaceOrder prices the lines, draws their stock and persists the order.
	// Either every line's stock is drawn or none is.
	PlaceOrder(ctx context.Context, actorID uuid.UUID, req PlaceOrderRequest) (*Order, error)
	GetOrder(ctx context.Context, actorID, shopID, id uuid.UUID) (*Order, error)
	ListBranchOrders(ctx context.Context, actorID, shopID, branchID uuid.UUID, filter Filter, page httpx.Page) ([]Order, int, error)
	// UpdateStatus advances an order one step. Moving to CANCELLED behaves
	// like CancelOrder.
	UpdateStatus(ctx context.Context, actorID, shopID, id uuid.UUID, req UpdateStatusRequest) (*Order, error)
	// CancelOrder cancels a PENDING or CONFIRMED order and returns its stock.
	CancelOrder(ctx context.Context, actorID, shopID, id uuid.UUID) (*Order, error)
	// Totals skips authorization; callers check REPORT_VIEW.
	Totals(ctx context.Context, shopID uuid.UUID, branchID *uuid.UUID, from, to time.Time) ([]BranchTotals, error)
}

type service struct {
	repo    Repository
	stock   Stock
	shops   Shops
	members membership.Resolver
	audit   audit.Logger
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewService creates a new order service.
func NewService(repo Repository, stock Stock, shops Shops, members membership.Resolver, auditLog audit.Logger, log logrus.FieldLogger) Service {
	return &service{
		repo:    repo,
		stock:   stock,
		shops:   shops,
		members: members,
		audit:   auditLog,
		log:     log.WithField("module", "order"),
		now:     time.Now,
	}
}

func (s *service) PlaceOrder(ctx context.Context, actorID uuid.UUID, req PlaceOrderRequest) (*Order, error) {
	if err := s.members.Authorize(ctx, req.ShopID, &req.BranchID, actorID, membership.PermOrderCreate); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if req.Discount.IsNegative() {
		return nil, ErrInvalidDiscount
	}
	sh, err := s.shops.Lookup(ctx, req.ShopID)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:          uuid.New(),
		ShopID:      req.ShopID,
		BranchID:    req.BranchID,
		CustomerID:  req.CustomerID,
		OrderNumber: generateOrderNumber(s.now()),
		Status:      StatusPending,
		Currency:    sh.Currency,
		Notes:       strings.TrimSpace(req.Notes),
		CreatedBy:   actorID,
	}

	subtotal := decimal.Zero
	for _, line := range req.Items {
		if line.Quantity <= 0 || line.BranchProductID == uuid.Nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidLine, line.BranchProductID)
		}
		bp, err := s.stock.BranchProduct(ctx, inventory.Key{ShopID: req.ShopID, BranchID: req.BranchID, BranchProductID: line.BranchProductID})
		if err != nil {
			return nil, err
		}
		if !bp.IsAvailable {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, bp.ID)
		}
		lineTotal := bp.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		o.Items = append(o.Items, Item{
			ID:              uuid.New(),
			OrderID:         o.ID,
			BranchProductID: bp.ID,
			Quantity:        line.Quantity,
			UnitPrice:       bp.Price,
			LineTotal:       lineTotal.Round(2),
		})
	}
	o.Subtotal, o.Discount, o.Tax, o.Total = computeTotals(subtotal, req.Discount)

	if err := s.drawStock(ctx, o, actorID); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, o); err != nil {
		s.restock(ctx, o, actorID, o.Items, "rollback")
		return nil, err
	}

	logging.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"shop_id":      o.ShopID,
		"branch_id":    o.BranchID,
		"order_number": o.OrderNumber,
		"actor_id":     actorID,
		"total":        o.Total.StringFixed(2),
	}).Info("order placed")
	s.record(ctx, actorID, o, "ORDER_CREATE",
		fmt.Sprintf("Order %s placed: %d item(s), total %s %s", o.OrderNumber, len(o.Items), o.Total.StringFixed(2), o.Currency))
	return o, nil
}

// drawStock exports every line. When one export fails the lines already
// drawn are imported back and the failure is returned.
func (s *service) drawStock(ctx context.Context, o *Order, actorID uuid.UUID) error {
	var drawn []Item
	for _, item := range o.Items {
		res, err := s.stock.Export(ctx, s.movement(o, item, actorID, "order "+o.OrderNumber))
		if err != nil {
			s.restock(ctx, o, actorID, drawn, "rollback")
			return err
		}
		if !res.Skipped {
			drawn = append(drawn, item)
		}
	}
	return nil
}

// restock imports items back. Failures are logged; the ledger history shows
// which lines were returned.
func (s *service) restock(ctx context.Context, o *Order, actorID uuid.UUID, items []Item, reason string) {
	ctx = context.WithoutCancel(ctx)
	for _, item := range items {
		_, err := s.stock.Import(ctx, s.movement(o, item, actorID, fmt.Sprintf("order %s %s", o.OrderNumber, reason)))
		if err != nil {
			logging.FromContext(ctx, s.log).WithError(err).WithFields(logrus.Fields{
				"shop_id":           o.ShopID,
				"order_number":      o.OrderNumber,
				"branch_product_id": item.BranchProductID,
				"quantity":          item.Quantity,
			}).Error("restock failed")
		}
	}
}

func (s *service) movement(o *Order, item Item, actorID uuid.UUID, note string) inventory.Movement {
	return inventory.Movement{
		Key:         inventory.Key{ShopID: o.ShopID, BranchID: o.BranchID, BranchProductID: item.BranchProductID},
		Quantity:    item.Quantity,
		Note:        note,
		ReferenceID: o.ID.String(),
		ActorID:     actorID,
	}
}

func (s *service) GetOrder(ctx context.Context, actorID, shopID, id uuid.UUID) (*Order, error) {
	return s.load(ctx, actorID, shopID, id, membership.PermOrderView)
}

// load fetches an order and checks permission at its branch.
func (s *service) load(ctx context.Context, actorID, shopID, id uuid.UUID, perm membership.Permission) (*Order, error) {
	o, err := s.repo.Get(ctx, shopID, id)
	if errors.Is(err, ErrOrderNotFound) {
		if authErr := s.members.Authorize(ctx, shopID, nil, actorID, perm); errors.Is(authErr, membership.ErrNotAMember) {
			return nil, authErr
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if err := s.members.Authorize(ctx, shopID, &o.BranchID, actorID, perm); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) ListBranchOrders(ctx context.Context, actorID, shopID, branchID uuid.UUID, filter Filter, page httpx.Page) ([]Order, int, error) {
	if err := s.members.Authorize(ctx, shopID, &branchID, actorID, membership.PermOrderView); err != nil {
		return nil, 0, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	return s.repo.ListByBranch(ctx, shopID, branchID, filter, page)
}

func (s *service) UpdateStatus(ctx context.Context, actorID, shopID, id uuid.UUID, req UpdateStatusRequest) (*Order, error) {
	next := Status(strings.ToUpper(string(req.Status)))
	if !next.Valid() {
		return nil, ErrInvalidStatus
	}
	if next == StatusCancelled {
		return s.CancelOrder(ctx, actorID, shopID, id)
	}

	o, err := s.load(ctx, actorID, shopID, id, membership.PermOrderUpdate)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanMoveTo(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.Status, next)
	}
	if err := s.repo.UpdateStatus(ctx, shopID, id, o.Status, next); err != nil {
		return nil, err
	}
	prev := o.Status
	o.Status = next

	logging.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"shop_id":      shopID,
		"order_number": o.OrderNumber,
		"from":         prev,
		"to":           next,
		"actor_id":     actorID,
	}).Info("order status changed")
	s.record(ctx, actorID, o, "ORDER_STATUS", fmt.Sprintf("Order %s moved from %s to %s", o.OrderNumber, prev, next))
	return o, nil
}

func (s *service) CancelOrder(ctx context.Context, actorID, shopID, id uuid.UUID) (*Order, error) {
	o, err := s.load(ctx, actorID, shopID, id, membership.PermOrderCancel)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanMoveTo(StatusCancelled) {
		return nil, fmt.Errorf("%w: only PENDING or CONFIRMED orders can be cancelled (current: %s)", ErrInvalidTransition, o.Status)
	}
	// The conditional update lets exactly one concurrent cancel restock.
	if err := s.repo.UpdateStatus(ctx, shopID, id, o.Status, StatusCancelled); err != nil {
		return nil, err
	}
	o.Status = StatusCancelled
	s.restock(ctx, o, actorID, o.Items, "cancelled")

	logging.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"shop_id":      shopID,
		"order_number": o.OrderNumber,
		"actor_id":     actorID,
	}).Info("order cancelled")
	s.record(ctx, actorID, o, "ORDER_CANCEL", fmt.Sprintf("Order %s cancelled, stock returned", o.OrderNumber))
	return o, nil
}

func (s *service) Totals(ctx context.Context, shopID uuid.UUID, branchID *uuid.UUID, from, to time.Time) ([]BranchTotals, error) {
	return s.repo.Totals(ctx, shopID, branchID, from, to)
}

func (s *service) record(ctx context.Context, actorID uuid.UUID, o *Order, action, description string) {
	s.audit.Log(ctx, audit.Entry{
		ActorID:     actorID,
		ShopID:      o.ShopID,
		TargetID:    o.ID.String(),
		TargetType:  audit.TargetOrder,
		Action:      action,
		Description: description,
	})
}

// computeTotals applies the discount, capped at the subtotal, then VAT on
// what remains. All amounts are rounded to cents.
func computeTotals(subtotal, discount decimal.Decimal) (sub, disc, tax, total decimal.Decimal) {
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	taxable := subtotal.Sub(discount)
	tax = taxable.Mul(taxRate).Round(2)
	return subtotal.Round(2), discount.Round(2), tax, taxable.Round(2).Add(tax)
}

// generateOrderNumber creates a human-readable order number: ORD-YYYYMMDD-XXXXXX
func generateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}
