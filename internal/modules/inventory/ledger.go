package inventory

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/georgemunganga/shopdesk-backend/internal/modules/audit"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/apperr"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/logging"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidQuantity     = apperr.New(apperr.Invalid, "INVALID_QUANTITY", "invalid quantity")
	ErrInsufficientStock   = apperr.New(apperr.Invalid, "INSUFFICIENT_STOCK", "insufficient stock")
	ErrProductNotFound     = apperr.New(apperr.NotFound, "PRODUCT_NOT_FOUND", "branch product not found")
	ErrBranchProductExists = apperr.New(apperr.Conflict, "BRANCH_PRODUCT_EXISTS", "product already stocked at this branch")
	ErrActorRequired       = apperr.New(apperr.Unauthorized, "ACTOR_REQUIRED", "an authenticated actor is required")
)

// MaxQuantity is the largest stock level a branch product can hold; the
// quantity column is a 32-bit integer.
const MaxQuantity = math.MaxInt32

// Tracker reports whether a shop keeps stock quantities.
type Tracker interface {
	IsTracked(ctx context.Context, shopID uuid.UUID) (bool, error)
}

// Ledger is the only writer of branch product quantities. Every change goes
// through Repository.Apply, which updates the quantity and appends the
// matching transaction together.
type Ledger struct {
	repo    Repository
	tracker Tracker
	audit   audit.Logger
	log     logrus.FieldLogger
}

func NewLedger(repo Repository, tracker Tracker, auditLog audit.Logger, log logrus.FieldLogger) *Ledger {
	return &Ledger{repo: repo, tracker: tracker, audit: auditLog, log: log.WithField("module", "inventory")}
}

// Import adds m.Quantity units.
func (l *Ledger) Import(ctx context.Context, m Movement) (Result, error) {
	if m.Quantity <= 0 || m.Quantity > MaxQuantity {
		return l.reject(Import, fmt.Errorf("%w: import quantity must be between 1 and %d", ErrInvalidQuantity, MaxQuantity))
	}
	return l.apply(ctx, Import, m, func(current BranchProduct) (int, error) {
		if current.Quantity > MaxQuantity-m.Quantity {
			return 0, fmt.Errorf("%w: stock would exceed %d", ErrInvalidQuantity, MaxQuantity)
		}
		return m.Quantity, nil
	})
}

// Export removes m.Quantity units and fails without writing anything if that
// would take stock below zero.
func (l *Ledger) Export(ctx context.Context, m Movement) (Result, error) {
	if m.Quantity <= 0 || m.Quantity > MaxQuantity {
		return l.reject(Export, fmt.Errorf("%w: export quantity must be between 1 and %d", ErrInvalidQuantity, MaxQuantity))
	}
	return l.apply(ctx, Export, m, func(current BranchProduct) (int, error) {
		if current.Quantity-m.Quantity < 0 {
			return 0, fmt.Errorf("%w: %d available, %d requested", ErrInsufficientStock, current.Quantity, m.Quantity)
		}
		return -m.Quantity, nil
	})
}

// Adjust sets stock to m.Quantity. A zero delta is still recorded so stock
// counts that matched leave a trace.
func (l *Ledger) Adjust(ctx context.Context, m Movement) (Result, error) {
	if m.Quantity < 0 || m.Quantity > MaxQuantity {
		return l.reject(Adjustment, fmt.Errorf("%w: target quantity must be between 0 and %d", ErrInvalidQuantity, MaxQuantity))
	}
	return l.apply(ctx, Adjustment, m, func(current BranchProduct) (int, error) {
		return m.Quantity - current.Quantity, nil
	})
}

// History returns transactions newest first.
func (l *Ledger) History(ctx context.Context, key Key, page httpx.Page) ([]Transaction, int, error) {
	if _, err := l.repo.GetBranchProduct(ctx, key); err != nil {
		return nil, 0, err
	}
	return l.repo.History(ctx, key, page)
}

func (l *Ledger) IsTracked(ctx context.Context, shopID uuid.UUID) (bool, error) {
	return l.tracker.IsTracked(ctx, shopID)
}

// BranchProduct returns the current row for key.
func (l *Ledger) BranchProduct(ctx context.Context, key Key) (*BranchProduct, error) {
	return l.repo.GetBranchProduct(ctx, key)
}

// Verify replays the history of key and compares the sum of deltas with the
// stored quantity.
func (l *Ledger) Verify(ctx context.Context, key Key) (*Verification, error) {
	bp, err := l.repo.GetBranchProduct(ctx, key)
	if err != nil {
		return nil, err
	}
	txs, err := l.repo.Replay(ctx, key)
	if err != nil {
		return nil, err
	}
	sum := 0
	for _, t := range txs {
		sum += t.QuantityDelta
	}
	v := &Verification{
		Key:            key,
		StoredQuantity: bp.Quantity,
		ReplayQuantity: sum,
		Transactions:   len(txs),
		Consistent:     sum == bp.Quantity,
	}
	if !v.Consistent {
		l.log.WithFields(logrus.Fields{
			"shop_id":           key.ShopID,
			"branch_product_id": key.BranchProductID,
			"stored":            bp.Quantity,
			"replayed":          sum,
		}).Error("stock does not match ledger")
	}
	return v, nil
}

func (l *Ledger) reject(t TransactionType, err error) (Result, error) {
	metrics.RecordMovement(string(t), "rejected")
	return Result{}, err
}

func (l *Ledger) apply(ctx context.Context, txType TransactionType, m Movement, delta func(BranchProduct) (int, error)) (Result, error) {
	if m.ActorID == uuid.Nil {
		return l.reject(txType, ErrActorRequired)
	}
	tracked, err := l.tracker.IsTracked(ctx, m.ShopID)
	if err != nil {
		return Result{}, err
	}
	if !tracked {
		metrics.RecordMovement(string(txType), "skipped")
		return Result{Skipped: true}, nil
	}

	var ref *string
	if r := strings.TrimSpace(m.ReferenceID); r != "" {
		ref = &r
	}

	t, err := l.repo.Apply(ctx, m.Key, func(current BranchProduct) (*Transaction, error) {
		d, err := delta(current)
		if err != nil {
			return nil, err
		}
		return &Transaction{
			ID:                uuid.New(),
			ShopID:            m.ShopID,
			BranchID:          m.BranchID,
			BranchProductID:   m.BranchProductID,
			Type:              txType,
			QuantityDelta:     d,
			ResultingQuantity: current.Quantity + d,
			Note:              strings.TrimSpace(m.Note),
			ReferenceID:       ref,
			ActorID:           m.ActorID,
		}, nil
	})
	if err != nil {
		outcome := "error"
		if apperr.KindOf(err) != apperr.Internal {
			outcome = "rejected"
		}
		metrics.RecordMovement(string(txType), outcome)
		return Result{}, err
	}
	metrics.RecordMovement(string(txType), "applied")

	logging.FromContext(ctx, l.log).WithFields(logrus.Fields{
		"shop_id":           m.ShopID,
		"branch_id":         m.BranchID,
		"branch_product_id": m.BranchProductID,
		"actor_id":          m.ActorID,
		"type":              txType,
		"delta":             t.QuantityDelta,
		"quantity":          t.ResultingQuantity,
	}).Info("stock movement")

	l.audit.Log(ctx, audit.Entry{
		ActorID:     m.ActorID,
		ShopID:      m.ShopID,
		TargetID:    m.BranchProductID.String(),
		TargetType:  audit.TargetBranchProduct,
		Action:      "STOCK_" + string(txType),
		Description: fmt.Sprintf("%+d -> %d", t.QuantityDelta, t.ResultingQuantity),
	})
	return Result{Quantity: t.ResultingQuantity, Transaction: t}, nil
}
