// Package report aggregates orders and stock for shop managers.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/modules/catalog"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/inventory"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/membership"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/order"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/shop"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/apperr"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var ErrInvalidRange = apperr.New(apperr.Invalid, "INVALID_RANGE", "from must be before to")

const defaultWindow = 30 * 24 * time.Hour

// Sales sums orders; order.Service satisfies it.
type Sales interface {
	Totals(ctx context.Context, shopID uuid.UUID, branchID *uuid.UUID, from, to time.Time) ([]order.BranchTotals, error)
}

// Stock lists branch products; inventory.Repository satisfies it.
type Stock interface {
	ListBranchProducts(ctx context.Context, shopID, branchID uuid.UUID) ([]inventory.BranchProduct, error)
}

type Branches interface {
	Branch(ctx context.Context, shopID, branchID uuid.UUID) (*shop.Branch, error)
}

type Products interface {
	Lookup(ctx context.Context, shopID, id uuid.UUID) (*catalog.Product, error)
}

// Service builds reports. Every operation requires REPORT_VIEW.
type Service interface {
	// SalesSummary defaults to the 30 days before now when the range is open.
	SalesSummary(ctx context.Context, actorID, shopID uuid.UUID, branchID *uuid.UUID, from, to time.Time) (*SalesSummary, error)
	StockSnapshot(ctx context.Context, actorID, shopID, branchID uuid.UUID) (*StockSnapshot, error)
	// ExportStockCSV writes the snapshot into the temp directory and returns
	// the file path. Old exports are removed by the cleanup job.
	ExportStockCSV(ctx context.Context, actorID, shopID, branchID uuid.UUID) (string, error)
}

type service struct {
	members  membership.Resolver
	sales    Sales
	stock    Stock
	branches Branches
	products Products
	tempDir  string
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewService(members membership.Resolver, sales Sales, stock Stock, branches Branches, products Products, tempDir string, log logrus.FieldLogger) Service {
	return &service{
		members:  members,
		sales:    sales,
		stock:    stock,
		branches: branches,
		products: products,
		tempDir:  tempDir,
		log:      log.WithField("module", "report"),
		now:      time.Now,
	}
}

func (s *service) SalesSummary(ctx context.Context, actorID, shopID uuid.UUID, branchID *uuid.UUID, from, to time.Time) (*SalesSummary, error) {
	if err := s.members.Authorize(ctx, shopID, branchID, actorID, membership.PermReportView); err != nil {
		return nil, err
	}
	if to.IsZero() {
		to = s.now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-defaultWindow)
	}
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}

	totals, err := s.sales.Totals(ctx, shopID, branchID, from, to)
	if err != nil {
		return nil, err
	}
	summary := &SalesSummary{ShopID: shopID, From: from, To: to, Revenue: decimal.Zero, Branches: totals}
	for _, t := range totals {
		summary.Orders += t.Orders
		summary.Revenue = summary.Revenue.Add(t.Revenue)
	}
	return summary, nil
}

func (s *service) StockSnapshot(ctx context.Context, actorID, shopID, branchID uuid.UUID) (*StockSnapshot, error) {
	if err := s.members.Authorize(ctx, shopID, &branchID, actorID, membership.PermReportView); err != nil {
		return nil, err
	}
	branch, err := s.branches.Branch(ctx, shopID, branchID)
	if err != nil {
		return nil, err
	}
	products, err := s.stock.ListBranchProducts(ctx, shopID, branchID)
	if err != nil {
		return nil, err
	}

	snap := &StockSnapshot{
		ShopID:     shopID,
		BranchID:   branchID,
		BranchName: branch.Name,
		TakenAt:    s.now().UTC(),
		Lines:      make([]StockLine, 0, len(products)),
		TotalValue: decimal.Zero,
	}
	for _, bp := range products {
		line := StockLine{
			BranchProductID: bp.ID,
			ProductID:       bp.ProductID,
			Quantity:        bp.Quantity,
			MinQuantity:     bp.MinQuantity,
			LowStock:        bp.LowStock(),
			Price:           bp.Price,
			Value:           bp.Price.Mul(decimal.NewFromInt(int64(bp.Quantity))).Round(2),
		}
		if p, err := s.products.Lookup(ctx, shopID, bp.ProductID); err == nil {
			line.Name, line.SKU = p.Name, p.SKU
		} else {
			s.log.WithError(err).WithField("product_id", bp.ProductID).Warn("snapshot product lookup failed")
		}
		snap.Lines = append(snap.Lines, line)
		snap.TotalUnits += line.Quantity
		snap.TotalValue = snap.TotalValue.Add(line.Value)
		if line.LowStock {
			snap.LowStock++
		}
	}
	return snap, nil
}

func (s *service) ExportStockCSV(ctx context.Context, actorID, shopID, branchID uuid.UUID) (string, error) {
	snap, err := s.StockSnapshot(ctx, actorID, shopID, branchID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.tempDir, 0o700); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	f, err := os.CreateTemp(s.tempDir, fmt.Sprintf("stock-%s-%s-*.csv", branchID, snap.TakenAt.Format("20060102")))
	if err != nil {
		return "", fmt.Errorf("create export: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"branch_product_id", "product_id", "name", "sku", "quantity", "min_quantity", "low_stock", "price", "value"})
	for _, l := range snap.Lines {
		_ = w.Write([]string{
			l.BranchProductID.String(),
			l.ProductID.String(),
			l.Name,
			l.SKU,
			strconv.Itoa(l.Quantity),
			strconv.Itoa(l.MinQuantity),
			strconv.FormatBool(l.LowStock),
			l.Price.StringFixed(2),
			l.Value.StringFixed(2),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write export: %w", err)
	}

	logging.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"shop_id":   shopID,
		"branch_id": branchID,
		"lines":     len(snap.Lines),
		"file":      filepath.Base(f.Name()),
	}).Info("stock export written")
	return f.Name(), nil
}
