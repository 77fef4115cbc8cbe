package inventory

import (
	"context"

	"github.com/georgemunganga/shopdesk-backend/internal/modules/audit"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/catalog"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/membership"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/shop"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/apperr"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var ErrInvalidSettings = apperr.New(apperr.Invalid, "INVALID_SETTINGS", "price and min quantity must not be negative")

// Branches resolves a branch inside a shop.
type Branches interface {
	Branch(ctx context.Context, shopID, branchID uuid.UUID) (*shop.Branch, error)
}

// Products resolves a catalog product inside a shop.
type Products interface {
	Lookup(ctx context.Context, shopID, id uuid.UUID) (*catalog.Product, error)
}

// Service is the permission-checked surface over the ledger and branch
// product settings.
type Service interface {
	AddBranchProduct(ctx context.Context, actorID uuid.UUID, req AddBranchProductRequest) (*BranchProduct, error)
	ListBranchProducts(ctx context.Context, actorID, shopID, branchID uuid.UUID) ([]BranchProduct, error)
	LowStock(ctx context.Context, actorID, shopID, branchID uuid.UUID) ([]BranchProduct, error)
	UpdateSettings(ctx context.Context, actorID uuid.UUID, key Key, req SettingsRequest) (*BranchProduct, error)

	Import(ctx context.Context, m Movement) (Result, error)
	Export(ctx context.Context, m Movement) (Result, error)
	Adjust(ctx context.Context, m Movement) (Result, error)
	History(ctx context.Context, actorID uuid.UUID, key Key, page httpx.Page) ([]Transaction, int, error)
	Verify(ctx context.Context, actorID uuid.UUID, key Key) (*Verification, error)
}

type AddBranchProductRequest struct {
	ShopID      uuid.UUID        `json:"-"`
	BranchID    uuid.UUID        `json:"-"`
	ProductID   uuid.UUID        `json:"product_id"`
	Price       *decimal.Decimal `json:"price"`
	MinQuantity int              `json:"min_quantity"`
}

// SettingsRequest changes only the fields that are set.
type SettingsRequest struct {
	Price       *decimal.Decimal `json:"price"`
	MinQuantity *int             `json:"min_quantity"`
	IsAvailable *bool            `json:"is_available"`
}

type service struct {
	repo     Repository
	ledger   *Ledger
	members  membership.Resolver
	branches Branches
	products Products
	audit    audit.Logger
	log      logrus.FieldLogger
}

func NewService(repo Repository, ledger *Ledger, members membership.Resolver, branches Branches, products Products, auditLog audit.Logger, log logrus.FieldLogger) Service {
	return &service{
		repo:     repo,
		ledger:   ledger,
		members:  members,
		branches: branches,
		products: products,
		audit:    auditLog,
		log:      log.WithField("module", "inventory"),
	}
}

func (s *service) AddBranchProduct(ctx context.Context, actorID uuid.UUID, req AddBranchProductRequest) (*BranchProduct, error) {
	if err := s.members.Authorize(ctx, req.ShopID, &req.BranchID, actorID, membership.PermProductCreate); err != nil {
		return nil, err
	}
	if req.MinQuantity < 0 || req.MinQuantity > MaxQuantity || (req.Price != nil && req.Price.IsNegative()) {
		return nil, ErrInvalidSettings
	}
	if _, err := s.branches.Branch(ctx, req.ShopID, req.BranchID); err != nil {
		return nil, err
	}
	product, err := s.products.Lookup(ctx, req.ShopID, req.ProductID)
	if err != nil {
		return nil, err
	}

	price := product.BasePrice
	if req.Price != nil {
		price = req.Price.Round(2)
	}
	bp := &BranchProduct{
		ID:          uuid.New(),
		ShopID:      req.ShopID,
		BranchID:    req.BranchID,
		ProductID:   product.ID,
		Price:       price,
		MinQuantity: req.MinQuantity,
		IsAvailable: product.IsActive,
	}
	if err := s.repo.CreateBranchProduct(ctx, bp); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, audit.Entry{
		ActorID:     actorID,
		ShopID:      bp.ShopID,
		TargetID:    bp.ID.String(),
		TargetType:  audit.TargetBranchProduct,
		Action:      "BRANCH_PRODUCT_ADD",
		Description: product.Name,
	})
	return bp, nil
}

func (s *service) ListBranchProducts(ctx context.Context, actorID, shopID, branchID uuid.UUID) ([]BranchProduct, error) {
	if err := s.members.Authorize(ctx, shopID, &branchID, actorID, membership.PermInventoryView); err != nil {
		return nil, err
	}
	return s.repo.ListBranchProducts(ctx, shopID, branchID)
}

func (s *service) LowStock(ctx context.Context, actorID, shopID, branchID uuid.UUID) ([]BranchProduct, error) {
	all, err := s.ListBranchProducts(ctx, actorID, shopID, branchID)
	if err != nil {
		return nil, err
	}
	low := []BranchProduct{}
	for i := range all {
		if all[i].LowStock() {
			low = append(low, all[i])
		}
	}
	return low, nil
}

func (s *service) UpdateSettings(ctx context.Context, actorID uuid.UUID, key Key, req SettingsRequest) (*BranchProduct, error) {
	if req.MinQuantity != nil {
		if err := s.members.Authorize(ctx, key.ShopID, &key.BranchID, actorID, membership.PermInventoryAdjust); err != nil {
			return nil, err
		}
		if *req.MinQuantity < 0 || *req.MinQuantity > MaxQuantity {
			return nil, ErrInvalidSettings
		}
	}
	if req.Price != nil || req.IsAvailable != nil {
		if err := s.members.Authorize(ctx, key.ShopID, &key.BranchID, actorID, membership.PermProductUpdate); err != nil {
			return nil, err
		}
		if req.Price != nil && req.Price.IsNegative() {
			return nil, ErrInvalidSettings
		}
	}

	if req.Price != nil {
		rounded := req.Price.Round(2)
		req.Price = &rounded
	}
	return s.repo.UpdateSettings(ctx, key, req)
}

func (s *service) Import(ctx context.Context, m Movement) (Result, error) {
	if err := s.members.Authorize(ctx, m.ShopID, &m.BranchID, m.ActorID, membership.PermInventoryImport); err != nil {
		return Result{}, err
	}
	return s.ledger.Import(ctx, m)
}

func (s *service) Export(ctx context.Context, m Movement) (Result, error) {
	if err := s.members.Authorize(ctx, m.ShopID, &m.BranchID, m.ActorID, membership.PermInventoryExport); err != nil {
		return Result{}, err
	}
	return s.ledger.Export(ctx, m)
}

func (s *service) Adjust(ctx context.Context, m Movement) (Result, error) {
	if err := s.members.Authorize(ctx, m.ShopID, &m.BranchID, m.ActorID, membership.PermInventoryAdjust); err != nil {
		return Result{}, err
	}
	return s.ledger.Adjust(ctx, m)
}

func (s *service) History(ctx context.Context, actorID uuid.UUID, key Key, page httpx.Page) ([]Transaction, int, error) {
	if err := s.members.Authorize(ctx, key.ShopID, &key.BranchID, actorID, membership.PermInventoryView); err != nil {
		return nil, 0, err
	}
	return s.ledger.History(ctx, key, page)
}

func (s *service) Verify(ctx context.Context, actorID uuid.UUID, key Key) (*Verification, error) {
	if err := s.members.Authorize(ctx, key.ShopID, &key.BranchID, actorID, membership.PermInventoryView); err != nil {
		return nil, err
	}
	return s.ledger.Verify(ctx, key)
}
