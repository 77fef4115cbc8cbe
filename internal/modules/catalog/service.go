package catalog

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/georgemunganga/shopdesk-backend/internal/modules/audit"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/membership"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/apperr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrProductNotFound = apperr.New(apperr.NotFound, "PRODUCT_NOT_FOUND", "product not found")
	ErrSKUTaken        = apperr.New(apperr.Conflict, "SKU_TAKEN", "sku already used in this shop")
	ErrNameRequired    = apperr.New(apperr.Invalid, "NAME_REQUIRED", "name is required")
	ErrNegativePrice   = apperr.New(apperr.Invalid, "INVALID_PRICE", "price must not be negative")
)

// Service defines catalog business logic.
type Service interface {
	CreateProduct(ctx context.Context, actorID, shopID uuid.UUID, req ProductRequest) (*Product, error)
	GetProduct(ctx context.Context, actorID, shopID, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, actorID, shopID uuid.UUID, filter Filter) ([]*Product, error)
	UpdateProduct(ctx context.Context, actorID, shopID, id uuid.UUID, req ProductRequest) (*Product, error)
	DeactivateProduct(ctx context.Context, actorID, shopID, id uuid.UUID) error
	// Lookup skips authorization.
	Lookup(ctx context.Context, shopID, id uuid.UUID) (*Product, error)
}

// ProductRequest holds the data for creating or replacing a product.
type ProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	SKU         string          `json:"sku"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Attributes  json.RawMessage `json:"attributes"`
}

func (req ProductRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return ErrNameRequired
	}
	if req.BasePrice.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

type service struct {
	repo    Repository
	members membership.Resolver
	audit   audit.Logger
	log     logrus.FieldLogger
}

func NewService(repo Repository, members membership.Resolver, auditLog audit.Logger, log logrus.FieldLogger) Service {
	return &service{repo: repo, members: members, audit: auditLog, log: log.WithField("module", "catalog")}
}

func (s *service) CreateProduct(ctx context.Context, actorID, shopID uuid.UUID, req ProductRequest) (*Product, error) {
	if err := s.members.Authorize(ctx, shopID, nil, actorID, membership.PermProductCreate); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	p := &Product{
		ID:          uuid.New(),
		ShopID:      shopID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    req.Category,
		SKU:         strings.TrimSpace(req.SKU),
		BasePrice:   req.BasePrice.Round(2),
		IsActive:    true,
		Attributes:  req.Attributes,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, p, "PRODUCT_CREATE")
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, actorID, shopID, id uuid.UUID) (*Product, error) {
	if err := s.members.Authorize(ctx, shopID, nil, actorID, membership.PermProductView); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, shopID, id)
}

func (s *service) ListProducts(ctx context.Context, actorID, shopID uuid.UUID, filter Filter) ([]*Product, error) {
	if err := s.members.Authorize(ctx, shopID, nil, actorID, membership.PermProductView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, shopID, filter)
}

func (s *service) UpdateProduct(ctx context.Context, actorID, shopID, id uuid.UUID, req ProductRequest) (*Product, error) {
	if err := s.members.Authorize(ctx, shopID, nil, actorID, membership.PermProductUpdate); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, shopID, id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	p.Category = req.Category
	p.SKU = strings.TrimSpace(req.SKU)
	p.BasePrice = req.BasePrice.Round(2)
	if req.Attributes != nil {
		p.Attributes = req.Attributes
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, p, "PRODUCT_UPDATE")
	return p, nil
}

func (s *service) DeactivateProduct(ctx context.Context, actorID, shopID, id uuid.UUID) error {
	if err := s.members.Authorize(ctx, shopID, nil, actorID, membership.PermProductDelete); err != nil {
		return err
	}
	p, err := s.repo.GetByID(ctx, shopID, id)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return nil
	}
	p.IsActive = false
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}
	s.record(ctx, actorID, p, "PRODUCT_DEACTIVATE")
	return nil
}

func (s *service) Lookup(ctx context.Context, shopID, id uuid.UUID) (*Product, error) {
	return s.repo.GetByID(ctx, shopID, id)
}

func (s *service) record(ctx context.Context, actorID uuid.UUID, p *Product, action string) {
	s.log.WithFields(logrus.Fields{"shop_id": p.ShopID, "product_id": p.ID, "actor_id": actorID}).Debug(strings.ToLower(action))
	s.audit.Log(ctx, audit.Entry{
		ActorID:     actorID,
		ShopID:      p.ShopID,
		TargetID:    p.ID.String(),
		TargetType:  audit.TargetProduct,
		Action:      action,
		Description: p.Name,
	})
}
