package shop

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/modules/audit"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/membership"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/apperr"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/cache"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/logging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrShopNotFound    = apperr.New(apperr.NotFound, "SHOP_NOT_FOUND", "shop not found")
	ErrBranchNotFound  = apperr.New(apperr.NotFound, "BRANCH_NOT_FOUND", "branch not found")
	ErrInvalidShopType = apperr.New(apperr.Invalid, "INVALID_SHOP_TYPE", "invalid shop type")
	ErrNameRequired    = apperr.New(apperr.Invalid, "NAME_REQUIRED", "name is required")
	ErrBranchLimit     = apperr.New(apperr.Conflict, "BRANCH_LIMIT_REACHED", "subscription plan branch limit reached")
)

const defaultCurrency = "ZMW"

// BranchLimiter reports how many branches a shop's plan allows. Zero or
// negative means unlimited.
type BranchLimiter interface {
	MaxBranches(ctx context.Context, shopID uuid.UUID) (int, error)
}

type Service interface {
	CreateShop(ctx context.Context, actorID uuid.UUID, req CreateShopRequest) (*Shop, error)
	GetShop(ctx context.Context, actorID, shopID uuid.UUID) (*Shop, error)
	UpdateShop(ctx context.Context, actorID, shopID uuid.UUID, req UpdateShopRequest) (*Shop, error)
	ListShopsForUser(ctx context.Context, userID uuid.UUID) ([]Shop, error)

	CreateBranch(ctx context.Context, actorID, shopID uuid.UUID, req BranchRequest) (*Branch, error)
	ListBranches(ctx context.Context, actorID, shopID uuid.UUID) ([]Branch, error)

	// Lookup and Branch skip authorization; other modules use them after
	// running their own checks.
	Lookup(ctx context.Context, shopID uuid.UUID) (*Shop, error)
	Branch(ctx context.Context, shopID, branchID uuid.UUID) (*Branch, error)
	// IsTracked reports whether the shop keeps stock quantities.
	IsTracked(ctx context.Context, shopID uuid.UUID) (bool, error)
}

type CreateShopRequest struct {
	Name     string   `json:"name"`
	Type     ShopType `json:"type"`
	Currency string   `json:"currency"`
}

// UpdateShopRequest changes only the fields that are set.
type UpdateShopRequest struct {
	Name     *string   `json:"name"`
	Type     *ShopType `json:"type"`
	Currency *string   `json:"currency"`
	IsActive *bool     `json:"is_active"`
}

type BranchRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type service struct {
	repo     Repository
	members  membership.Resolver
	limiter  BranchLimiter
	cache    cache.Cache
	cacheTTL time.Duration
	audit    audit.Logger
	log      logrus.FieldLogger
}

// NewService creates a new shop service. limiter may be nil.
func NewService(repo Repository, members membership.Resolver, limiter BranchLimiter, c cache.Cache, cacheTTL time.Duration, auditLog audit.Logger, log logrus.FieldLogger) Service {
	return &service{
		repo:     repo,
		members:  members,
		limiter:  limiter,
		cache:    c,
		cacheTTL: cacheTTL,
		audit:    auditLog,
		log:      log.WithField("module", "shop"),
	}
}

func trackedKey(shopID uuid.UUID) string { return "shop:tracked:" + shopID.String() }

func (s *service) CreateShop(ctx context.Context, actorID uuid.UUID, req CreateShopRequest) (*Shop, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if !req.Type.Valid() {
		return nil, ErrInvalidShopType
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	shop := &Shop{
		ID:       uuid.New(),
		OwnerID:  actorID,
		Name:     name,
		Type:     req.Type,
		Currency: currency,
		IsActive: true,
	}
	if err := s.repo.CreateShop(ctx, shop); err != nil {
		return nil, err
	}

	if _, err := s.members.AddMember(ctx, membership.AddMemberRequest{
		ShopID:  shop.ID,
		UserID:  actorID,
		Role:    membership.RoleOwner,
		ActorID: actorID,
	}); err != nil {
		return nil, fmt.Errorf("assign owner: %w", err)
	}

	logging.FromContext(ctx, s.log).WithFields(logrus.Fields{"shop_id": shop.ID, "type": shop.Type}).Info("shop created")
	s.audit.Log(ctx, audit.Entry{
		ActorID:     actorID,
		ShopID:      shop.ID,
		TargetID:    shop.ID.String(),
		TargetType:  audit.TargetShop,
		Action:      "SHOP_CREATE",
		Description: shop.Name,
	})
	return shop, nil
}

func (s *service) GetShop(ctx context.Context, actorID, shopID uuid.UUID) (*Shop, error) {
	if err := s.members.Authorize(ctx, shopID, nil, actorID, membership.PermShopView); err != nil {
		return nil, err
	}
	return s.repo.GetShop(ctx, shopID)
}

func (s *service) UpdateShop(ctx context.Context, actorID, shopID uuid.UUID, req UpdateShopRequest) (*Shop, error) {
	if err := s.members.Authorize(ctx, shopID, nil, actorID, membership.PermShopUpdate); err != nil {
		return nil, err
	}
	shop, err := s.repo.GetShop(ctx, shopID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		shop.Name = name
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, ErrInvalidShopType
		}
		shop.Type = *req.Type
	}
	if req.Currency != nil {
		shop.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.IsActive != nil {
		shop.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateShop(ctx, shop); err != nil {
		return nil, err
	}
	if err := s.cache.Delete(ctx, trackedKey(shopID)); err != nil {
		logging.FromContext(ctx, s.log).WithError(err).WithField("shop_id", shopID).Warn("cache invalidation failed")
	}

	s.audit.Log(ctx, audit.Entry{
		ActorID:     actorID,
		ShopID:      shopID,
		TargetID:    shopID.String(),
		TargetType:  audit.TargetShop,
		Action:      "SHOP_UPDATE",
		Description: shop.Name,
	})
	return shop, nil
}

func (s *service) ListShopsForUser(ctx context.Context, userID uuid.UUID) ([]Shop, error) {
	ids, err := s.members.ShopsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListShopsByIDs(ctx, ids)
}

func (s *service) CreateBranch(ctx context.Context, actorID, shopID uuid.UUID, req BranchRequest) (*Branch, error) {
	if err := s.members.Authorize(ctx, shopID, nil, actorID, membership.PermBranchCreate); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if _, err := s.repo.GetShop(ctx, shopID); err != nil {
		return nil, err
	}

	if s.limiter != nil {
		limit, err := s.limiter.MaxBranches(ctx, shopID)
		if err != nil {
			return nil, err
		}
		if limit > 0 {
			count, err := s.repo.CountBranches(ctx, shopID)
			if err != nil {
				return nil, err
			}
			if count >= limit {
				return nil, fmt.Errorf("%w (%d)", ErrBranchLimit, limit)
			}
		}
	}

	branch := &Branch{
		ID:       uuid.New(),
		ShopID:   shopID,
		Name:     name,
		Address:  strings.TrimSpace(req.Address),
		Phone:    strings.TrimSpace(req.Phone),
		IsActive: true,
	}
	if err := s.repo.CreateBranch(ctx, branch); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Entry{
		ActorID:     actorID,
		ShopID:      shopID,
		TargetID:    branch.ID.String(),
		TargetType:  audit.TargetBranch,
		Action:      "BRANCH_CREATE",
		Description: branch.Name,
	})
	return branch, nil
}

func (s *service) ListBranches(ctx context.Context, actorID, shopID uuid.UUID) ([]Branch, error) {
	if err := s.members.Authorize(ctx, shopID, nil, actorID, membership.PermBranchView); err != nil {
		return nil, err
	}
	return s.repo.ListBranches(ctx, shopID)
}

func (s *service) Lookup(ctx context.Context, shopID uuid.UUID) (*Shop, error) {
	return s.repo.GetShop(ctx, shopID)
}

func (s *service) Branch(ctx context.Context, shopID, branchID uuid.UUID) (*Branch, error) {
	return s.repo.GetBranch(ctx, shopID, branchID)
}

func (s *service) IsTracked(ctx context.Context, shopID uuid.UUID) (bool, error) {
	key := trackedKey(shopID)
	if v, found, err := s.cache.Get(ctx, key); err != nil {
		logging.FromContext(ctx, s.log).WithError(err).Warn("cache read failed")
	} else if found {
		return strconv.ParseBool(v)
	}

	shop, err := s.repo.GetShop(ctx, shopID)
	if err != nil {
		return false, err
	}
	tracked := TracksInventory(shop.Type)
	if err := s.cache.Set(ctx, key, strconv.FormatBool(tracked), s.cacheTTL); err != nil {
		logging.FromContext(ctx, s.log).WithError(err).Warn("cache write failed")
	}
	return tracked, nil
}
