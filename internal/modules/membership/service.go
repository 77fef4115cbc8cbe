package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgemunganga/shopdesk-backend/internal/modules/audit"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/user"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/apperr"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/logging"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/notify"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotAMember          = apperr.New(apperr.Unauthorized, "NOT_A_MEMBER", "user is not a member of this shop")
	ErrForbidden           = apperr.New(apperr.Forbidden, "FORBIDDEN", "insufficient permissions")
	ErrDuplicateMembership = apperr.New(apperr.Conflict, "DUPLICATE_MEMBERSHIP", "membership already exists")
	ErrMembershipNotFound  = apperr.New(apperr.NotFound, "MEMBERSHIP_NOT_FOUND", "membership not found")
	ErrInvalidRole         = apperr.New(apperr.Invalid, "INVALID_ROLE", "invalid role")
	ErrLastOwner           = apperr.New(apperr.Conflict, "LAST_OWNER", "a shop must keep at least one owner")
	ErrBranchNotInShop     = apperr.New(apperr.Invalid, "BRANCH_NOT_IN_SHOP", "branch does not belong to this shop")
)

// Resolver answers authorization questions and manages role assignments.
type Resolver interface {
	// RoleOf resolves the shop-wide role of userID.
	RoleOf(ctx context.Context, shopID, userID uuid.UUID) (Role, error)
	// RoleOfAt resolves the role at branchID, falling back to the shop-wide
	// membership. A nil branchID behaves like RoleOf.
	RoleOfAt(ctx context.Context, shopID uuid.UUID, branchID *uuid.UUID, userID uuid.UUID) (Role, error)
	// HasPermission returns false rather than an error when the role lacks
	// permission. It fails only when no role resolves.
	HasPermission(ctx context.Context, shopID uuid.UUID, branchID *uuid.UUID, userID uuid.UUID, permission Permission) (bool, error)
	// Authorize is HasPermission folded into a single error for handlers.
	Authorize(ctx context.Context, shopID uuid.UUID, branchID *uuid.UUID, userID uuid.UUID, permission Permission) error
	RequireRole(ctx context.Context, shopID, userID uuid.UUID, allowed ...Role) error

	AddMember(ctx context.Context, req AddMemberRequest) (*Membership, error)
	// RemoveMember revokes the membership at key. Only an owner may remove an
	// owner, and the last shop-wide owner cannot be removed.
	RemoveMember(ctx context.Context, shopID, userID uuid.UUID, branchID *uuid.UUID, actorID uuid.UUID) error
	ListMembers(ctx context.Context, shopID uuid.UUID) ([]Membership, error)
	ShopsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// AddMemberRequest assigns Role to UserID. A nil BranchID grants shop-wide scope.
type AddMemberRequest struct {
	ShopID   uuid.UUID  `json:"-"`
	BranchID *uuid.UUID `json:"branch_id,omitempty"`
	UserID   uuid.UUID  `json:"user_id"`
	Role     Role       `json:"role"`
	ActorID  uuid.UUID  `json:"-"`
}

// Users looks up the invitee for the invitation email.
type Users interface {
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type resolver struct {
	repo     Repository
	users    Users
	audit    audit.Logger
	notifier notify.Notifier
	log      logrus.FieldLogger
}

// NewResolver creates the membership service.
func NewResolver(repo Repository, users Users, auditLog audit.Logger, notifier notify.Notifier, log logrus.FieldLogger) Resolver {
	return &resolver{
		repo:     repo,
		users:    users,
		audit:    auditLog,
		notifier: notifier,
		log:      log.WithField("module", "membership"),
	}
}

func (s *resolver) RoleOf(ctx context.Context, shopID, userID uuid.UUID) (Role, error) {
	m, err := s.repo.FindActive(ctx, Key{ShopID: shopID, UserID: userID})
	if errors.Is(err, ErrMembershipNotFound) {
		return "", ErrNotAMember
	}
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

func (s *resolver) RoleOfAt(ctx context.Context, shopID uuid.UUID, branchID *uuid.UUID, userID uuid.UUID) (Role, error) {
	if branchID == nil {
		return s.RoleOf(ctx, shopID, userID)
	}
	m, err := s.repo.FindActive(ctx, Key{ShopID: shopID, BranchID: branchID, UserID: userID})
	switch {
	case err == nil:
		return m.Role, nil
	case errors.Is(err, ErrMembershipNotFound):
		return s.RoleOf(ctx, shopID, userID)
	default:
		return "", err
	}
}

func (s *resolver) HasPermission(ctx context.Context, shopID uuid.UUID, branchID *uuid.UUID, userID uuid.UUID, permission Permission) (bool, error) {
	role, err := s.RoleOfAt(ctx, shopID, branchID, userID)
	if err != nil {
		return false, err
	}
	return Grants(role, permission), nil
}

func (s *resolver) Authorize(ctx context.Context, shopID uuid.UUID, branchID *uuid.UUID, userID uuid.UUID, permission Permission) error {
	ok, err := s.HasPermission(ctx, shopID, branchID, userID, permission)
	if err != nil {
		return err
	}
	if !ok {
		logging.FromContext(ctx, s.log).WithFields(logrus.Fields{
			"shop_id":    shopID,
			"permission": permission,
		}).Debug("permission denied")
		return fmt.Errorf("%w: %s required", ErrForbidden, permission)
	}
	return nil
}

func (s *resolver) RequireRole(ctx context.Context, shopID, userID uuid.UUID, allowed ...Role) error {
	role, err := s.RoleOf(ctx, shopID, userID)
	if err != nil {
		return err
	}
	for _, r := range allowed {
		if r == role {
			return nil
		}
	}
	return ErrForbidden
}

func (s *resolver) AddMember(ctx context.Context, req AddMemberRequest) (*Membership, error) {
	if !req.Role.Valid() {
		return nil, ErrInvalidRole
	}
	invitee, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	m := &Membership{
		ID:        uuid.New(),
		ShopID:    req.ShopID,
		BranchID:  req.BranchID,
		UserID:    req.UserID,
		Role:      req.Role,
		CreatedBy: req.ActorID,
	}
	if err := s.repo.Upsert(ctx, m); err != nil {
		return nil, err
	}

	logging.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"shop_id":   m.ShopID,
		"member_id": m.UserID,
		"role":      m.Role,
		"actor_id":  req.ActorID,
	}).Info("member added")

	s.audit.Log(ctx, audit.Entry{
		ActorID:     req.ActorID,
		ShopID:      m.ShopID,
		TargetID:    m.ID.String(),
		TargetType:  audit.TargetMembership,
		Action:      "MEMBER_ADD",
		Description: fmt.Sprintf("granted %s to %s%s", m.Role, invitee.Email, scopeSuffix(m.BranchID)),
	})

	// The inviter does not need an email about their own new shop.
	if req.ActorID != req.UserID {
		msg := notify.Message{
			To:      invitee.Email,
			Subject: "You have been added to a shop",
			Text:    fmt.Sprintf("You now have the %s role%s. Sign in to get started.", m.Role, scopeSuffix(m.BranchID)),
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			logging.FromContext(ctx, s.log).WithError(err).WithField("shop_id", m.ShopID).Warn("invitation email failed")
		}
	}
	return m, nil
}

func (s *resolver) RemoveMember(ctx context.Context, shopID, userID uuid.UUID, branchID *uuid.UUID, actorID uuid.UUID) error {
	key := Key{ShopID: shopID, BranchID: branchID, UserID: userID}
	target, err := s.repo.FindActive(ctx, key)
	if err != nil {
		return err
	}
	if target.Role == RoleOwner {
		if err := s.RequireRole(ctx, shopID, actorID, RoleOwner); err != nil {
			return err
		}
		if branchID == nil {
			if err := s.keepAnOwner(ctx, shopID); err != nil {
				return err
			}
		}
	}
	if err := s.repo.Revoke(ctx, key); err != nil {
		return err
	}

	logging.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"shop_id":   shopID,
		"member_id": userID,
		"actor_id":  actorID,
	}).Info("member removed")

	s.audit.Log(ctx, audit.Entry{
		ActorID:     actorID,
		ShopID:      shopID,
		TargetID:    userID.String(),
		TargetType:  audit.TargetMembership,
		Action:      "MEMBER_REMOVE",
		Description: "revoked membership" + scopeSuffix(branchID),
	})
	return nil
}

// keepAnOwner fails when removing one shop-wide owner would leave none.
func (s *resolver) keepAnOwner(ctx context.Context, shopID uuid.UUID) error {
	members, err := s.repo.ListActiveByShop(ctx, shopID)
	if err != nil {
		return err
	}
	owners := 0
	for _, m := range members {
		if m.BranchID == nil && m.Role == RoleOwner {
			owners++
		}
	}
	if owners <= 1 {
		return ErrLastOwner
	}
	return nil
}

func (s *resolver) ListMembers(ctx context.Context, shopID uuid.UUID) ([]Membership, error) {
	return s.repo.ListActiveByShop(ctx, shopID)
}

func (s *resolver) ShopsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.ListShopIDsForUser(ctx, userID)
}

func scopeSuffix(branchID *uuid.UUID) string {
	if branchID == nil {
		return ""
	}
	return " at branch " + branchID.String()
}
