// Package testkit builds in-memory tenants for module tests.
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/modules/audit"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/membership"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/shop"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/user"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/cache"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/logging"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/notify"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// Tenant is a shop with one branch and an owner, backed by memory repositories.
type Tenant struct {
	Log      *logrus.Logger
	Users    user.Service
	Members  membership.Resolver
	Audit    *audit.MemoryRepository
	AuditLog *audit.BestEffort
	ShopRepo shop.Repository
	Shops    shop.Service
	Owner    uuid.UUID
	Shop     *shop.Shop
	Branch   *shop.Branch
}

func NewTenant(t testing.TB, shopType shop.ShopType) *Tenant {
	t.Helper()
	ctx := context.Background()
	log := logging.Discard()
	tn := &Tenant{Log: log, Audit: audit.NewMemoryRepository()}
	tn.AuditLog = audit.NewBestEffort(tn.Audit, log)
	tn.Users = user.NewService(user.NewMemoryRepository(), log)
	tn.Members = membership.NewResolver(membership.NewMemoryRepository(), tn.Users, tn.AuditLog, notify.LogNotifier{Log: log}, log)
	tn.ShopRepo = shop.NewMemoryRepository()
	tn.Shops = shop.NewService(tn.ShopRepo, tn.Members, nil, cache.NewMemory(), time.Minute, tn.AuditLog, log)

	tn.Owner = tn.NewUser(t)
	var err error
	tn.Shop, err = tn.Shops.CreateShop(ctx, tn.Owner, shop.CreateShopRequest{Name: "Test Shop", Type: shopType})
	require.NoError(t, err)
	tn.Branch, err = tn.Shops.CreateBranch(ctx, tn.Owner, tn.Shop.ID, shop.BranchRequest{Name: "Main"})
	require.NoError(t, err)
	return tn
}

// NewUser registers a user that belongs to no shop.
func (tn *Tenant) NewUser(t testing.TB) uuid.UUID {
	t.Helper()
	u, err := tn.Users.RegisterUser(context.Background(), uuid.NewString()+"@shop.test", "password1", "Test", "User")
	require.NoError(t, err)
	return u.ID
}

// Member registers a user and grants role, scoped to branchID when set.
func (tn *Tenant) Member(t testing.TB, role membership.Role, branchID *uuid.UUID) uuid.UUID {
	t.Helper()
	id := tn.NewUser(t)
	_, err := tn.Members.AddMember(context.Background(), membership.AddMemberRequest{
		ShopID:   tn.Shop.ID,
		BranchID: branchID,
		UserID:   id,
		Role:     role,
		ActorID:  tn.Owner,
	})
	require.NoError(t, err)
	return id
}
