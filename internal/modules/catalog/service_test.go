package catalog

import (
	"context"
	"testing"

	"github.com/georgemunganga/shopdesk-backend/internal/modules/membership"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/shop"
	"github.com/georgemunganga/shopdesk-backend/internal/testkit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) (Service, *testkit.Tenant) {
	tn := testkit.NewTenant(t, shop.TypeGrocery)
	return NewService(NewMemoryRepository(), tn.Members, tn.AuditLog, tn.Log), tn
}

func TestCreateAndListProducts(t *testing.T) {
	svc, tn := newCatalog(t)
	ctx := context.Background()

	milk, err := svc.CreateProduct(ctx, tn.Owner, tn.Shop.ID, ProductRequest{Name: "Milk", Category: "dairy", SKU: "MLK-1", BasePrice: decimal.RequireFromString("12.499")})
	require.NoError(t, err)
	assert.Equal(t, "12.5", milk.BasePrice.String())

	_, err = svc.CreateProduct(ctx, tn.Owner, tn.Shop.ID, ProductRequest{Name: "Bread", Category: "bakery"})
	require.NoError(t, err)

	all, err := svc.ListProducts(ctx, tn.Owner, tn.Shop.ID, Filter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Bread", all[0].Name)

	dairy, err := svc.ListProducts(ctx, tn.Owner, tn.Shop.ID, Filter{Category: "dairy"})
	require.NoError(t, err)
	assert.Len(t, dairy, 1)
}

func TestSKUUniquePerShop(t *testing.T) {
	svc, tn := newCatalog(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, tn.Owner, tn.Shop.ID, ProductRequest{Name: "A", SKU: "X1"})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, tn.Owner, tn.Shop.ID, ProductRequest{Name: "B", SKU: "X1"})
	assert.ErrorIs(t, err, ErrSKUTaken)

	// Empty SKUs never collide.
	_, err = svc.CreateProduct(ctx, tn.Owner, tn.Shop.ID, ProductRequest{Name: "C"})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, tn.Owner, tn.Shop.ID, ProductRequest{Name: "D"})
	require.NoError(t, err)
}

func TestProductValidationAndPermissions(t *testing.T) {
	svc, tn := newCatalog(t)
	ctx := context.Background()
	cashier := tn.Member(t, membership.RoleCashier, nil)

	_, err := svc.CreateProduct(ctx, tn.Owner, tn.Shop.ID, ProductRequest{Name: " "})
	assert.ErrorIs(t, err, ErrNameRequired)
	_, err = svc.CreateProduct(ctx, tn.Owner, tn.Shop.ID, ProductRequest{Name: "Neg", BasePrice: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrNegativePrice)

	_, err = svc.CreateProduct(ctx, cashier, tn.Shop.ID, ProductRequest{Name: "Nope"})
	assert.ErrorIs(t, err, membership.ErrForbidden)
	_, err = svc.ListProducts(ctx, cashier, tn.Shop.ID, Filter{})
	assert.NoError(t, err)
}

func TestDeactivateProduct(t *testing.T) {
	svc, tn := newCatalog(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, tn.Owner, tn.Shop.ID, ProductRequest{Name: "Tea"})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateProduct(ctx, tn.Owner, tn.Shop.ID, p.ID))
	active, err := svc.ListProducts(ctx, tn.Owner, tn.Shop.ID, Filter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, active)

	got, err := svc.GetProduct(ctx, tn.Owner, tn.Shop.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	assert.ErrorIs(t, svc.DeactivateProduct(ctx, tn.Owner, tn.Shop.ID, uuid.New()), ErrProductNotFound)
	assert.Contains(t, tn.Audit.Actions(tn.Shop.ID), "PRODUCT_DEACTIVATE")
}

func TestLookupIsShopScoped(t *testing.T) {
	svc, tn := newCatalog(t)
	p, err := svc.CreateProduct(context.Background(), tn.Owner, tn.Shop.ID, ProductRequest{Name: "Salt"})
	require.NoError(t, err)

	_, err = svc.Lookup(context.Background(), uuid.New(), p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
