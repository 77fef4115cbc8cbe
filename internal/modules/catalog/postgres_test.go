package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresCreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p := &Product{ID: uuid.New(), ShopID: uuid.New(), Name: "A", SKU: "X", BasePrice: decimal.NewFromInt(5)}
	mock.ExpectQuery("INSERT INTO products").WillReturnError(&pq.Error{Code: "23505"})

	assert.ErrorIs(t, NewPostgresRepository(db).Create(context.Background(), p), ErrSKUTaken)
}

func TestPostgresListBuildsFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	shopID := uuid.New()
	now := time.Now()

	cols := []string{"id", "shop_id", "name", "description", "category", "sku", "base_price", "is_active", "attributes", "created_at", "updated_at"}
	mock.ExpectQuery(`FROM products WHERE shop_id=\$1 AND category=\$2 AND is_active=true ORDER BY name`).
		WithArgs(shopID, "dairy").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(uuid.NewString(), shopID.String(), "Milk", "", "dairy", "", "12.50", true, []byte(`{"fat":"2%"}`), now, now))

	products, err := NewPostgresRepository(db).List(context.Background(), shopID, Filter{Category: "dairy", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, products[0].BasePrice.Equal(decimal.RequireFromString("12.5")))
	assert.JSONEq(t, `{"fat":"2%"}`, string(products[0].Attributes))
	assert.NoError(t, mock.ExpectationsWereMet())
}
