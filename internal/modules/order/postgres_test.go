package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder() *Order {
	id := uuid.New()
	return &Order{
		ID:          id,
		ShopID:      uuid.New(),
		BranchID:    uuid.New(),
		OrderNumber: "ORD-20240301-ABC123",
		Status:      StatusPending,
		Subtotal:    decimal.NewFromInt(20),
		Discount:    decimal.Zero,
		Tax:         decimal.RequireFromString("3.20"),
		Total:       decimal.RequireFromString("23.20"),
		Currency:    "ZMW",
		CreatedBy:   uuid.New(),
		Items: []Item{
			{ID: uuid.New(), OrderID: id, BranchProductID: uuid.New(), Quantity: 2, UnitPrice: decimal.NewFromInt(10), LineTotal: decimal.NewFromInt(20)},
		},
	}
}

func TestPostgresCreateWritesOrderAndItems(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	o := sampleOrder()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(o.Items[0].ID, o.ID, o.Items[0].BranchProductID, 0, 2, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewPostgresRepository(db).Create(context.Background(), o))
	assert.Equal(t, now, o.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateDuplicateNumber(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err = NewPostgresRepository(db).Create(context.Background(), sampleOrder())
	assert.ErrorIs(t, err, ErrDuplicateOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresItemFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec("INSERT INTO order_items").WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	err = NewPostgresRepository(db).Create(context.Background(), sampleOrder())
	assert.ErrorContains(t, err, "insert order_item")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM orders WHERE id=\\$1 AND shop_id=\\$2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = NewPostgresRepository(db).Get(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPostgresUpdateStatusIsConditional(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	shopID, id := uuid.New(), uuid.New()

	mock.ExpectExec("UPDATE orders SET status=\\$1, updated_at=\\$2 WHERE id=\\$3 AND shop_id=\\$4 AND status=\\$5").
		WithArgs("CANCELLED", sqlmock.AnyArg(), id, shopID, "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPostgresRepository(db).UpdateStatus(context.Background(), shopID, id, StatusPending, StatusCancelled)
	assert.ErrorIs(t, err, ErrStatusChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListBuildsFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	shopID, branchID := uuid.New(), uuid.New()
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM orders WHERE shop_id=\\$1 AND branch_id=\\$2 AND status=\\$3 AND created_at >= \\$4").
		WithArgs(shopID, branchID, "READY", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("ORDER BY created_at DESC, id LIMIT \\$5 OFFSET \\$6").
		WithArgs(shopID, branchID, "READY", from, 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	orders, total, err := NewPostgresRepository(db).ListByBranch(context.Background(), shopID, branchID,
		Filter{Status: StatusReady, From: from}, httpx.NewPage(1, 20))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}
