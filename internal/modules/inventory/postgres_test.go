package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bpCols = []string{"id", "shop_id", "branch_id", "product_id", "price", "quantity", "min_quantity", "is_available", "created_at", "updated_at"}

func bpRow(key Key, qty int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(bpCols).AddRow(key.BranchProductID.String(), key.ShopID.String(), key.BranchID.String(),
		uuid.NewString(), "10.00", qty, 0, true, now, now)
}

func newKey() Key {
	return Key{ShopID: uuid.New(), BranchID: uuid.New(), BranchProductID: uuid.New()}
}

func exportOf(n int, actor uuid.UUID) Mutation {
	return func(current BranchProduct) (*Transaction, error) {
		if current.Quantity < n {
			return nil, ErrInsufficientStock
		}
		return &Transaction{
			ID:                uuid.New(),
			ShopID:            current.ShopID,
			BranchID:          current.BranchID,
			BranchProductID:   current.ID,
			Type:              Export,
			QuantityDelta:     -n,
			ResultingQuantity: current.Quantity - n,
			ActorID:           actor,
		}, nil
	}
}

func TestPostgresApplyLocksUpdatesAndAppends(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	key := newKey()
	actor := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM branch_products WHERE id=\\$1 AND shop_id=\\$2 AND branch_id=\\$3 FOR UPDATE").
		WithArgs(key.BranchProductID, key.ShopID, key.BranchID).
		WillReturnRows(bpRow(key, 5))
	mock.ExpectExec("UPDATE branch_products SET quantity=\\$1").
		WithArgs(3, key.BranchProductID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO inventory_transactions").
		WithArgs(sqlmock.AnyArg(), key.ShopID, key.BranchID, key.BranchProductID, "EXPORT", -2, 3, "", nil, actor).
		WillReturnRows(sqlmock.NewRows([]string{"seq", "created_at"}).AddRow(int64(41), time.Now()))
	mock.ExpectCommit()

	tx, err := NewPostgresRepository(db).Apply(context.Background(), key, exportOf(2, actor))
	require.NoError(t, err)
	assert.Equal(t, int64(41), tx.Seq)
	assert.Equal(t, 3, tx.ResultingQuantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyRejectionRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	key := newKey()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FOR UPDATE").WillReturnRows(bpRow(key, 1))
	mock.ExpectRollback()

	_, err = NewPostgresRepository(db).Apply(context.Background(), key, exportOf(2, uuid.New()))
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FOR UPDATE").WillReturnRows(sqlmock.NewRows(bpCols))
	mock.ExpectRollback()

	_, err = NewPostgresRepository(db).Apply(context.Background(), newKey(), exportOf(1, uuid.New()))
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyCheckViolationIsInsufficientStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	key := newKey()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FOR UPDATE").WillReturnRows(bpRow(key, 5))
	mock.ExpectExec("UPDATE branch_products").WillReturnError(&pq.Error{Code: "23514"})
	mock.ExpectRollback()

	_, err = NewPostgresRepository(db).Apply(context.Background(), key, exportOf(1, uuid.New()))
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresHistoryOrdersBySeq(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	key := newKey()
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM inventory_transactions").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	cols := []string{"id", "seq", "shop_id", "branch_id", "branch_product_id", "type", "quantity_delta", "resulting_quantity", "note", "reference_id", "actor_id", "created_at"}
	mock.ExpectQuery("FROM inventory_transactions .* ORDER BY seq DESC LIMIT \\$4 OFFSET \\$5").
		WithArgs(key.BranchProductID, key.ShopID, key.BranchID, 20, 0).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(uuid.NewString(), int64(2), key.ShopID.String(), key.BranchID.String(), key.BranchProductID.String(), "EXPORT", -4, 6, "", "order-1", uuid.NewString(), now).
			AddRow(uuid.NewString(), int64(1), key.ShopID.String(), key.BranchID.String(), key.BranchProductID.String(), "IMPORT", 10, 10, "", nil, uuid.NewString(), now))

	txs, total, err := NewPostgresRepository(db).History(context.Background(), key, httpx.NewPage(1, 20))
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, txs, 2)
	require.NotNil(t, txs[0].ReferenceID)
	assert.Equal(t, "order-1", *txs[0].ReferenceID)
	assert.Nil(t, txs[1].ReferenceID)
}

func TestPostgresUpdateSettingsSendsOnlySetFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	key := newKey()
	minQty := 4

	mock.ExpectQuery("UPDATE branch_products SET price=COALESCE\\(\\$1::numeric, price\\), min_quantity=COALESCE\\(\\$2::integer, min_quantity\\)").
		WithArgs(nil, 4, nil, key.BranchProductID, key.ShopID, key.BranchID).
		WillReturnRows(bpRow(key, 6))

	bp, err := NewPostgresRepository(db).UpdateSettings(context.Background(), key, SettingsRequest{MinQuantity: &minQty})
	require.NoError(t, err)
	assert.Equal(t, 6, bp.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateSettingsMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	key := newKey()
	off := false

	mock.ExpectQuery("UPDATE branch_products").WillReturnRows(sqlmock.NewRows(bpCols))

	_, err = NewPostgresRepository(db).UpdateSettings(context.Background(), key, SettingsRequest{IsAvailable: &off})
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
