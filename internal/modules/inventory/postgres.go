package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/database"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/google/uuid"
)

type postgresRepository struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepository{db: db} }

const branchProductColumns = `id,shop_id,branch_id,product_id,price,quantity,min_quantity,is_available,created_at,updated_at`

const transactionColumns = `id,seq,shop_id,branch_id,branch_product_id,type,quantity_delta,resulting_quantity,note,reference_id,actor_id,created_at`

func scanBranchProduct(scan func(...interface{}) error) (*BranchProduct, error) {
	bp := &BranchProduct{}
	err := scan(&bp.ID, &bp.ShopID, &bp.BranchID, &bp.ProductID, &bp.Price,
		&bp.Quantity, &bp.MinQuantity, &bp.IsAvailable, &bp.CreatedAt, &bp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return bp, nil
}

func scanTransaction(scan func(...interface{}) error) (*Transaction, error) {
	t := &Transaction{}
	var (
		txType string
		ref    sql.NullString
	)
	err := scan(&t.ID, &t.Seq, &t.ShopID, &t.BranchID, &t.BranchProductID, &txType,
		&t.QuantityDelta, &t.ResultingQuantity, &t.Note, &ref, &t.ActorID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Type = TransactionType(txType)
	if ref.Valid {
		t.ReferenceID = &ref.String
	}
	return t, nil
}

func (r *postgresRepository) CreateBranchProduct(ctx context.Context, bp *BranchProduct) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO branch_products (id,shop_id,branch_id,product_id,price,quantity,min_quantity,is_available)
		VALUES ($1,$2,$3,$4,$5,0,$6,$7)
		RETURNING created_at, updated_at`,
		bp.ID, bp.ShopID, bp.BranchID, bp.ProductID, bp.Price, bp.MinQuantity, bp.IsAvailable).
		Scan(&bp.CreatedAt, &bp.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrBranchProductExists
	}
	if err != nil {
		return err
	}
	bp.Quantity = 0
	return nil
}

func (r *postgresRepository) GetBranchProduct(ctx context.Context, key Key) (*BranchProduct, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+branchProductColumns+`
		FROM branch_products WHERE id=$1 AND shop_id=$2 AND branch_id=$3`,
		key.BranchProductID, key.ShopID, key.BranchID)
	bp, err := scanBranchProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return bp, err
}

func (r *postgresRepository) ListBranchProducts(ctx context.Context, shopID, branchID uuid.UUID) ([]BranchProduct, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+branchProductColumns+`
		FROM branch_products WHERE shop_id=$1 AND branch_id=$2 ORDER BY created_at`, shopID, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []BranchProduct{}
	for rows.Next() {
		bp, err := scanBranchProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, *bp)
	}
	return products, rows.Err()
}

func (r *postgresRepository) UpdateSettings(ctx context.Context, key Key, req SettingsRequest) (*BranchProduct, error) {
	var price, minQty, available interface{}
	if req.Price != nil {
		price = req.Price.String()
	}
	if req.MinQuantity != nil {
		minQty = *req.MinQuantity
	}
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE branch_products
		SET price=COALESCE($1::numeric, price),
			min_quantity=COALESCE($2::integer, min_quantity),
			is_available=COALESCE($3::boolean, is_available),
			updated_at=NOW()
		WHERE id=$4 AND shop_id=$5 AND branch_id=$6
		RETURNING `+branchProductColumns,
		price, minQty, available, key.BranchProductID, key.ShopID, key.BranchID)
	bp, err := scanBranchProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return bp, err
}

func (r *postgresRepository) Apply(ctx context.Context, key Key, mutate Mutation) (*Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+branchProductColumns+`
		FROM branch_products WHERE id=$1 AND shop_id=$2 AND branch_id=$3
		FOR UPDATE`, key.BranchProductID, key.ShopID, key.BranchID)
	current, err := scanBranchProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	t, err := mutate(*current)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `UPDATE branch_products SET quantity=$1, updated_at=NOW() WHERE id=$2`,
		t.ResultingQuantity, current.ID)
	if database.IsCheckViolation(err) {
		return nil, ErrInsufficientStock
	}
	if err != nil {
		return nil, fmt.Errorf("update quantity: %w", err)
	}

	var ref interface{}
	if t.ReferenceID != nil {
		ref = *t.ReferenceID
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO inventory_transactions
		  (id,shop_id,branch_id,branch_product_id,type,quantity_delta,resulting_quantity,note,reference_id,actor_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING seq, created_at`,
		t.ID, t.ShopID, t.BranchID, t.BranchProductID, string(t.Type),
		t.QuantityDelta, t.ResultingQuantity, t.Note, ref, t.ActorID).
		Scan(&t.Seq, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresRepository) History(ctx context.Context, key Key, page httpx.Page) ([]Transaction, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM inventory_transactions
		WHERE branch_product_id=$1 AND shop_id=$2 AND branch_id=$3`,
		key.BranchProductID, key.ShopID, key.BranchID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+transactionColumns+`
		FROM inventory_transactions
		WHERE branch_product_id=$1 AND shop_id=$2 AND branch_id=$3
		ORDER BY seq DESC
		LIMIT $4 OFFSET $5`,
		key.BranchProductID, key.ShopID, key.BranchID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	txs, err := collectTransactions(rows)
	return txs, total, err
}

func (r *postgresRepository) Replay(ctx context.Context, key Key) ([]Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+transactionColumns+`
		FROM inventory_transactions
		WHERE branch_product_id=$1 AND shop_id=$2 AND branch_id=$3
		ORDER BY seq`,
		key.BranchProductID, key.ShopID, key.BranchID)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]Transaction, error) {
	defer rows.Close()
	txs := []Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}
