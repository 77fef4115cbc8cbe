package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/database"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const orderColumns = `id,shop_id,branch_id,customer_id,order_number,status,
	subtotal,discount,tax,total,currency,notes,created_by,created_at,updated_at`

// Create inserts the order and all its items inside a single transaction.
func (r *postgresRepo) Create(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders
		  (id, shop_id, branch_id, customer_id, order_number, status,
		   subtotal, discount, tax, total, currency, notes, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at`,
		o.ID, o.ShopID, o.BranchID, o.CustomerID, o.OrderNumber, string(o.Status),
		o.Subtotal, o.Discount, o.Tax, o.Total, o.Currency, o.Notes, o.CreatedBy).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%w: order number %s", ErrDuplicateOrder, o.OrderNumber)
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, branch_product_id, position, quantity, unit_price, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			item.ID, o.ID, item.BranchProductID, i, item.Quantity, item.UnitPrice, item.LineTotal)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	return tx.Commit()
}

func (r *postgresRepo) Get(ctx context.Context, shopID, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+`
		FROM orders WHERE id=$1 AND shop_id=$2`, id, shopID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Items, err = r.listItems(ctx, o.ID)
	return o, err
}

func (r *postgresRepo) ListByBranch(ctx context.Context, shopID, branchID uuid.UUID, filter Filter, page httpx.Page) ([]Order, int, error) {
	where := ` WHERE shop_id=$1 AND branch_id=$2`
	args := []interface{}{shopID, branchID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where += fmt.Sprintf(` AND created_at < $%d`, len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, shopID, id uuid.UUID, from, to Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status=$1, updated_at=$2 WHERE id=$3 AND shop_id=$4 AND status=$5`,
		string(to), time.Now().UTC(), id, shopID, string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *postgresRepo) Totals(ctx context.Context, shopID uuid.UUID, branchID *uuid.UUID, from, to time.Time) ([]BranchTotals, error) {
	var branch interface{}
	if branchID != nil {
		branch = branchID.String()
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT branch_id, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE shop_id=$1 AND ($2::uuid IS NULL OR branch_id=$2::uuid)
		  AND status <> 'CANCELLED' AND created_at >= $3 AND created_at < $4
		GROUP BY branch_id
		ORDER BY branch_id`, shopID, branch, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := []BranchTotals{}
	for rows.Next() {
		var t BranchTotals
		if err := rows.Scan(&t.BranchID, &t.Orders, &t.Revenue); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func scanOrder(scan func(...interface{}) error) (*Order, error) {
	o := &Order{}
	var (
		customerID uuid.NullUUID
		status     string
	)
	err := scan(&o.ID, &o.ShopID, &o.BranchID, &customerID, &o.OrderNumber, &status,
		&o.Subtotal, &o.Discount, &o.Tax, &o.Total, &o.Currency, &o.Notes,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if customerID.Valid {
		o.CustomerID = &customerID.UUID
	}
	o.Status = Status(status)
	return o, nil
}

func (r *postgresRepo) listItems(ctx context.Context, orderID uuid.UUID) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, branch_product_id, quantity, unit_price, line_total
		FROM order_items WHERE order_id=$1 ORDER BY position`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.OrderID, &item.BranchProductID,
			&item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
