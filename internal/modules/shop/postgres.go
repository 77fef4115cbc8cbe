package shop

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL shop repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateShop(ctx context.Context, s *Shop) error {
	query := `
		INSERT INTO shops (id, owner_id, name, type, currency, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query, s.ID, s.OwnerID, s.Name, string(s.Type), s.Currency, s.IsActive).
		Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *postgresRepository) GetShop(ctx context.Context, id uuid.UUID) (*Shop, error) {
	query := `
		SELECT id, owner_id, name, type, currency, is_active, created_at, updated_at
		FROM shops
		WHERE id = $1
	`
	s, err := scanShop(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShopNotFound
	}
	return s, err
}

func (r *postgresRepository) UpdateShop(ctx context.Context, s *Shop) error {
	query := `
		UPDATE shops
		SET name = $2, type = $3, currency = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, s.ID, s.Name, string(s.Type), s.Currency, s.IsActive).Scan(&s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrShopNotFound
	}
	return err
}

func (r *postgresRepository) ListShopsByIDs(ctx context.Context, ids []uuid.UUID) ([]Shop, error) {
	shops := []Shop{}
	if len(ids) == 0 {
		return shops, nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	query := `
		SELECT id, owner_id, name, type, currency, is_active, created_at, updated_at
		FROM shops
		WHERE id = ANY($1::uuid[])
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(strIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		shops = append(shops, *s)
	}
	return shops, rows.Err()
}

func (r *postgresRepository) CreateBranch(ctx context.Context, b *Branch) error {
	query := `
		INSERT INTO branches (id, shop_id, name, address, phone, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query, b.ID, b.ShopID, b.Name, b.Address, b.Phone, b.IsActive).
		Scan(&b.CreatedAt, &b.UpdatedAt)
}

func (r *postgresRepository) GetBranch(ctx context.Context, shopID, branchID uuid.UUID) (*Branch, error) {
	query := `
		SELECT id, shop_id, name, address, phone, is_active, created_at, updated_at
		FROM branches
		WHERE id = $1 AND shop_id = $2
	`
	b, err := scanBranch(r.db.QueryRowContext(ctx, query, branchID, shopID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBranchNotFound
	}
	return b, err
}

func (r *postgresRepository) ListBranches(ctx context.Context, shopID uuid.UUID) ([]Branch, error) {
	query := `
		SELECT id, shop_id, name, address, phone, is_active, created_at, updated_at
		FROM branches
		WHERE shop_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	branches := []Branch{}
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		branches = append(branches, *b)
	}
	return branches, rows.Err()
}

func (r *postgresRepository) CountBranches(ctx context.Context, shopID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM branches WHERE shop_id = $1`, shopID).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanShop(row scanner) (*Shop, error) {
	s := &Shop{}
	var shopType string
	if err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &shopType, &s.Currency, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Type = ShopType(shopType)
	return s, nil
}

func scanBranch(row scanner) (*Branch, error) {
	b := &Branch{}
	err := row.Scan(&b.ID, &b.ShopID, &b.Name, &b.Address, &b.Phone, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}
