package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/database"
	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func attrsArg(p *Product) interface{} {
	if len(p.Attributes) == 0 {
		return nil
	}
	return []byte(p.Attributes)
}

func (r *postgresRepo) Create(ctx context.Context, p *Product) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products
		  (id, shop_id, name, description, category, sku, base_price, is_active, attributes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		p.ID, p.ShopID, p.Name, p.Description, p.Category,
		p.SKU, p.BasePrice, p.IsActive, attrsArg(p)).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrSKUTaken
	}
	return err
}

func scanProduct(scan func(...interface{}) error) (*Product, error) {
	p := &Product{}
	var attrs []byte
	err := scan(&p.ID, &p.ShopID, &p.Name, &p.Description, &p.Category,
		&p.SKU, &p.BasePrice, &p.IsActive, &attrs,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if attrs != nil {
		p.Attributes = attrs
	}
	return p, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, shopID, id uuid.UUID) (*Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id,shop_id,name,description,category,sku,base_price,is_active,attributes,created_at,updated_at
		FROM products WHERE id=$1 AND shop_id=$2`, id, shopID)
	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (r *postgresRepo) List(ctx context.Context, shopID uuid.UUID, filter Filter) ([]*Product, error) {
	query := `SELECT id,shop_id,name,description,category,sku,base_price,is_active,attributes,created_at,updated_at
	          FROM products WHERE shop_id=$1`
	args := []interface{}{shopID}
	n := 2
	if filter.Category != "" {
		query += fmt.Sprintf(` AND category=$%d`, n)
		args = append(args, filter.Category)
		n++
	}
	if filter.ActiveOnly {
		query += ` AND is_active=true`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*Product{}
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, p *Product) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET name=$1, description=$2, category=$3, sku=$4, base_price=$5,
		    is_active=$6, attributes=$7, updated_at=NOW()
		WHERE id=$8 AND shop_id=$9
		RETURNING updated_at`,
		p.Name, p.Description, p.Category, p.SKU, p.BasePrice,
		p.IsActive, attrsArg(p), p.ID, p.ShopID).
		Scan(&p.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrProductNotFound
	case database.IsUniqueViolation(err):
		return ErrSKUTaken
	}
	return err
}
