package audit

import (
	"context"
	"database/sql"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/google/uuid"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL audit repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Record(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO audit_logs (id, actor_id, shop_id, target_id, target_type, action, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	return r.db.QueryRowContext(ctx, query,
		entry.ID, entry.ActorID, entry.ShopID, entry.TargetID, entry.TargetType, entry.Action, entry.Description,
	).Scan(&entry.CreatedAt)
}

func (r *postgresRepository) ListByShop(ctx context.Context, shopID uuid.UUID, page httpx.Page) ([]Entry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs WHERE shop_id = $1`, shopID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, actor_id, shop_id, target_id, target_type, action, description, created_at
		FROM audit_logs
		WHERE shop_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, shopID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ShopID, &e.TargetID, &e.TargetType, &e.Action, &e.Description, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
