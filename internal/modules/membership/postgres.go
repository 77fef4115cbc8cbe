package membership

import (
	"context"
	"database/sql"
	"errors"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/database"
	"github.com/google/uuid"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL membership repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

const memberColumns = `id, shop_id, branch_id, user_id, role, revoked, revoked_at, created_by, created_at, updated_at`

// branch_key is COALESCE(branch_id, nil uuid); the same expression is used to
// address shop-wide rows.
const keyClause = `shop_id = $1 AND branch_key = COALESCE($2::uuid, '00000000-0000-0000-0000-000000000000'::uuid) AND user_id = $3`

func branchArg(branchID *uuid.UUID) interface{} {
	if branchID == nil {
		return nil
	}
	return branchID.String()
}

func (r *postgresRepository) FindActive(ctx context.Context, key Key) (*Membership, error) {
	query := `SELECT ` + memberColumns + ` FROM shop_memberships WHERE ` + keyClause + ` AND NOT revoked`
	m, err := scanMembership(r.db.QueryRowContext(ctx, query, key.ShopID, branchArg(key.BranchID), key.UserID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMembershipNotFound
	}
	return m, err
}

// Upsert relies on the shop_memberships_key constraint. The conditional
// DO UPDATE only fires for revoked rows, so an active duplicate yields no row.
func (r *postgresRepository) Upsert(ctx context.Context, m *Membership) error {
	query := `
		INSERT INTO shop_memberships (id, shop_id, branch_id, user_id, role, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT shop_memberships_key DO UPDATE
		SET role = EXCLUDED.role,
			revoked = FALSE,
			revoked_at = NULL,
			created_by = EXCLUDED.created_by,
			updated_at = NOW()
		WHERE shop_memberships.revoked
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, m.ID, m.ShopID, branchArg(m.BranchID), m.UserID, string(m.Role), m.CreatedBy).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) || database.IsUniqueViolation(err) {
		return ErrDuplicateMembership
	}
	if database.IsForeignKeyViolation(err, "shop_memberships_branch_fkey") {
		return ErrBranchNotInShop
	}
	if err != nil {
		return err
	}
	m.Revoked = false
	m.RevokedAt = nil
	return nil
}

func (r *postgresRepository) Revoke(ctx context.Context, key Key) error {
	query := `
		UPDATE shop_memberships
		SET revoked = TRUE, revoked_at = NOW(), updated_at = NOW()
		WHERE ` + keyClause + ` AND NOT revoked
	`
	res, err := r.db.ExecContext(ctx, query, key.ShopID, branchArg(key.BranchID), key.UserID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

func (r *postgresRepository) ListActiveByShop(ctx context.Context, shopID uuid.UUID) ([]Membership, error) {
	query := `SELECT ` + memberColumns + ` FROM shop_memberships WHERE shop_id = $1 AND NOT revoked ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (r *postgresRepository) ListShopIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT shop_id FROM shop_memberships WHERE user_id = $1 AND NOT revoked`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMembership(row scanner) (*Membership, error) {
	var (
		m         Membership
		branchID  uuid.NullUUID
		role      string
		revokedAt sql.NullTime
	)
	err := row.Scan(&m.ID, &m.ShopID, &branchID, &m.UserID, &role, &m.Revoked, &revokedAt, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if branchID.Valid {
		id := branchID.UUID
		m.BranchID = &id
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		m.RevokedAt = &t
	}
	m.Role = Role(role)
	return &m, nil
}
