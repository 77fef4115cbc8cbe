package billing

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/database"
	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// ── Plans ─────────────────────────────────────────────────────────────────────

const planColumns = `id, name, monthly_price, max_branches, created_at`

func scanPlan(scan func(...interface{}) error) (*Plan, error) {
	p := &Plan{}
	if err := scan(&p.ID, &p.Name, &p.MonthlyPrice, &p.MaxBranches, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+planColumns+` FROM plans ORDER BY monthly_price, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	plans := []Plan{}
	for rows.Next() {
		p, err := scanPlan(rows.Scan)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

func (r *postgresRepo) GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error) {
	p, err := scanPlan(r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id=$1`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	return p, err
}

func (r *postgresRepo) GetPlanByName(ctx context.Context, name string) (*Plan, error) {
	p, err := scanPlan(r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE name=$1`, name).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	return p, err
}

// ── Subscriptions ─────────────────────────────────────────────────────────────

const subscriptionSelect = `
	SELECT s.id, s.shop_id, s.plan_id, p.name, s.status, s.billing_cycle,
	       s.current_period_start, s.current_period_end, s.trial_ends_at,
	       s.cancelled_at, s.cancel_reason, s.auto_renew, s.reminded_at,
	       s.created_at, s.updated_at
	FROM subscriptions s
	JOIN plans p ON p.id = s.plan_id`

func scanSubscription(scan func(...interface{}) error) (*Subscription, error) {
	sub := &Subscription{}
	var (
		status, cycle                  string
		trialEnds, cancelled, reminded sql.NullTime
	)
	err := scan(&sub.ID, &sub.ShopID, &sub.PlanID, &sub.PlanName, &status, &cycle,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &trialEnds,
		&cancelled, &sub.CancelReason, &sub.AutoRenew, &reminded,
		&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sub.Status = SubscriptionStatus(status)
	sub.BillingCycle = BillingCycle(cycle)
	sub.TrialEndsAt = timePtr(trialEnds)
	sub.CancelledAt = timePtr(cancelled)
	sub.RemindedAt = timePtr(reminded)
	return sub, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func (r *postgresRepo) CreateSubscription(ctx context.Context, sub *Subscription) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO subscriptions
		  (id, shop_id, plan_id, status, billing_cycle,
		   current_period_start, current_period_end, trial_ends_at, auto_renew)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		sub.ID, sub.ShopID, sub.PlanID, string(sub.Status), string(sub.BillingCycle),
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.TrialEndsAt, sub.AutoRenew).
		Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrAlreadySubscribed
	}
	return err
}

func (r *postgresRepo) GetSubscription(ctx context.Context, shopID uuid.UUID) (*Subscription, error) {
	sub, err := scanSubscription(r.db.QueryRowContext(ctx, subscriptionSelect+` WHERE s.shop_id = $1`, shopID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	return sub, err
}

func (r *postgresRepo) SaveSubscription(ctx context.Context, sub *Subscription) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE subscriptions
		SET plan_id=$1, status=$2, billing_cycle=$3, current_period_start=$4, current_period_end=$5,
		    trial_ends_at=$6, cancelled_at=$7, cancel_reason=$8, auto_renew=$9, reminded_at=$10,
		    updated_at=NOW()
		WHERE id=$11
		RETURNING updated_at`,
		sub.PlanID, string(sub.Status), string(sub.BillingCycle), sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.TrialEndsAt, sub.CancelledAt, sub.CancelReason, sub.AutoRenew, sub.RemindedAt, sub.ID).
		Scan(&sub.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSubscriptionNotFound
	}
	return err
}

func (r *postgresRepo) ListDue(ctx context.Context, t time.Time) ([]Subscription, error) {
	return r.query(ctx, subscriptionSelect+`
		WHERE s.status IN ('ACTIVE','TRIAL') AND s.current_period_end < $1
		ORDER BY s.current_period_end`, t)
}

func (r *postgresRepo) ListEnding(ctx context.Context, from, to time.Time) ([]Subscription, error) {
	return r.query(ctx, subscriptionSelect+`
		WHERE s.status IN ('ACTIVE','TRIAL') AND s.reminded_at IS NULL
		  AND s.current_period_end >= $1 AND s.current_period_end < $2
		ORDER BY s.current_period_end`, from, to)
}

func (r *postgresRepo) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE subscriptions SET reminded_at=$1 WHERE id=$2`, at, id)
	return err
}

func (r *postgresRepo) query(ctx context.Context, query string, args ...interface{}) ([]Subscription, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	subs := []Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows.Scan)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}
