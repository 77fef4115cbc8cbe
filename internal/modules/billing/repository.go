package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines data access for plans and subscriptions.
type Repository interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error)
	GetPlanByName(ctx context.Context, name string) (*Plan, error)

	// CreateSubscription fails with ErrAlreadySubscribed when the shop has one.
	CreateSubscription(ctx context.Context, sub *Subscription) error
	GetSubscription(ctx context.Context, shopID uuid.UUID) (*Subscription, error)
	// SaveSubscription overwrites the mutable fields of an existing subscription.
	SaveSubscription(ctx context.Context, sub *Subscription) error

	// ListDue returns TRIAL and ACTIVE subscriptions whose period ended before t.
	ListDue(ctx context.Context, t time.Time) ([]Subscription, error)
	// ListEnding returns TRIAL and ACTIVE subscriptions ending in [from, to)
	// that have not been reminded yet.
	ListEnding(ctx context.Context, from, to time.Time) ([]Subscription, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error
}
