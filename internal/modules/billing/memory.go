package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultPlans mirrors the plans seeded by the initial migration.
func DefaultPlans() []Plan {
	return []Plan{
		{ID: uuid.MustParse("6f1c1d2a-0d0b-4c55-9a7c-2b0f0c5e1a01"), Name: FreePlan, MonthlyPrice: decimal.Zero, MaxBranches: 1},
		{ID: uuid.MustParse("6f1c1d2a-0d0b-4c55-9a7c-2b0f0c5e1a02"), Name: "STANDARD", MonthlyPrice: decimal.NewFromInt(250), MaxBranches: 5},
		{ID: uuid.MustParse("6f1c1d2a-0d0b-4c55-9a7c-2b0f0c5e1a03"), Name: "PREMIUM", MonthlyPrice: decimal.NewFromInt(750), MaxBranches: 50},
	}
}

type memoryRepository struct {
	mu    sync.RWMutex
	plans []Plan
	subs  map[uuid.UUID]Subscription // by shop
}

// NewMemoryRepository returns a process-local repository holding plans.
func NewMemoryRepository(plans ...Plan) Repository {
	return &memoryRepository{plans: plans, subs: make(map[uuid.UUID]Subscription)}
}

func (r *memoryRepository) ListPlans(context.Context) ([]Plan, error) {
	plans := append([]Plan(nil), r.plans...)
	sort.SliceStable(plans, func(i, j int) bool { return plans[i].MonthlyPrice.LessThan(plans[j].MonthlyPrice) })
	return plans, nil
}

func (r *memoryRepository) GetPlan(_ context.Context, id uuid.UUID) (*Plan, error) {
	for _, p := range r.plans {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, ErrPlanNotFound
}

func (r *memoryRepository) GetPlanByName(_ context.Context, name string) (*Plan, error) {
	for _, p := range r.plans {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, ErrPlanNotFound
}

func (r *memoryRepository) withPlanName(sub Subscription) Subscription {
	for _, p := range r.plans {
		if p.ID == sub.PlanID {
			sub.PlanName = p.Name
		}
	}
	return sub
}

func (r *memoryRepository) CreateSubscription(_ context.Context, sub *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[sub.ShopID]; ok {
		return ErrAlreadySubscribed
	}
	now := time.Now().UTC()
	sub.CreatedAt, sub.UpdatedAt = now, now
	r.subs[sub.ShopID] = *sub
	return nil
}

func (r *memoryRepository) GetSubscription(_ context.Context, shopID uuid.UUID) (*Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[shopID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	sub = r.withPlanName(sub)
	return &sub, nil
}

func (r *memoryRepository) SaveSubscription(_ context.Context, sub *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.subs[sub.ShopID]
	if !ok || existing.ID != sub.ID {
		return ErrSubscriptionNotFound
	}
	sub.CreatedAt = existing.CreatedAt
	sub.UpdatedAt = time.Now().UTC()
	r.subs[sub.ShopID] = *sub
	return nil
}

func (r *memoryRepository) ListDue(_ context.Context, t time.Time) ([]Subscription, error) {
	return r.filter(func(s Subscription) bool {
		return (s.Status == SubActive || s.Status == SubTrial) && s.CurrentPeriodEnd.Before(t)
	}), nil
}

func (r *memoryRepository) ListEnding(_ context.Context, from, to time.Time) ([]Subscription, error) {
	return r.filter(func(s Subscription) bool {
		return (s.Status == SubActive || s.Status == SubTrial) && s.RemindedAt == nil &&
			!s.CurrentPeriodEnd.Before(from) && s.CurrentPeriodEnd.Before(to)
	}), nil
}

func (r *memoryRepository) MarkReminded(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for shopID, s := range r.subs {
		if s.ID == id {
			s.RemindedAt = &at
			r.subs[shopID] = s
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

func (r *memoryRepository) filter(keep func(Subscription) bool) []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Subscription{}
	for _, s := range r.subs {
		if keep(s) {
			out = append(out, r.withPlanName(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CurrentPeriodEnd.Before(out[j].CurrentPeriodEnd) })
	return out
}
