package billing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/modules/membership"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/shop"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/cache"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/notify"
	"github.com/georgemunganga/shopdesk-backend/internal/testkit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outbox struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, msg)
	return nil
}

type billingEnv struct {
	*testkit.Tenant
	repo    Repository
	outbox  *outbox
	service *service
	now     time.Time
}

func newBillingEnv(t *testing.T) *billingEnv {
	t.Helper()
	tn := testkit.NewTenant(t, shop.TypeRetail)
	e := &billingEnv{
		Tenant: tn,
		repo:   NewMemoryRepository(DefaultPlans()...),
		outbox: &outbox{},
		now:    time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	e.service = NewService(e.repo, tn.Members, tn.ShopRepo, tn.Users, e.outbox, tn.AuditLog, tn.Log).(*service)
	e.service.now = func() time.Time { return e.now }
	return e
}

func (e *billingEnv) plan(t *testing.T, name string) Plan {
	t.Helper()
	p, err := e.repo.GetPlanByName(context.Background(), name)
	require.NoError(t, err)
	return *p
}

func TestSubscribe(t *testing.T) {
	e := newBillingEnv(t)
	ctx := context.Background()
	free := e.plan(t, FreePlan)

	sub, err := e.service.Subscribe(ctx, e.Owner, e.Shop.ID, SubscribeRequest{PlanID: free.ID})
	require.NoError(t, err)
	assert.Equal(t, SubActive, sub.Status)
	assert.Equal(t, CycleMonthly, sub.BillingCycle)
	assert.Equal(t, e.now.AddDate(0, 1, 0), sub.CurrentPeriodEnd)
	assert.True(t, sub.AutoRenew)

	_, err = e.service.Subscribe(ctx, e.Owner, e.Shop.ID, SubscribeRequest{PlanID: free.ID})
	assert.ErrorIs(t, err, ErrAlreadySubscribed)

	got, err := e.service.GetSubscription(ctx, e.Owner, e.Shop.ID)
	require.NoError(t, err)
	assert.Equal(t, FreePlan, got.PlanName)
	assert.Contains(t, e.Audit.Actions(e.Shop.ID), "SUBSCRIPTION_CREATE")
}

func TestSubscribeIsOwnerOnly(t *testing.T) {
	e := newBillingEnv(t)
	ctx := context.Background()
	req := SubscribeRequest{PlanID: e.plan(t, "STANDARD").ID}

	admin := e.Member(t, membership.RoleAdmin, nil)
	_, err := e.service.Subscribe(ctx, admin, e.Shop.ID, req)
	assert.ErrorIs(t, err, membership.ErrForbidden)

	_, err = e.service.Subscribe(ctx, e.NewUser(t), e.Shop.ID, req)
	assert.ErrorIs(t, err, membership.ErrNotAMember)

	_, err = e.service.Subscribe(ctx, e.Owner, e.Shop.ID, SubscribeRequest{PlanID: uuid.New()})
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = e.service.Subscribe(ctx, e.Owner, e.Shop.ID, SubscribeRequest{PlanID: req.PlanID, TrialDays: 365})
	assert.ErrorIs(t, err, ErrInvalidTrial)
}

func TestAnnualTrial(t *testing.T) {
	e := newBillingEnv(t)
	off := false
	sub, err := e.service.Subscribe(context.Background(), e.Owner, e.Shop.ID, SubscribeRequest{
		PlanID:       e.plan(t, "PREMIUM").ID,
		BillingCycle: "annual",
		TrialDays:    14,
		AutoRenew:    &off,
	})
	require.NoError(t, err)
	assert.Equal(t, SubTrial, sub.Status)
	assert.Equal(t, CycleAnnual, sub.BillingCycle)
	require.NotNil(t, sub.TrialEndsAt)
	assert.Equal(t, e.now.AddDate(0, 0, 14), sub.CurrentPeriodEnd)
	assert.False(t, sub.AutoRenew)
	assert.Equal(t, "8100.00", e.plan(t, "PREMIUM").Price(CycleAnnual).StringFixed(2))
}

func TestBranchLimitFollowsPlan(t *testing.T) {
	e := newBillingEnv(t)
	ctx := context.Background()
	shops := shop.NewService(e.ShopRepo, e.Members, e.service, cache.NewMemory(), time.Minute, e.AuditLog, e.Log)

	limit, err := e.service.MaxBranches(ctx, e.Shop.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, limit)

	_, err = shops.CreateBranch(ctx, e.Owner, e.Shop.ID, shop.BranchRequest{Name: "Second"})
	assert.ErrorIs(t, err, shop.ErrBranchLimit)

	_, err = e.service.Subscribe(ctx, e.Owner, e.Shop.ID, SubscribeRequest{PlanID: e.plan(t, "STANDARD").ID})
	require.NoError(t, err)
	_, err = shops.CreateBranch(ctx, e.Owner, e.Shop.ID, shop.BranchRequest{Name: "Second"})
	require.NoError(t, err)

	_, err = e.service.ChangePlan(ctx, e.Owner, e.Shop.ID, ChangePlanRequest{PlanID: e.plan(t, FreePlan).ID})
	assert.ErrorIs(t, err, ErrPlanTooSmall)

	sub, err := e.service.ChangePlan(ctx, e.Owner, e.Shop.ID, ChangePlanRequest{PlanID: e.plan(t, "PREMIUM").ID})
	require.NoError(t, err)
	assert.Equal(t, "PREMIUM", sub.PlanName)
	limit, err = e.service.MaxBranches(ctx, e.Shop.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, limit)
}

func TestMaxBranchesWithoutPlans(t *testing.T) {
	tn := testkit.NewTenant(t, shop.TypeRetail)
	svc := NewService(NewMemoryRepository(), tn.Members, tn.ShopRepo, tn.Users, &outbox{}, tn.AuditLog, tn.Log)
	limit, err := svc.MaxBranches(context.Background(), tn.Shop.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, limit)
}

func TestChangePlanAndCancel(t *testing.T) {
	e := newBillingEnv(t)
	ctx := context.Background()
	standard := e.plan(t, "STANDARD")

	first, err := e.service.Subscribe(ctx, e.Owner, e.Shop.ID, SubscribeRequest{PlanID: standard.ID})
	require.NoError(t, err)

	_, err = e.service.ChangePlan(ctx, e.Owner, e.Shop.ID, ChangePlanRequest{PlanID: standard.ID})
	assert.ErrorIs(t, err, ErrSamePlan)

	sub, err := e.service.Cancel(ctx, e.Owner, e.Shop.ID, CancelRequest{Reason: " closing down "})
	require.NoError(t, err)
	assert.Equal(t, SubCancelled, sub.Status)
	assert.Equal(t, "closing down", sub.CancelReason)
	assert.False(t, sub.AutoRenew)
	require.NotNil(t, sub.CancelledAt)

	_, err = e.service.Cancel(ctx, e.Owner, e.Shop.ID, CancelRequest{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = e.service.ChangePlan(ctx, e.Owner, e.Shop.ID, ChangePlanRequest{PlanID: e.plan(t, "PREMIUM").ID})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	again, err := e.service.Subscribe(ctx, e.Owner, e.Shop.ID, SubscribeRequest{PlanID: standard.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, SubActive, again.Status)
	assert.Nil(t, again.CancelledAt)
}

func TestSweepExpired(t *testing.T) {
	e := newBillingEnv(t)
	ctx := context.Background()
	standard := e.plan(t, "STANDARD")

	renewing := &Subscription{
		ID: uuid.New(), ShopID: uuid.New(), PlanID: standard.ID, Status: SubActive, BillingCycle: CycleMonthly,
		CurrentPeriodStart: e.now.AddDate(0, 0, -70), CurrentPeriodEnd: e.now.AddDate(0, 0, -40), AutoRenew: true,
	}
	lapsing := &Subscription{
		ID: uuid.New(), ShopID: uuid.New(), PlanID: standard.ID, Status: SubTrial, BillingCycle: CycleMonthly,
		CurrentPeriodStart: e.now.AddDate(0, 0, -14), CurrentPeriodEnd: e.now.Add(-time.Hour),
	}
	current := &Subscription{
		ID: uuid.New(), ShopID: uuid.New(), PlanID: standard.ID, Status: SubActive, BillingCycle: CycleMonthly,
		CurrentPeriodStart: e.now.AddDate(0, 0, -1), CurrentPeriodEnd: e.now.AddDate(0, 0, 29),
	}
	for _, s := range []*Subscription{renewing, lapsing, current} {
		require.NoError(t, e.repo.CreateSubscription(ctx, s))
	}

	res, err := e.service.SweepExpired(ctx, e.now)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Expired: 1, Renewed: 1}, res)

	got, err := e.repo.GetSubscription(ctx, renewing.ShopID)
	require.NoError(t, err)
	assert.Equal(t, SubActive, got.Status)
	assert.True(t, got.CurrentPeriodEnd.After(e.now))
	assert.False(t, got.CurrentPeriodStart.After(e.now))

	got, err = e.repo.GetSubscription(ctx, lapsing.ShopID)
	require.NoError(t, err)
	assert.Equal(t, SubExpired, got.Status)
	limit, err := e.service.MaxBranches(ctx, lapsing.ShopID)
	require.NoError(t, err)
	assert.Equal(t, 1, limit)

	res, err = e.service.SweepExpired(ctx, e.now)
	require.NoError(t, err)
	assert.Zero(t, res)
}

func TestRemindExpiring(t *testing.T) {
	e := newBillingEnv(t)
	ctx := context.Background()
	owner, err := e.Users.GetUser(ctx, e.Owner)
	require.NoError(t, err)

	_, err = e.service.Subscribe(ctx, e.Owner, e.Shop.ID, SubscribeRequest{PlanID: e.plan(t, "STANDARD").ID, TrialDays: 2})
	require.NoError(t, err)

	e.outbox.err = errors.New("ses throttled")
	sent, err := e.service.RemindExpiring(ctx, e.now, 3)
	assert.ErrorContains(t, err, "ses throttled")
	assert.Zero(t, sent)

	e.outbox.err = nil
	sent, err = e.service.RemindExpiring(ctx, e.now, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, e.outbox.sent, 1)
	assert.Equal(t, owner.Email, e.outbox.sent[0].To)
	assert.Contains(t, e.outbox.sent[0].Text, "renew automatically")

	sent, err = e.service.RemindExpiring(ctx, e.now, 3)
	require.NoError(t, err)
	assert.Zero(t, sent)

	sent, err = e.service.RemindExpiring(ctx, e.now, 1)
	require.NoError(t, err)
	assert.Zero(t, sent)
}
