package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/modules/audit"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/membership"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/shop"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/user"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/apperr"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/logging"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/notify"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrPlanNotFound         = apperr.New(apperr.NotFound, "PLAN_NOT_FOUND", "plan not found")
	ErrSubscriptionNotFound = apperr.New(apperr.NotFound, "SUBSCRIPTION_NOT_FOUND", "shop has no subscription")
	ErrAlreadySubscribed    = apperr.New(apperr.Conflict, "ALREADY_SUBSCRIBED", "shop already has a subscription")
	ErrSamePlan             = apperr.New(apperr.Invalid, "SAME_PLAN", "shop is already on this plan")
	ErrPlanTooSmall         = apperr.New(apperr.Conflict, "PLAN_TOO_SMALL", "plan allows fewer branches than the shop has")
	ErrInvalidTransition    = apperr.New(apperr.Invalid, "INVALID_TRANSITION", "subscription status transition not allowed")
	ErrInvalidTrial         = apperr.New(apperr.Invalid, "INVALID_TRIAL", "trial days must be between 0 and 90")
)

const maxTrialDays = 90

// Shops is the shop storage billing reads. shop.Repository satisfies it.
type Shops interface {
	GetShop(ctx context.Context, id uuid.UUID) (*shop.Shop, error)
	CountBranches(ctx context.Context, shopID uuid.UUID) (int, error)
}

// Users resolves reminder recipients.
type Users interface {
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Service defines billing business logic.
type Service interface {
	ListPlans(ctx context.Context) ([]Plan, error)

	Subscribe(ctx context.Context, actorID, shopID uuid.UUID, req SubscribeRequest) (*Subscription, error)
	GetSubscription(ctx context.Context, actorID, shopID uuid.UUID) (*Subscription, error)
	ChangePlan(ctx context.Context, actorID, shopID uuid.UUID, req ChangePlanRequest) (*Subscription, error)
	Cancel(ctx context.Context, actorID, shopID uuid.UUID, req CancelRequest) (*Subscription, error)

	// MaxBranches implements shop.BranchLimiter. Shops without a live
	// subscription get the FREE plan's limit.
	MaxBranches(ctx context.Context, shopID uuid.UUID) (int, error)

	// SweepExpired renews or expires every subscription whose period ended
	// before now.
	SweepExpired(ctx context.Context, now time.Time) (SweepResult, error)
	// RemindExpiring emails the owner of every subscription ending within
	// days of now, once per period. It returns the number of emails sent.
	RemindExpiring(ctx context.Context, now time.Time, days int) (int, error)
}

type service struct {
	repo     Repository
	members  membership.Resolver
	shops    Shops
	users    Users
	notifier notify.Notifier
	audit    audit.Logger
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewService(repo Repository, members membership.Resolver, shops Shops, users Users, notifier notify.Notifier, auditLog audit.Logger, log logrus.FieldLogger) Service {
	return &service{
		repo:     repo,
		members:  members,
		shops:    shops,
		users:    users,
		notifier: notifier,
		audit:    auditLog,
		log:      log.WithField("module", "billing"),
		now:      time.Now,
	}
}

func (s *service) ListPlans(ctx context.Context) ([]Plan, error) {
	return s.repo.ListPlans(ctx)
}

// ── Subscription ──────────────────────────────────────────────────────────────

func (s *service) Subscribe(ctx context.Context, actorID, shopID uuid.UUID, req SubscribeRequest) (*Subscription, error) {
	if err := s.members.RequireRole(ctx, shopID, actorID, membership.RoleOwner); err != nil {
		return nil, err
	}
	if req.TrialDays < 0 || req.TrialDays > maxTrialDays {
		return nil, ErrInvalidTrial
	}
	plan, err := s.repo.GetPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if err := s.checkFits(ctx, shopID, plan); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetSubscription(ctx, shopID)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status != SubCancelled && existing.Status != SubExpired {
		return nil, fmt.Errorf("%w (status %s)", ErrAlreadySubscribed, existing.Status)
	}

	cycle := CycleMonthly
	if strings.ToUpper(req.BillingCycle) == string(CycleAnnual) {
		cycle = CycleAnnual
	}
	now := s.now().UTC()
	sub := &Subscription{
		ID:                 uuid.New(),
		ShopID:             shopID,
		PlanID:             plan.ID,
		PlanName:           plan.Name,
		Status:             SubActive,
		BillingCycle:       cycle,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   cycle.next(now),
		AutoRenew:          req.AutoRenew == nil || *req.AutoRenew,
	}
	if req.TrialDays > 0 {
		trialEnd := now.AddDate(0, 0, req.TrialDays)
		sub.Status = SubTrial
		sub.TrialEndsAt = &trialEnd
		sub.CurrentPeriodEnd = trialEnd
	}

	if existing != nil {
		sub.ID = existing.ID
		err = s.repo.SaveSubscription(ctx, sub)
	} else {
		err = s.repo.CreateSubscription(ctx, sub)
	}
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"shop_id":  shopID,
		"plan":     plan.Name,
		"status":   sub.Status,
		"actor_id": actorID,
	}).Info("shop subscribed")
	s.record(ctx, actorID, sub, "SUBSCRIPTION_CREATE",
		fmt.Sprintf("Subscribed to %s (%s, %s per period)", plan.Name, cycle, plan.Price(cycle).StringFixed(2)))
	return sub, nil
}

func (s *service) GetSubscription(ctx context.Context, actorID, shopID uuid.UUID) (*Subscription, error) {
	if err := s.members.Authorize(ctx, shopID, nil, actorID, membership.PermShopView); err != nil {
		return nil, err
	}
	return s.repo.GetSubscription(ctx, shopID)
}

func (s *service) ChangePlan(ctx context.Context, actorID, shopID uuid.UUID, req ChangePlanRequest) (*Subscription, error) {
	if err := s.members.RequireRole(ctx, shopID, actorID, membership.RoleOwner); err != nil {
		return nil, err
	}
	sub, err := s.repo.GetSubscription(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if !sub.Status.Live() {
		return nil, fmt.Errorf("%w: cannot change plan on a %s subscription", ErrInvalidTransition, sub.Status)
	}
	if sub.PlanID == req.PlanID {
		return nil, ErrSamePlan
	}
	plan, err := s.repo.GetPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if err := s.checkFits(ctx, shopID, plan); err != nil {
		return nil, err
	}

	previous := sub.PlanName
	sub.PlanID, sub.PlanName = plan.ID, plan.Name
	if err := s.repo.SaveSubscription(ctx, sub); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, sub, "SUBSCRIPTION_PLAN", fmt.Sprintf("Plan changed from %s to %s", previous, plan.Name))
	return sub, nil
}

func (s *service) Cancel(ctx context.Context, actorID, shopID uuid.UUID, req CancelRequest) (*Subscription, error) {
	if err := s.members.RequireRole(ctx, shopID, actorID, membership.RoleOwner); err != nil {
		return nil, err
	}
	sub, err := s.repo.GetSubscription(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if !CanTransitionSub(sub.Status, SubCancelled) {
		return nil, fmt.Errorf("%w: cannot cancel a subscription in %s status", ErrInvalidTransition, sub.Status)
	}

	now := s.now().UTC()
	sub.Status = SubCancelled
	sub.CancelledAt = &now
	sub.CancelReason = strings.TrimSpace(req.Reason)
	sub.AutoRenew = false
	if err := s.repo.SaveSubscription(ctx, sub); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, sub, "SUBSCRIPTION_CANCEL", "Subscription cancelled: "+sub.CancelReason)
	return sub, nil
}

func (s *service) MaxBranches(ctx context.Context, shopID uuid.UUID) (int, error) {
	sub, err := s.repo.GetSubscription(ctx, shopID)
	switch {
	case err == nil && sub.Status.Live():
		plan, err := s.repo.GetPlan(ctx, sub.PlanID)
		if err != nil {
			return 0, err
		}
		return plan.MaxBranches, nil
	case err != nil && !errors.Is(err, ErrSubscriptionNotFound):
		return 0, err
	}
	free, err := s.repo.GetPlanByName(ctx, FreePlan)
	if errors.Is(err, ErrPlanNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return free.MaxBranches, nil
}

// checkFits rejects plans with fewer branch slots than the shop already uses.
func (s *service) checkFits(ctx context.Context, shopID uuid.UUID, plan *Plan) error {
	if plan.MaxBranches <= 0 {
		return nil
	}
	count, err := s.shops.CountBranches(ctx, shopID)
	if err != nil {
		return err
	}
	if count > plan.MaxBranches {
		return fmt.Errorf("%w: %s allows %d, shop has %d", ErrPlanTooSmall, plan.Name, plan.MaxBranches, count)
	}
	return nil
}

// ── Sweeps ────────────────────────────────────────────────────────────────────

func (s *service) SweepExpired(ctx context.Context, now time.Time) (SweepResult, error) {
	due, err := s.repo.ListDue(ctx, now)
	if err != nil {
		return SweepResult{}, err
	}
	var (
		res  SweepResult
		errs []error
	)
	for i := range due {
		sub := &due[i]
		action := "SUBSCRIPTION_EXPIRE"
		if sub.AutoRenew {
			renew(sub, now)
			action = "SUBSCRIPTION_RENEW"
		} else {
			sub.Status = SubExpired
		}
		if err := s.repo.SaveSubscription(ctx, sub); err != nil {
			s.log.WithError(err).WithField("shop_id", sub.ShopID).Error("subscription sweep failed")
			errs = append(errs, fmt.Errorf("shop %s: %w", sub.ShopID, err))
			continue
		}
		if sub.Status == SubExpired {
			res.Expired++
		} else {
			res.Renewed++
		}
		s.record(ctx, uuid.Nil, sub, action,
			fmt.Sprintf("%s subscription now %s until %s", sub.PlanName, sub.Status, sub.CurrentPeriodEnd.Format(time.DateOnly)))
	}
	s.log.WithFields(logrus.Fields{"expired": res.Expired, "renewed": res.Renewed}).Info("subscription sweep finished")
	return res, errors.Join(errs...)
}

// renew rolls the period forward until it covers now. A trial that renews
// becomes ACTIVE from the day the trial ended.
func renew(sub *Subscription, now time.Time) {
	sub.Status = SubActive
	for !sub.CurrentPeriodEnd.After(now) {
		sub.CurrentPeriodStart = sub.CurrentPeriodEnd
		sub.CurrentPeriodEnd = sub.BillingCycle.next(sub.CurrentPeriodStart)
	}
	sub.RemindedAt = nil
}

func (s *service) RemindExpiring(ctx context.Context, now time.Time, days int) (int, error) {
	ending, err := s.repo.ListEnding(ctx, now, now.AddDate(0, 0, days))
	if err != nil {
		return 0, err
	}
	var (
		sent int
		errs []error
	)
	for _, sub := range ending {
		if err := s.remind(ctx, sub); err != nil {
			s.log.WithError(err).WithField("shop_id", sub.ShopID).Warn("expiry reminder failed")
			errs = append(errs, fmt.Errorf("shop %s: %w", sub.ShopID, err))
			continue
		}
		if err := s.repo.MarkReminded(ctx, sub.ID, now); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

func (s *service) remind(ctx context.Context, sub Subscription) error {
	sh, err := s.shops.GetShop(ctx, sub.ShopID)
	if err != nil {
		return err
	}
	owner, err := s.users.GetUser(ctx, sh.OwnerID)
	if err != nil {
		return err
	}
	what := "will renew automatically"
	if !sub.AutoRenew {
		what = "will expire unless renewed"
	}
	return s.notifier.Send(ctx, notify.Message{
		To:      owner.Email,
		Subject: fmt.Sprintf("%s: your %s plan ends soon", sh.Name, sub.PlanName),
		Text: fmt.Sprintf("The %s subscription of %s ends on %s and %s.",
			sub.PlanName, sh.Name, sub.CurrentPeriodEnd.Format(time.DateOnly), what),
	})
}

func (s *service) record(ctx context.Context, actorID uuid.UUID, sub *Subscription, action, description string) {
	s.audit.Log(ctx, audit.Entry{
		ActorID:     actorID,
		ShopID:      sub.ShopID,
		TargetID:    sub.ID.String(),
		TargetType:  audit.TargetSubscription,
		Action:      action,
		Description: description,
	})
}
