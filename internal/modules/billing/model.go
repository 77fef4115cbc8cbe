package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionStatus represents the lifecycle state of a shop subscription.
type SubscriptionStatus string

const (
	SubTrial     SubscriptionStatus = "TRIAL"
	SubActive    SubscriptionStatus = "ACTIVE"
	SubPastDue   SubscriptionStatus = "PAST_DUE"
	SubSuspended SubscriptionStatus = "SUSPENDED"
	SubCancelled SubscriptionStatus = "CANCELLED"
	SubExpired   SubscriptionStatus = "EXPIRED"
)

// validSubTransitions defines allowed subscription state machine transitions.
var validSubTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubTrial:     {SubActive, SubCancelled, SubExpired},
	SubActive:    {SubPastDue, SubCancelled, SubExpired},
	SubPastDue:   {SubActive, SubSuspended, SubCancelled, SubExpired},
	SubSuspended: {SubActive, SubCancelled},
	SubCancelled: {},
	SubExpired:   {},
}

// CanTransitionSub returns true if the subscription transition is valid.
func CanTransitionSub(current, next SubscriptionStatus) bool {
	for _, s := range validSubTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// Live reports whether the subscription still grants its plan's limits.
func (s SubscriptionStatus) Live() bool {
	return s == SubTrial || s == SubActive || s == SubPastDue
}

// BillingCycle represents how often a shop is billed.
type BillingCycle string

const (
	CycleMonthly BillingCycle = "MONTHLY"
	CycleAnnual  BillingCycle = "ANNUAL"
)

// next returns the end of a period of this cycle starting at start.
func (c BillingCycle) next(start time.Time) time.Time {
	if c == CycleAnnual {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

// FreePlan names the plan whose limits apply to shops without a live
// subscription.
const FreePlan = "FREE"

// Plan is a subscription tier.
type Plan struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	MaxBranches  int             `json:"max_branches"`
	CreatedAt    time.Time       `json:"created_at"`
}

var annualFactor = decimal.RequireFromString("10.8") // 12 months less 10%

// Price returns what one period of cycle costs on this plan.
func (p Plan) Price(cycle BillingCycle) decimal.Decimal {
	if cycle == CycleAnnual {
		return p.MonthlyPrice.Mul(annualFactor).Round(2)
	}
	return p.MonthlyPrice.Round(2)
}

// Subscription binds a shop to a plan for the current period.
type Subscription struct {
	ID                 uuid.UUID          `json:"id"`
	ShopID             uuid.UUID          `json:"shop_id"`
	PlanID             uuid.UUID          `json:"plan_id"`
	PlanName           string             `json:"plan_name,omitempty"`
	Status             SubscriptionStatus `json:"status"`
	BillingCycle       BillingCycle       `json:"billing_cycle"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	TrialEndsAt        *time.Time         `json:"trial_ends_at,omitempty"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason       string             `json:"cancel_reason,omitempty"`
	AutoRenew          bool               `json:"auto_renew"`
	RemindedAt         *time.Time         `json:"-"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// SubscribeRequest is the payload for subscribing a shop to a plan.
type SubscribeRequest struct {
	PlanID       uuid.UUID `json:"plan_id"`
	BillingCycle string    `json:"billing_cycle,omitempty"` // defaults to MONTHLY
	TrialDays    int       `json:"trial_days,omitempty"`    // 0 = no trial, start ACTIVE
	AutoRenew    *bool     `json:"auto_renew,omitempty"`    // defaults to true
}

// ChangePlanRequest is the payload for upgrading or downgrading.
type ChangePlanRequest struct {
	PlanID uuid.UUID `json:"plan_id"`
}

// CancelRequest is the payload for cancelling a subscription.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// SweepResult counts what an expiry sweep did.
type SweepResult struct {
	Expired int `json:"expired"`
	Renewed int `json:"renewed"`
}
