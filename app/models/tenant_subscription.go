package models

import "time"

// SubscriptionState is the closed set of billing states a tenant can be in.
// Transitions happen exclusively through the billing state machine; nothing
// else writes State or the LastAppliedEvent columns.
type SubscriptionState string

const (
	SubscriptionStateTrialing  SubscriptionState = "trialing"
	SubscriptionStateActive    SubscriptionState = "active"
	SubscriptionStatePastDue   SubscriptionState = "past_due"
	SubscriptionStateCancelled SubscriptionState = "cancelled"
	SubscriptionStateExpired   SubscriptionState = "expired"
)

// Valid reports whether s is one of the known subscription states.
func (s SubscriptionState) Valid() bool {
	switch s {
	case SubscriptionStateTrialing, SubscriptionStateActive, SubscriptionStatePastDue,
		SubscriptionStateCancelled, SubscriptionStateExpired:
		return true
	default:
		return false
	}
}

// Terminated reports whether the subscription reached a terminal state.
func (s SubscriptionState) Terminated() bool {
	return s == SubscriptionStateCancelled || s == SubscriptionStateExpired
}

// TenantSubscription mirrors the payment provider's subscription for one
// tenant and maps it to an internal plan used by entitlements.
//
// LastAppliedEventID/LastAppliedEventAt record which provider event this row
// reflects. They double as the optimistic-concurrency guard: a commit only
// succeeds while the stored LastAppliedEventID still matches the one the
// commit was computed against, and older events are rejected as stale.
type TenantSubscription struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	TenantID           string            `gorm:"type:varchar(64);not null;uniqueIndex:ux_tenant_subscriptions_tenant" json:"tenant_id"`
	PlanTier           string            `gorm:"type:varchar(50);not null;default:'free';index" json:"plan_tier"`
	State              SubscriptionState `gorm:"type:varchar(32);not null;default:'trialing';index" json:"state"`
	CurrentPeriodEnd   *time.Time        `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	PastDueSince       *time.Time        `gorm:"type:timestamp;default:null" json:"past_due_since,omitempty"`
	LastAppliedEventID string            `gorm:"type:varchar(191);not null;default:''" json:"last_applied_event_id"`
	LastAppliedEventAt time.Time         `gorm:"type:timestamp;not null" json:"last_applied_event_at"`
	CreatedAt          time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
