package billing

import (
	"fmt"

	"github.com/CroftlyHQ/Croftly/app/models"
	"github.com/CroftlyHQ/Croftly/internal/pkg/entitlements"
)

// Transition is the outcome of applying one provider event to a tenant's
// subscription. When NoOp is set nothing must be committed; Reason says why
// (stale ordering, terminated subscription, duplicate create).
type Transition struct {
	Next           models.TenantSubscription
	Delta          *entitlements.Delta
	NoOp           bool
	Reason         string
	EnteredPastDue bool
}

// Apply is the pure subscription transition function. current is nil when
// the tenant has no subscription row yet. It never touches storage; the
// caller owns reads, the entitlement sync owns writes.
//
// Events are ordered by the provider timestamp, not arrival order: an event
// at or before the already-applied watermark is a no-op even if its id was
// never seen, so delayed redeliveries cannot roll newer state back.
func Apply(current *models.TenantSubscription, ev *Event, cfg Config) (*Transition, error) {
	if ev == nil || ev.ID == "" || ev.TenantID == "" {
		return nil, ErrMalformedPayload
	}

	if current != nil && !ev.OccurredAt.After(current.LastAppliedEventAt) {
		return noop(current, fmt.Sprintf("stale event ordering: %s at %s precedes applied event %s at %s",
			ev.ID, ev.OccurredAt.Format("2006-01-02T15:04:05Z"),
			current.LastAppliedEventID, current.LastAppliedEventAt.UTC().Format("2006-01-02T15:04:05Z"))), nil
	}

	switch ev.Type {
	case EventSubscriptionCreated:
		return applyCreated(current, ev)
	case EventChargeSucceeded, EventSubscriptionRenewed:
		return applyChargeSucceeded(current, ev)
	case EventChargeFailed, EventSubscriptionFailed:
		return applyChargeFailed(current, ev, cfg)
	case EventSubscriptionCancelled:
		return applyCancelled(current, ev)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnhandledEventType, ev.Type)
	}
}

func applyCreated(current *models.TenantSubscription, ev *Event) (*Transition, error) {
	if current != nil && !current.State.Terminated() {
		return noop(current, "subscription already exists"), nil
	}

	next := models.TenantSubscription{TenantID: ev.TenantID}
	if current != nil {
		// Re-subscription after cancel/expiry reuses the row.
		next = *current
	}

	plan := entitlements.NormalizePlan(ev.Plan)
	next.PlanTier = string(plan)
	if ev.Trial {
		next.State = models.SubscriptionStateTrialing
	} else {
		next.State = models.SubscriptionStateActive
	}
	next.CurrentPeriodEnd = ev.PeriodEnd
	next.PastDueSince = nil
	stamp(&next, ev)

	return &Transition{
		Next:  next,
		Delta: &entitlements.Delta{TenantID: ev.TenantID, Plan: plan, ValidUntil: ev.PeriodEnd},
	}, nil
}

func applyChargeSucceeded(current *models.TenantSubscription, ev *Event) (*Transition, error) {
	if current == nil {
		return nil, ErrNoSubscription
	}

	switch current.State {
	case models.SubscriptionStateTrialing, models.SubscriptionStateActive, models.SubscriptionStatePastDue:
		next := *current
		next.State = models.SubscriptionStateActive
		next.PastDueSince = nil
		if ev.Plan != "" {
			next.PlanTier = string(entitlements.NormalizePlan(ev.Plan))
		}
		if ev.PeriodEnd != nil {
			next.CurrentPeriodEnd = ev.PeriodEnd
		}
		stamp(&next, ev)
		return &Transition{
			Next:  next,
			Delta: &entitlements.Delta{TenantID: ev.TenantID, Plan: entitlements.Plan(next.PlanTier), ValidUntil: next.CurrentPeriodEnd},
		}, nil
	case models.SubscriptionStateCancelled, models.SubscriptionStateExpired:
		return noop(current, "charge event on terminated subscription"), nil
	default:
		return nil, fmt.Errorf("%w: charge on state %q", ErrMalformedPayload, current.State)
	}
}

func applyChargeFailed(current *models.TenantSubscription, ev *Event, cfg Config) (*Transition, error) {
	if current == nil {
		return nil, ErrNoSubscription
	}

	switch current.State {
	case models.SubscriptionStateTrialing, models.SubscriptionStateActive:
		next := *current
		next.State = models.SubscriptionStatePastDue
		since := ev.OccurredAt
		next.PastDueSince = &since
		stamp(&next, ev)
		// Entitlement is kept during the grace period.
		return &Transition{Next: next, EnteredPastDue: true}, nil
	case models.SubscriptionStatePastDue:
		since := current.LastAppliedEventAt
		if current.PastDueSince != nil {
			since = *current.PastDueSince
		}
		next := *current
		stamp(&next, ev)
		if ev.OccurredAt.Sub(since) > cfg.GracePeriod(current.PlanTier) {
			next.State = models.SubscriptionStateExpired
			return &Transition{
				Next:  next,
				Delta: &entitlements.Delta{TenantID: ev.TenantID, Revoke: true},
			}, nil
		}
		// Still inside the grace window; the failure advances the
		// watermark but changes nothing else.
		return &Transition{Next: next}, nil
	case models.SubscriptionStateCancelled, models.SubscriptionStateExpired:
		return noop(current, "charge event on terminated subscription"), nil
	default:
		return nil, fmt.Errorf("%w: charge on state %q", ErrMalformedPayload, current.State)
	}
}

func applyCancelled(current *models.TenantSubscription, ev *Event) (*Transition, error) {
	if current == nil {
		return nil, ErrNoSubscription
	}

	switch current.State {
	case models.SubscriptionStateTrialing, models.SubscriptionStateActive:
		next := *current
		next.State = models.SubscriptionStateCancelled
		stamp(&next, ev)
		delta := &entitlements.Delta{TenantID: ev.TenantID}
		if next.CurrentPeriodEnd != nil && next.CurrentPeriodEnd.After(ev.OccurredAt) {
			// Paid-through time stays entitled until the period ends.
			delta.Plan = entitlements.Plan(next.PlanTier)
			delta.ValidUntil = next.CurrentPeriodEnd
		} else {
			delta.Revoke = true
		}
		return &Transition{Next: next, Delta: delta}, nil
	case models.SubscriptionStatePastDue:
		next := *current
		next.State = models.SubscriptionStateExpired
		stamp(&next, ev)
		return &Transition{
			Next:  next,
			Delta: &entitlements.Delta{TenantID: ev.TenantID, Revoke: true},
		}, nil
	case models.SubscriptionStateCancelled, models.SubscriptionStateExpired:
		return noop(current, "subscription already terminated"), nil
	default:
		return nil, fmt.Errorf("%w: cancel on state %q", ErrMalformedPayload, current.State)
	}
}

func stamp(next *models.TenantSubscription, ev *Event) {
	next.LastAppliedEventID = ev.ID
	next.LastAppliedEventAt = ev.OccurredAt
}

func noop(current *models.TenantSubscription, reason string) *Transition {
	return &Transition{Next: *current, NoOp: true, Reason: reason}
}
