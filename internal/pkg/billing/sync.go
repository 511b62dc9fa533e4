package billing

import (
	"context"

	"github.com/CroftlyHQ/Croftly/internal/pkg/entitlements"
	"github.com/gofiber/fiber/v2/log"
)

// Notifier delivers fire-and-forget billing notifications. Failures are
// logged by implementations and never block webhook acknowledgement.
type Notifier interface {
	PastDueNotice(ctx context.Context, tenantID string)
}

// EntitlementSync is the only writer of tenant_subscriptions. It applies a
// state-machine transition to the authoritative row and then propagates the
// entitlement delta downstream.
type EntitlementSync struct {
	repo     SubscriptionRepository
	cache    entitlements.Cache
	notifier Notifier
}

// NewEntitlementSync wires the sync from its collaborators. cache and
// notifier may be nil (tests, degraded mode).
func NewEntitlementSync(repo SubscriptionRepository, cache entitlements.Cache, notifier Notifier) *EntitlementSync {
	return &EntitlementSync{repo: repo, cache: cache, notifier: notifier}
}

// Commit writes the transition's next state guarded by the
// last_applied_event_id the transition was computed against, then pushes
// the entitlement delta to the access-control cache. The subscription table
// is the source of truth: a failed cache push is logged, not rolled back,
// and the whole call is safe to retry because the guard makes re-applying
// the same next state a no-op conflict.
func (s *EntitlementSync) Commit(ctx context.Context, tr *Transition, expectedLastEventID string) error {
	if tr == nil || tr.NoOp {
		return nil
	}

	sub := tr.Next
	var err error
	if sub.ID == 0 {
		err = s.repo.Create(ctx, &sub)
	} else {
		err = s.repo.UpdateGuarded(ctx, &sub, expectedLastEventID)
	}
	if err != nil {
		return err
	}

	if tr.Delta != nil && s.cache != nil {
		if cacheErr := s.cache.Apply(ctx, *tr.Delta); cacheErr != nil {
			log.Errorf("[Billing] entitlement cache propagation failed for tenant %s: %v", sub.TenantID, cacheErr)
		}
	}

	if tr.EnteredPastDue && s.notifier != nil {
		s.notifier.PastDueNotice(ctx, sub.TenantID)
	}
	return nil
}
