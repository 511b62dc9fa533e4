package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CroftlyHQ/Croftly/app/models"
	"github.com/CroftlyHQ/Croftly/internal/pkg/entitlements"
)

type fakeCache struct {
	deltas []entitlements.Delta
	err    error
}

func (c *fakeCache) Apply(ctx context.Context, d entitlements.Delta) error {
	c.deltas = append(c.deltas, d)
	return c.err
}

type fakeNotifier struct {
	tenants []string
}

func (n *fakeNotifier) PastDueNotice(ctx context.Context, tenantID string) {
	n.tenants = append(n.tenants, tenantID)
}

func TestEntitlementSyncCommitCreate(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubscriptionRepository(db)
	cache := &fakeCache{}
	sync := NewEntitlementSync(repo, cache, nil)
	ctx := context.Background()

	end := testBase.AddDate(0, 1, 0)
	ev := testEvent("evt_1", EventSubscriptionCreated, testBase)
	ev.Plan = "grower"
	ev.PeriodEnd = &end
	tr, err := Apply(nil, ev, testConfig())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if err := sync.Commit(ctx, tr, ""); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	sub, err := repo.GetByTenantID(ctx, "tn_1")
	if err != nil {
		t.Fatalf("GetByTenantID: %v", err)
	}
	if sub.State != models.SubscriptionStateActive || sub.LastAppliedEventID != "evt_1" {
		t.Fatalf("expected committed active subscription at evt_1, got %s %s", sub.State, sub.LastAppliedEventID)
	}
	if len(cache.deltas) != 1 || cache.deltas[0].Plan != entitlements.PlanGrower {
		t.Fatalf("expected one grower grant delta, got %+v", cache.deltas)
	}
}

func TestEntitlementSyncGuardedUpdate(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubscriptionRepository(db)
	sync := NewEntitlementSync(repo, &fakeCache{}, nil)
	ctx := context.Background()

	seed := &models.TenantSubscription{
		TenantID:           "tn_1",
		PlanTier:           string(entitlements.PlanGrower),
		State:              models.SubscriptionStateActive,
		LastAppliedEventID: "evt_1",
		LastAppliedEventAt: testBase,
	}
	if err := repo.Create(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	current, err := repo.GetByTenantID(ctx, "tn_1")
	if err != nil {
		t.Fatalf("GetByTenantID: %v", err)
	}
	tr, err := Apply(current, testEvent("evt_2", EventChargeFailed, testBase.Add(time.Hour)), testConfig())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if err := sync.Commit(ctx, tr, "evt_1"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	sub, _ := repo.GetByTenantID(ctx, "tn_1")
	if sub.State != models.SubscriptionStatePastDue || sub.LastAppliedEventID != "evt_2" {
		t.Fatalf("expected past_due at evt_2, got %s %s", sub.State, sub.LastAppliedEventID)
	}

	// The same commit again was computed against evt_1; the guard must reject
	// it now that evt_2 landed.
	if err := sync.Commit(ctx, tr, "evt_1"); !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}
}

func TestEntitlementSyncCreateRace(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubscriptionRepository(db)
	sync := NewEntitlementSync(repo, &fakeCache{}, nil)
	ctx := context.Background()

	ev := testEvent("evt_1", EventSubscriptionCreated, testBase)
	ev.Plan = "free"
	tr, err := Apply(nil, ev, testConfig())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if err := sync.Commit(ctx, tr, ""); err != nil {
		t.Fatalf("first Commit: %v", err)
	}
	// A racing first event computed against no row must lose, not duplicate.
	tr2, err := Apply(nil, testEvent("evt_2", EventSubscriptionCreated, testBase.Add(time.Minute)), testConfig())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := sync.Commit(ctx, tr2, ""); !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate on duplicate create, got %v", err)
	}
}

func TestEntitlementSyncCacheFailureDoesNotRollBack(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubscriptionRepository(db)
	cache := &fakeCache{err: errors.New("redis unavailable")}
	sync := NewEntitlementSync(repo, cache, nil)
	ctx := context.Background()

	ev := testEvent("evt_1", EventSubscriptionCreated, testBase)
	ev.Plan = "grower"
	tr, err := Apply(nil, ev, testConfig())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// The subscription table is the source of truth; a cache push failure is
	// logged and the commit still succeeds.
	if err := sync.Commit(ctx, tr, ""); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := repo.GetByTenantID(ctx, "tn_1"); err != nil {
		t.Fatalf("expected subscription row despite cache failure: %v", err)
	}
}

func TestEntitlementSyncPastDueNotification(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubscriptionRepository(db)
	notifier := &fakeNotifier{}
	sync := NewEntitlementSync(repo, &fakeCache{}, notifier)
	ctx := context.Background()

	seed := &models.TenantSubscription{
		TenantID:           "tn_1",
		PlanTier:           string(entitlements.PlanGrower),
		State:              models.SubscriptionStateActive,
		LastAppliedEventID: "evt_1",
		LastAppliedEventAt: testBase,
	}
	if err := repo.Create(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	current, _ := repo.GetByTenantID(ctx, "tn_1")
	tr, err := Apply(current, testEvent("evt_2", EventChargeFailed, testBase.Add(time.Hour)), testConfig())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := sync.Commit(ctx, tr, "evt_1"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(notifier.tenants) != 1 || notifier.tenants[0] != "tn_1" {
		t.Fatalf("expected one past-due notice for tn_1, got %v", notifier.tenants)
	}
}
