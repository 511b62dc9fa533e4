package entitlements

import (
	"testing"
	"time"

	"github.com/CroftlyHQ/Croftly/app/models"
)

func TestNormalizePlan(t *testing.T) {
	cases := []struct {
		in   string
		want Plan
	}{
		{"grower", PlanGrower},
		{" Grower ", PlanGrower},
		{"ESTATE", PlanEstate},
		{"free", PlanFree},
		{"", PlanFree},
		{"enterprise", PlanFree},
	}
	for _, tc := range cases {
		if got := NormalizePlan(tc.in); got != tc.want {
			t.Fatalf("NormalizePlan(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestPlanRankOrdering(t *testing.T) {
	if !(PlanRank(PlanFree) < PlanRank(PlanGrower) && PlanRank(PlanGrower) < PlanRank(PlanEstate)) {
		t.Fatalf("expected free < grower < estate, got %d %d %d",
			PlanRank(PlanFree), PlanRank(PlanGrower), PlanRank(PlanEstate))
	}
}

func TestAllowedFeatures(t *testing.T) {
	free := AllowedFeatures(PlanFree)
	if free.FinancialYearExports {
		t.Fatalf("free plan must not include financial year exports")
	}
	grower := AllowedFeatures(PlanGrower)
	estate := AllowedFeatures(PlanEstate)
	if !grower.FinancialYearExports || !estate.FinancialYearExports {
		t.Fatalf("paid plans must include financial year exports")
	}
	if !(free.AdviceRequestsPerMonth < grower.AdviceRequestsPerMonth &&
		grower.AdviceRequestsPerMonth < estate.AdviceRequestsPerMonth) {
		t.Fatalf("advice allowances must grow with the plan tier")
	}
	if !(free.MaxPlantingCalendars < grower.MaxPlantingCalendars &&
		grower.MaxPlantingCalendars < estate.MaxPlantingCalendars) {
		t.Fatalf("planting calendar allowances must grow with the plan tier")
	}
}

func TestEntitled(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 1, 0)
	past := now.AddDate(0, -1, 0)

	cases := []struct {
		name      string
		state     models.SubscriptionState
		periodEnd *time.Time
		want      bool
	}{
		{"trialing", models.SubscriptionStateTrialing, nil, true},
		{"active", models.SubscriptionStateActive, &future, true},
		{"past_due keeps entitlement during grace", models.SubscriptionStatePastDue, &future, true},
		{"cancelled with paid-through time", models.SubscriptionStateCancelled, &future, true},
		{"cancelled past period end", models.SubscriptionStateCancelled, &past, false},
		{"cancelled without period end", models.SubscriptionStateCancelled, nil, false},
		{"expired", models.SubscriptionStateExpired, &future, false},
	}
	for _, tc := range cases {
		if got := Entitled(tc.state, tc.periodEnd, now); got != tc.want {
			t.Fatalf("%s: Entitled = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCacheKey(t *testing.T) {
	if got := CacheKey("tn_1"); got != "entitlement:tenant:tn_1" {
		t.Fatalf("unexpected cache key %q", got)
	}
}
