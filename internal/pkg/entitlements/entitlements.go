package entitlements

import (
	"strings"
	"time"

	"github.com/CroftlyHQ/Croftly/app/models"
)

type Plan string

const (
	PlanFree   Plan = "free"
	PlanGrower Plan = "grower"
	PlanEstate Plan = "estate"
)

func NormalizePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanGrower):
		return PlanGrower
	case string(PlanEstate):
		return PlanEstate
	default:
		return PlanFree
	}
}

func PlanRank(plan Plan) int {
	switch NormalizePlan(string(plan)) {
	case PlanEstate:
		return 2
	case PlanGrower:
		return 1
	default:
		return 0
	}
}

// Features lists what a plan unlocks in the farm app.
type Features struct {
	AdviceRequestsPerMonth int
	MaxPlantingCalendars   int
	FinancialYearExports   bool
}

// AllowedFeatures returns the feature allowances for a given plan.
func AllowedFeatures(plan Plan) Features {
	switch NormalizePlan(string(plan)) {
	case PlanEstate:
		return Features{AdviceRequestsPerMonth: 200, MaxPlantingCalendars: 50, FinancialYearExports: true}
	case PlanGrower:
		return Features{AdviceRequestsPerMonth: 30, MaxPlantingCalendars: 10, FinancialYearExports: true}
	default:
		return Features{AdviceRequestsPerMonth: 3, MaxPlantingCalendars: 1, FinancialYearExports: false}
	}
}

// Entitled reports whether a subscription in the given state still grants
// its paid plan at now. Cancelled subscriptions stay entitled until the
// period they already paid for runs out.
func Entitled(state models.SubscriptionState, periodEnd *time.Time, now time.Time) bool {
	switch state {
	case models.SubscriptionStateTrialing, models.SubscriptionStateActive, models.SubscriptionStatePastDue:
		return true
	case models.SubscriptionStateCancelled:
		return periodEnd != nil && periodEnd.After(now)
	default:
		return false
	}
}

// Delta describes the entitlement change produced by one subscription
// transition. ValidUntil defers revocation to period end (cancellation);
// Revoke drops the tenant to free immediately.
type Delta struct {
	TenantID   string
	Plan       Plan
	ValidUntil *time.Time
	Revoke     bool
}
