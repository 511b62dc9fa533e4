package billing

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/CroftlyHQ/Croftly/internal/pkg/env"
)

const (
	DefaultSignatureHeader = "X-Billing-Signature"
	DefaultGracePeriodDays = 14
)

// Config carries the webhook processing settings. It is built once from the
// environment and passed explicitly into the verifier and state machine so
// tests can run multiple simulated providers/secrets side by side.
type Config struct {
	SharedSecret    string
	SignatureHeader string

	// GracePeriodDays bounds how long a subscription may sit in past_due
	// before repeated charge failures expire it. PlanGraceDays overrides
	// the default per plan tier.
	GracePeriodDays int
	PlanGraceDays   map[string]int

	// AllowedEventTypes restricts which provider event types are processed.
	// Empty means the built-in set.
	AllowedEventTypes map[string]struct{}
}

// ConfigFromEnv loads the webhook configuration. The shared secret is
// required; everything else has defaults.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		SharedSecret:    strings.TrimSpace(env.GetEnv("BILLING_WEBHOOK_SECRET", "")),
		SignatureHeader: strings.TrimSpace(env.GetEnv("BILLING_SIGNATURE_HEADER", DefaultSignatureHeader)),
		GracePeriodDays: DefaultGracePeriodDays,
	}
	if cfg.SharedSecret == "" {
		return cfg, errors.New("BILLING_WEBHOOK_SECRET is not configured")
	}

	if raw := strings.TrimSpace(env.GetEnv("BILLING_GRACE_PERIOD_DAYS", "")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return cfg, errors.New("BILLING_GRACE_PERIOD_DAYS must be a non-negative integer")
		}
		cfg.GracePeriodDays = days
	}

	// Per-plan overrides, e.g. "grower=21,estate=30".
	if raw := strings.TrimSpace(env.GetEnv("BILLING_GRACE_PERIOD_OVERRIDES", "")); raw != "" {
		cfg.PlanGraceDays = make(map[string]int)
		for _, pair := range strings.Split(raw, ",") {
			k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				continue
			}
			days, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || days < 0 {
				continue
			}
			cfg.PlanGraceDays[strings.ToLower(strings.TrimSpace(k))] = days
		}
	}

	if raw := strings.TrimSpace(env.GetEnv("BILLING_ALLOWED_EVENT_TYPES", "")); raw != "" {
		cfg.AllowedEventTypes = make(map[string]struct{})
		for _, t := range strings.Split(raw, ",") {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				cfg.AllowedEventTypes[t] = struct{}{}
			}
		}
	}

	return cfg, nil
}

// EventTypeAllowed reports whether the configured allowlist accepts t.
func (c Config) EventTypeAllowed(t EventType) bool {
	if len(c.AllowedEventTypes) == 0 {
		return true
	}
	_, ok := c.AllowedEventTypes[string(t)]
	return ok
}

// GracePeriod returns the past-due grace window for a plan tier.
func (c Config) GracePeriod(planTier string) time.Duration {
	days := c.GracePeriodDays
	if override, ok := c.PlanGraceDays[strings.ToLower(strings.TrimSpace(planTier))]; ok {
		days = override
	}
	return time.Duration(days) * 24 * time.Hour
}
