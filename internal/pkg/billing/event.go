package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// EventType is the closed set of provider event types this system handles.
// Anything else is recorded as failed with an "unhandled event type"
// reason, never silently dropped.
type EventType string

const (
	EventSubscriptionCreated   EventType = "subscription.created"
	EventSubscriptionRenewed   EventType = "subscription.renewed"
	EventSubscriptionFailed    EventType = "subscription.failed"
	EventSubscriptionCancelled EventType = "subscription.cancelled"
	EventChargeSucceeded       EventType = "charge.success"
	EventChargeFailed          EventType = "charge.failed"
)

// Event is the normalized form of one provider webhook delivery.
// OccurredAt is the provider-supplied event timestamp and is the ordering
// key for out-of-order redeliveries; arrival order means nothing.
type Event struct {
	ID          string
	Type        EventType
	TenantID    string
	Plan        string
	Trial       bool
	OccurredAt  time.Time
	PeriodEnd   *time.Time
	PayloadHash string
}

// webhookEnvelope is the provider wire format. Timestamps are unix seconds.
type webhookEnvelope struct {
	ID      string `json:"id" validate:"required,max=191"`
	Type    string `json:"type" validate:"required,max=100"`
	Created int64  `json:"created" validate:"required,gt=0"`
	Data    struct {
		TenantID         string `json:"tenant_id" validate:"required,max=64"`
		Plan             string `json:"plan" validate:"max=50"`
		Trial            bool   `json:"trial"`
		CurrentPeriodEnd int64  `json:"current_period_end"`
	} `json:"data"`
}

// HashPayload returns the hex SHA-256 of the raw body, stored for audit and
// replay detection.
func HashPayload(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// ParseEvent decodes and validates a verified raw webhook body. The
// signature check runs on the raw bytes before this is called; unverified
// payloads are never decoded.
func ParseEvent(raw []byte) (*Event, error) {
	var envl webhookEnvelope
	if err := json.Unmarshal(raw, &envl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := validator.New().Struct(&envl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	ev := &Event{
		ID:          strings.TrimSpace(envl.ID),
		Type:        EventType(strings.ToLower(strings.TrimSpace(envl.Type))),
		TenantID:    strings.TrimSpace(envl.Data.TenantID),
		Plan:        strings.TrimSpace(envl.Data.Plan),
		Trial:       envl.Data.Trial,
		OccurredAt:  time.Unix(envl.Created, 0).UTC(),
		PayloadHash: HashPayload(raw),
	}
	if envl.Data.CurrentPeriodEnd > 0 {
		t := time.Unix(envl.Data.CurrentPeriodEnd, 0).UTC()
		ev.PeriodEnd = &t
	}
	return ev, nil
}
