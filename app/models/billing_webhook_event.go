package models

import "time"

const (
	WebhookStatusReceived = "received"
	WebhookStatusApplied  = "applied"
	WebhookStatusFailed   = "failed"
)

// BillingWebhookEvent is the durable ledger of every verified provider
// webhook, keyed by the provider-assigned event id for idempotent
// processing. Rows are never deleted; they serve as audit trail and replay
// guard.
type BillingWebhookEvent struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	EventID          string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_billing_webhook_events_event_id" json:"event_id"`
	EventType        string    `gorm:"type:varchar(100);not null;index" json:"event_type"`
	RawPayloadHash   string    `gorm:"type:varchar(64);not null" json:"raw_payload_hash"`
	ProcessingStatus string    `gorm:"type:varchar(20);not null;default:'received';index" json:"processing_status"`
	ProcessingError  string    `gorm:"type:text" json:"processing_error"`
	ReceivedAt       time.Time `gorm:"autoCreateTime;index" json:"received_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
