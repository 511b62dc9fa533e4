package billing

import (
	"context"
	"strings"

	"github.com/CroftlyHQ/Croftly/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventStore is the durable, idempotent ledger of verified webhook events.
// RecordIfNew is the sole deduplication mechanism for provider retries.
type EventStore interface {
	RecordIfNew(ctx context.Context, eventID, eventType, payloadHash string) (inserted bool, stored *models.BillingWebhookEvent, err error)
	MarkApplied(ctx context.Context, eventID string) error
	MarkFailed(ctx context.Context, eventID, reason string) error
}

type gormEventStore struct {
	db *gorm.DB
}

// NewEventStore creates an event ledger backed by GORM.
func NewEventStore(db *gorm.DB) EventStore {
	return &gormEventStore{db: db}
}

// RecordIfNew inserts the event unless its id already exists. The insert is
// a single conditional write (INSERT ... ON CONFLICT DO NOTHING against the
// unique event_id index), so two redeliveries racing each other yield
// exactly one insert. A read-then-write sequence would not.
func (s *gormEventStore) RecordIfNew(ctx context.Context, eventID, eventType, payloadHash string) (bool, *models.BillingWebhookEvent, error) {
	event := &models.BillingWebhookEvent{
		EventID:          strings.TrimSpace(eventID),
		EventType:        strings.TrimSpace(eventType),
		RawPayloadHash:   payloadHash,
		ProcessingStatus: models.WebhookStatusReceived,
	}

	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, transient("record webhook event", tx.Error)
	}

	inserted := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := s.db.WithContext(ctx).Where("event_id = ?", event.EventID).First(&stored).Error; err != nil {
		return false, nil, transient("load webhook event", err)
	}
	return inserted, &stored, nil
}

// MarkApplied transitions the event to applied. Safe to repeat.
func (s *gormEventStore) MarkApplied(ctx context.Context, eventID string) error {
	return s.mark(ctx, eventID, models.WebhookStatusApplied, "")
}

// MarkFailed transitions the event to failed with a reason. Safe to repeat.
func (s *gormEventStore) MarkFailed(ctx context.Context, eventID, reason string) error {
	return s.mark(ctx, eventID, models.WebhookStatusFailed, reason)
}

func (s *gormEventStore) mark(ctx context.Context, eventID, status, reason string) error {
	err := s.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"processing_status": status,
			"processing_error":  reason,
		}).Error
	if err != nil {
		return transient("mark webhook event "+status, err)
	}
	return nil
}
