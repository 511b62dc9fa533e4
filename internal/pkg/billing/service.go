package billing

import (
	"context"
	"errors"

	"github.com/CroftlyHQ/Croftly/app/models"
	"github.com/CroftlyHQ/Croftly/internal/pkg/entitlements"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outcome classifies how a webhook delivery was resolved.
type Outcome string

const (
	// OutcomeApplied means a state transition was committed.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate means the event id was already in the ledger.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored means the event was recorded but not applied: stale
	// ordering, unhandled type, or malformed business data. Redelivery
	// cannot fix any of these, so the provider still gets an ack.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeRejected means signature verification failed. Nothing was
	// stored.
	OutcomeRejected Outcome = "rejected"
)

// Result is what the HTTP layer turns into a response. Transient storage
// failures come back as an error instead, so the provider retries.
type Result struct {
	Outcome Outcome
	EventID string
	Reason  string
}

// Service drives one webhook delivery through verify, dedup, apply and
// commit. It holds no mutable state; concurrent deliveries only meet at the
// ledger's conditional insert and the sync's optimistic guard.
type Service struct {
	cfg   Config
	store EventStore
	repo  SubscriptionRepository
	sync  *EntitlementSync
}

// NewService creates a webhook service from injected collaborators.
func NewService(cfg Config, store EventStore, repo SubscriptionRepository, sync *EntitlementSync) *Service {
	return &Service{cfg: cfg, store: store, repo: repo, sync: sync}
}

// NewServiceFromDB creates a fully wired webhook service from a GORM handle
// and an entitlement cache.
func NewServiceFromDB(db *gorm.DB, cfg Config, cache entitlements.Cache) *Service {
	repo := NewSubscriptionRepository(db)
	return NewService(cfg, NewEventStore(db), repo, NewEntitlementSync(repo, cache, NewMailNotifier(repo)))
}

// ProcessWebhook handles one raw delivery. The body must be the exact bytes
// from the wire; re-serialization would break signature verification.
func (s *Service) ProcessWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (Result, error) {
	dispatchID := uuid.NewString()

	// Forged requests leave no trace in the ledger.
	if !VerifyWebhookSignature(rawBody, signatureHeader, s.cfg.SharedSecret) {
		log.Warnf("[Billing] dispatch %s rejected: signature verification failed", dispatchID)
		return Result{Outcome: OutcomeRejected}, nil
	}

	payloadHash := HashPayload(rawBody)
	ev, parseErr := ParseEvent(rawBody)
	if parseErr != nil {
		// The provider event id is unreadable, so the ledger keys the
		// delivery by content hash. Redeliveries of the same broken
		// payload still short-circuit.
		eventID := "hash:" + payloadHash
		inserted, stored, err := s.store.RecordIfNew(ctx, eventID, "unknown", payloadHash)
		if err != nil {
			return Result{}, err
		}
		if !inserted && stored.ProcessingStatus != models.WebhookStatusReceived {
			return Result{Outcome: OutcomeDuplicate, EventID: eventID}, nil
		}
		return s.failEvent(ctx, dispatchID, eventID, parseErr.Error())
	}

	// Deduplicating: one atomic conditional insert. A storage failure here
	// must not fall through to Processing, since we could not know whether
	// the event was already applied once.
	inserted, stored, err := s.store.RecordIfNew(ctx, ev.ID, string(ev.Type), payloadHash)
	if err != nil {
		return Result{}, err
	}
	if !inserted {
		if stored.RawPayloadHash != payloadHash {
			// Same id, different content: provider anomaly worth an
			// operator's attention. The stored event wins.
			log.Errorf("[Billing] dispatch %s event %s redelivered with differing payload hash (stored=%s got=%s)",
				dispatchID, ev.ID, stored.RawPayloadHash, payloadHash)
		}
		if stored.ProcessingStatus != models.WebhookStatusReceived {
			return Result{Outcome: OutcomeDuplicate, EventID: ev.ID}, nil
		}
		// Recorded but never resolved: an earlier attempt died before the
		// commit. The redelivery gets a fresh processing pass; the guarded
		// commit keeps a concurrent in-flight attempt safe.
		log.Infof("[Billing] dispatch %s event %s redelivered while unresolved, reprocessing", dispatchID, ev.ID)
	}

	if !s.cfg.EventTypeAllowed(ev.Type) {
		return s.failEvent(ctx, dispatchID, ev.ID, "event type not allowed: "+string(ev.Type))
	}

	return s.processEvent(ctx, dispatchID, ev)
}

// processEvent runs the state machine and commits the result, retrying once
// with refreshed state when two events for the same tenant race each other.
func (s *Service) processEvent(ctx context.Context, dispatchID string, ev *Event) (Result, error) {
	for attempt := 0; ; attempt++ {
		current, err := s.currentSubscription(ctx, ev.TenantID)
		if err != nil {
			return Result{}, err
		}

		tr, applyErr := Apply(current, ev, s.cfg)
		if applyErr != nil {
			if errors.Is(applyErr, ErrUnhandledEventType) ||
				errors.Is(applyErr, ErrMalformedPayload) ||
				errors.Is(applyErr, ErrNoSubscription) {
				return s.failEvent(ctx, dispatchID, ev.ID, applyErr.Error())
			}
			return Result{}, applyErr
		}
		if tr.NoOp {
			if current != nil && current.LastAppliedEventID == ev.ID {
				// A concurrent or earlier attempt already committed this
				// exact event; the ledger just never recorded it.
				if markErr := s.store.MarkApplied(ctx, ev.ID); markErr != nil {
					return Result{}, markErr
				}
				return Result{Outcome: OutcomeDuplicate, EventID: ev.ID}, nil
			}
			return s.failEvent(ctx, dispatchID, ev.ID, tr.Reason)
		}

		expected := ""
		if current != nil {
			expected = current.LastAppliedEventID
		}

		commitErr := s.sync.Commit(ctx, tr, expected)
		if commitErr == nil {
			if markErr := s.store.MarkApplied(ctx, ev.ID); markErr != nil {
				// The authoritative write landed; a redelivery would be
				// duplicate-acked, so the ledger status is telemetry here.
				log.Errorf("[Billing] dispatch %s event %s applied but ledger update failed: %v", dispatchID, ev.ID, markErr)
			}
			log.Infof("[Billing] dispatch %s event %s (%s) applied for tenant %s: state=%s plan=%s",
				dispatchID, ev.ID, ev.Type, ev.TenantID, tr.Next.State, tr.Next.PlanTier)
			return Result{Outcome: OutcomeApplied, EventID: ev.ID}, nil
		}
		if errors.Is(commitErr, ErrConcurrentUpdate) {
			if attempt == 0 {
				log.Warnf("[Billing] dispatch %s event %s hit a concurrent update, retrying with refreshed state", dispatchID, ev.ID)
				continue
			}
			return Result{}, transient("commit subscription", commitErr)
		}
		return Result{}, commitErr
	}
}

func (s *Service) currentSubscription(ctx context.Context, tenantID string) (*models.TenantSubscription, error) {
	sub, err := s.repo.GetByTenantID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

// failEvent marks the ledger entry failed and acknowledges. Only a storage
// failure while marking escalates to a retriable error.
func (s *Service) failEvent(ctx context.Context, dispatchID, eventID, reason string) (Result, error) {
	if err := s.store.MarkFailed(ctx, eventID, reason); err != nil {
		return Result{}, err
	}
	log.Warnf("[Billing] dispatch %s event %s not applied: %s", dispatchID, eventID, reason)
	return Result{Outcome: OutcomeIgnored, EventID: eventID, Reason: reason}, nil
}
