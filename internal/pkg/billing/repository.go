package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/CroftlyHQ/Croftly/app/models"
	"gorm.io/gorm"
)

// SubscriptionRepository provides the subscription reads and guarded writes
// used by the entitlement sync. No other code writes tenant_subscriptions.
type SubscriptionRepository interface {
	GetByTenantID(ctx context.Context, tenantID string) (*models.TenantSubscription, error)
	Create(ctx context.Context, sub *models.TenantSubscription) error
	UpdateGuarded(ctx context.Context, sub *models.TenantSubscription, expectedLastEventID string) error
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
}

type gormSubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a subscription repository backed by GORM.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &gormSubscriptionRepository{db: db}
}

// GetByTenantID returns the tenant's subscription row, or
// gorm.ErrRecordNotFound when the tenant has none yet.
func (r *gormSubscriptionRepository) GetByTenantID(ctx context.Context, tenantID string) (*models.TenantSubscription, error) {
	var sub models.TenantSubscription
	err := r.db.WithContext(ctx).Where("tenant_id = ?", strings.TrimSpace(tenantID)).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, transient("load tenant subscription", err)
	}
	return &sub, nil
}

// Create inserts the tenant's first subscription row. A concurrent first
// event losing the race against the unique tenant_id index surfaces as
// ErrConcurrentUpdate so the caller retries against the winner's state.
func (r *gormSubscriptionRepository) Create(ctx context.Context, sub *models.TenantSubscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		var existing models.TenantSubscription
		if lookupErr := r.db.WithContext(ctx).
			Where("tenant_id = ?", sub.TenantID).
			First(&existing).Error; lookupErr == nil {
			return ErrConcurrentUpdate
		}
		return transient("create tenant subscription", err)
	}
	return nil
}

// UpdateGuarded writes the subscription only while the stored
// last_applied_event_id still matches what this commit was computed
// against. Zero matched rows means another event got there first.
func (r *gormSubscriptionRepository) UpdateGuarded(ctx context.Context, sub *models.TenantSubscription, expectedLastEventID string) error {
	tx := r.db.WithContext(ctx).Model(&models.TenantSubscription{}).
		Where("tenant_id = ? AND last_applied_event_id = ?", sub.TenantID, expectedLastEventID).
		Updates(map[string]interface{}{
			"plan_tier":             sub.PlanTier,
			"state":                 sub.State,
			"current_period_end":    sub.CurrentPeriodEnd,
			"past_due_since":        sub.PastDueSince,
			"last_applied_event_id": sub.LastAppliedEventID,
			"last_applied_event_at": sub.LastAppliedEventAt,
		})
	if tx.Error != nil {
		return transient("update tenant subscription", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

// GetTenant resolves the tenant account record (notification recipient).
func (r *gormSubscriptionRepository) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).Where("tenant_id = ?", strings.TrimSpace(tenantID)).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, transient("load tenant", err)
	}
	return &tenant, nil
}
