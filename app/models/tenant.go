package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	TENANT_STATUS_ACTIVE    = "active"
	TENANT_STATUS_SUSPENDED = "suspended"
	TENANT_STATUS_CLOSED    = "closed"
)

// Tenant is the farm account record. It is created and managed by the
// account subsystem; the billing code only reads it to resolve notification
// recipients and to sanity-check webhook tenant references.
type Tenant struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TenantID     string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_tenants_tenant_id" json:"tenant_id" validate:"required,min=1,max=64"`
	Name         string    `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=2,max=150"`
	ContactEmail string    `gorm:"type:varchar(200);not null" json:"contact_email" validate:"required,email,max=200"`
	Status       string    `gorm:"type:varchar(50);not null;default:'active'" json:"status" validate:"oneof=active suspended closed"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Tenant) Validate() error {
	v := validator.New()

	return v.Struct(t)
}
