package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SupplierConnection is the trading relationship between a buyer and a supplier tenant.
// A null CreditLimit means unlimited credit.
type SupplierConnection struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	BuyerTenantID        uuid.UUID           `gorm:"column:buyer_tenant_id;type:uuid;not null;uniqueIndex:ux_supplier_connections_pair,priority:1"`
	SupplierTenantID     uuid.UUID           `gorm:"column:supplier_tenant_id;type:uuid;not null;uniqueIndex:ux_supplier_connections_pair,priority:2"`
	CreditLimit          decimal.NullDecimal `gorm:"column:credit_limit;type:numeric(14,2)"`
	PaymentTermsOverride *int                `gorm:"column:payment_terms_override"`
	Active               bool                `gorm:"column:active;not null;default:true"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (SupplierConnection) TableName() string { return "supplier_connections" }

func (c *SupplierConnection) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
