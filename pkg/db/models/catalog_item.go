package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogItem is a variant a supplier offers for purchase orders.
type CatalogItem struct {
	ID                   uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	SupplierTenantID     uuid.UUID          `gorm:"column:supplier_tenant_id;type:uuid;not null;uniqueIndex:ux_catalog_items_supplier_variant,priority:1"`
	VariantID            uuid.UUID          `gorm:"column:variant_id;type:uuid;not null;uniqueIndex:ux_catalog_items_supplier_variant,priority:2"`
	SKU                  string             `gorm:"column:sku;not null"`
	BaseUnitPrice        decimal.Decimal    `gorm:"column:base_unit_price;type:numeric(14,2);not null"`
	MinimumOrderQuantity int                `gorm:"column:minimum_order_quantity;not null;default:1"`
	Active               bool               `gorm:"column:active;not null;default:true"`
	Tiers                []CatalogPriceTier `gorm:"foreignKey:CatalogItemID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (CatalogItem) TableName() string { return "catalog_items" }

func (c *CatalogItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CatalogPriceTier is a quantity break. A tier with a ConnectionID applies only to that buyer.
type CatalogPriceTier struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CatalogItemID uuid.UUID       `gorm:"column:catalog_item_id;type:uuid;not null;index"`
	ConnectionID  *uuid.UUID      `gorm:"column:connection_id;type:uuid"`
	MinQuantity   int             `gorm:"column:min_quantity;not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (CatalogPriceTier) TableName() string { return "catalog_price_tiers" }

func (t *CatalogPriceTier) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
