package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
)

// InventoryLocation tracks on-hand and reserved units of one variant at one location.
// 0 <= ReservedQuantity <= Quantity holds at every commit.
type InventoryLocation struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	TenantID         uuid.UUID          `gorm:"column:tenant_id;type:uuid;not null;index"`
	VariantID        uuid.UUID          `gorm:"column:variant_id;type:uuid;not null;uniqueIndex:ux_inventory_locations_variant_location,priority:1"`
	LocationType     enums.LocationKind `gorm:"column:location_type;type:text;not null;uniqueIndex:ux_inventory_locations_variant_location,priority:2"`
	LocationID       uuid.UUID          `gorm:"column:location_id;type:uuid;not null;uniqueIndex:ux_inventory_locations_variant_location,priority:3"`
	Quantity         int                `gorm:"column:quantity;not null;default:0"`
	ReservedQuantity int                `gorm:"column:reserved_quantity;not null;default:0"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryLocation) TableName() string { return "inventory_locations" }

func (l *InventoryLocation) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// Available returns units that are on hand and not promised to an order.
func (l InventoryLocation) Available() int {
	return l.Quantity - l.ReservedQuantity
}
