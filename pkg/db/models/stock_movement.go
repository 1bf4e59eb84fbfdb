package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
)

// StockMovement is an append-only ledger entry. Quantity is the signed delta applied
// to the location identified by LocationType/LocationID; reservation entries carry zero.
type StockMovement struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	VariantID       uuid.UUID          `gorm:"column:variant_id;type:uuid;not null;index:ix_stock_movements_variant_location,priority:1"`
	LocationType    enums.LocationKind `gorm:"column:location_type;type:text;not null;index:ix_stock_movements_variant_location,priority:2"`
	LocationID      uuid.UUID          `gorm:"column:location_id;type:uuid;not null;index:ix_stock_movements_variant_location,priority:3"`
	FromLocationID  *uuid.UUID         `gorm:"column:from_location_id;type:uuid"`
	ToLocationID    *uuid.UUID         `gorm:"column:to_location_id;type:uuid"`
	Type            enums.MovementType `gorm:"column:type;type:text;not null"`
	Quantity        int                `gorm:"column:quantity;not null"`
	QuantityBefore  int                `gorm:"column:quantity_before;not null"`
	QuantityAfter   int                `gorm:"column:quantity_after;not null"`
	ReferenceNumber string             `gorm:"column:reference_number;not null;index"`
	Reason          *string            `gorm:"column:reason"`
	CreatedBy       uuid.UUID          `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt       time.Time          `gorm:"column:created_at;not null"`
}

func (StockMovement) TableName() string { return "stock_movements" }

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}
