package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
)

// PurchaseOrderPayment is an append-only payment record.
type PurchaseOrderPayment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseOrderID uuid.UUID           `gorm:"column:purchase_order_id;type:uuid;not null;index"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	Method          enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Reference       *string             `gorm:"column:reference"`
	Notes           *string             `gorm:"column:notes"`
	RecordedBy      uuid.UUID           `gorm:"column:recorded_by;type:uuid;not null"`
	PaidAt          time.Time           `gorm:"column:paid_at;not null"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (PurchaseOrderPayment) TableName() string { return "purchase_order_payments" }

func (p *PurchaseOrderPayment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
