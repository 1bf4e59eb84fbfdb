package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
)

// PurchaseOrder is a transaction between a buyer tenant and a supplier tenant for one shop.
type PurchaseOrder struct {
	ID                   uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	PONumber             string                    `gorm:"column:po_number;not null;uniqueIndex"`
	BuyerTenantID        uuid.UUID                 `gorm:"column:buyer_tenant_id;type:uuid;not null;index:ix_purchase_orders_pair,priority:1"`
	SupplierTenantID     uuid.UUID                 `gorm:"column:supplier_tenant_id;type:uuid;not null;index:ix_purchase_orders_pair,priority:2"`
	ShopID               uuid.UUID                 `gorm:"column:shop_id;type:uuid;not null;index"`
	ConnectionID         uuid.UUID                 `gorm:"column:connection_id;type:uuid;not null"`
	Status               enums.PurchaseOrderStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	PaymentStatus        enums.PaymentStatus       `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	TotalAmount          decimal.Decimal           `gorm:"column:total_amount;type:numeric(14,2);not null"`
	PaidAmount           decimal.Decimal           `gorm:"column:paid_amount;type:numeric(14,2);not null"`
	Notes                *string                   `gorm:"column:notes"`
	CancellationReason   *string                   `gorm:"column:cancellation_reason"`
	ExpectedDeliveryDate *time.Time                `gorm:"column:expected_delivery_date"`
	ActualDeliveryDate   *time.Time                `gorm:"column:actual_delivery_date"`
	PaymentDueDate       *time.Time                `gorm:"column:payment_due_date"`
	SubmittedAt          *time.Time                `gorm:"column:submitted_at"`
	SubmittedBy          *uuid.UUID                `gorm:"column:submitted_by;type:uuid"`
	ApprovedAt           *time.Time                `gorm:"column:approved_at"`
	ApprovedBy           *uuid.UUID                `gorm:"column:approved_by;type:uuid"`
	ProcessingAt         *time.Time                `gorm:"column:processing_at"`
	ProcessingBy         *uuid.UUID                `gorm:"column:processing_by;type:uuid"`
	ShippedAt            *time.Time                `gorm:"column:shipped_at"`
	ShippedBy            *uuid.UUID                `gorm:"column:shipped_by;type:uuid"`
	ReceivedAt           *time.Time                `gorm:"column:received_at"`
	ReceivedBy           *uuid.UUID                `gorm:"column:received_by;type:uuid"`
	CompletedAt          *time.Time                `gorm:"column:completed_at"`
	CompletedBy          *uuid.UUID                `gorm:"column:completed_by;type:uuid"`
	CancelledAt          *time.Time                `gorm:"column:cancelled_at"`
	CancelledBy          *uuid.UUID                `gorm:"column:cancelled_by;type:uuid"`
	CreatedBy            uuid.UUID                 `gorm:"column:created_by;type:uuid;not null"`
	Items                []PurchaseOrderItem       `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE"`
	Payments             []PurchaseOrderPayment    `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (PurchaseOrder) TableName() string { return "purchase_orders" }

func (p *PurchaseOrder) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// PurchaseOrderItem is a line of a purchase order. ReceivedQuantity only ever grows
// and never exceeds Quantity. The source location is pinned when the order is submitted.
type PurchaseOrderItem struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseOrderID    uuid.UUID           `gorm:"column:purchase_order_id;type:uuid;not null;index"`
	VariantID          uuid.UUID           `gorm:"column:variant_id;type:uuid;not null"`
	CatalogItemID      uuid.UUID           `gorm:"column:catalog_item_id;type:uuid;not null"`
	SKU                string              `gorm:"column:sku;not null"`
	Quantity           int                 `gorm:"column:quantity;not null"`
	UnitPrice          decimal.Decimal     `gorm:"column:unit_price;type:numeric(14,2);not null"`
	TotalPrice         decimal.Decimal     `gorm:"column:total_price;type:numeric(14,2);not null"`
	ReceivedQuantity   int                 `gorm:"column:received_quantity;not null;default:0"`
	SourceLocationType *enums.LocationKind `gorm:"column:source_location_type;type:text"`
	SourceLocationID   *uuid.UUID          `gorm:"column:source_location_id;type:uuid"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (PurchaseOrderItem) TableName() string { return "purchase_order_items" }

func (i *PurchaseOrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// Remaining returns how many units are still expected.
func (i PurchaseOrderItem) Remaining() int {
	return i.Quantity - i.ReceivedQuantity
}
