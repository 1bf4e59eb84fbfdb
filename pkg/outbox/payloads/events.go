package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
)

// PurchaseOrderTransitionEvent is emitted for every lifecycle transition of a purchase order.
type PurchaseOrderTransitionEvent struct {
	PurchaseOrderID  uuid.UUID                 `json:"purchase_order_id"`
	PONumber         string                    `json:"po_number"`
	BuyerTenantID    uuid.UUID                 `json:"buyer_tenant_id"`
	SupplierTenantID uuid.UUID                 `json:"supplier_tenant_id"`
	ShopID           uuid.UUID                 `json:"shop_id"`
	FromStatus       enums.PurchaseOrderStatus `json:"from_status"`
	ToStatus         enums.PurchaseOrderStatus `json:"to_status"`
	TotalAmount      decimal.Decimal           `json:"total_amount"`
	Reason           *string                   `json:"reason,omitempty"`
}

// PurchaseOrderPaymentRecordedEvent is emitted when a payment is appended.
type PurchaseOrderPaymentRecordedEvent struct {
	PurchaseOrderID uuid.UUID           `json:"purchase_order_id"`
	PaymentID       uuid.UUID           `json:"payment_id"`
	Amount          decimal.Decimal     `json:"amount"`
	Method          enums.PaymentMethod `json:"method"`
	PaidAmount      decimal.Decimal     `json:"paid_amount"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
}

// PurchaseOrderPaymentOverdueEvent is emitted once when an unpaid order passes its due date.
type PurchaseOrderPaymentOverdueEvent struct {
	PurchaseOrderID  uuid.UUID       `json:"purchase_order_id"`
	PONumber         string          `json:"po_number"`
	BuyerTenantID    uuid.UUID       `json:"buyer_tenant_id"`
	SupplierTenantID uuid.UUID       `json:"supplier_tenant_id"`
	PaymentDueDate   time.Time       `json:"payment_due_date"`
	Outstanding      decimal.Decimal `json:"outstanding"`
}
