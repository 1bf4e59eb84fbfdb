package purchaseorders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
	"github.com/angelmondragon/supplyledger-backend/pkg/outbox"
	"github.com/angelmondragon/supplyledger-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/supplyledger-backend/pkg/types"
)

var transitionEvents = map[enums.PurchaseOrderStatus]enums.OutboxEventType{
	enums.PurchaseOrderStatusSubmitted:         enums.EventPurchaseOrderSubmitted,
	enums.PurchaseOrderStatusApproved:          enums.EventPurchaseOrderApproved,
	enums.PurchaseOrderStatusProcessing:        enums.EventPurchaseOrderProcessingStarted,
	enums.PurchaseOrderStatusShipped:           enums.EventPurchaseOrderShipped,
	enums.PurchaseOrderStatusPartiallyReceived: enums.EventPurchaseOrderReceived,
	enums.PurchaseOrderStatusReceived:          enums.EventPurchaseOrderReceived,
	enums.PurchaseOrderStatusCompleted:         enums.EventPurchaseOrderCompleted,
	enums.PurchaseOrderStatusCancelled:         enums.EventPurchaseOrderCancelled,
}

func (s *service) emitTransition(ctx context.Context, tx *gorm.DB, po *models.PurchaseOrder, actor types.Actor, from, to enums.PurchaseOrderStatus, reason *string, at time.Time) error {
	eventType, ok := transitionEvents[to]
	if !ok {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   po.ID,
		Actor:         outbox.ActorFrom(actor),
		Data: payloads.PurchaseOrderTransitionEvent{
			PurchaseOrderID:  po.ID,
			PONumber:         po.PONumber,
			BuyerTenantID:    po.BuyerTenantID,
			SupplierTenantID: po.SupplierTenantID,
			ShopID:           po.ShopID,
			FromStatus:       from,
			ToStatus:         to,
			TotalAmount:      po.TotalAmount,
			Reason:           reason,
		},
		Version:    1,
		OccurredAt: at,
	})
}
