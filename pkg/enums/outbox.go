package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregatePurchaseOrder OutboxAggregateType = "purchase_order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePurchaseOrder,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventPurchaseOrderSubmitted         OutboxEventType = "purchase_order_submitted"
	EventPurchaseOrderApproved          OutboxEventType = "purchase_order_approved"
	EventPurchaseOrderProcessingStarted OutboxEventType = "purchase_order_processing_started"
	EventPurchaseOrderShipped           OutboxEventType = "purchase_order_shipped"
	EventPurchaseOrderReceived          OutboxEventType = "purchase_order_received"
	EventPurchaseOrderCompleted         OutboxEventType = "purchase_order_completed"
	EventPurchaseOrderCancelled         OutboxEventType = "purchase_order_cancelled"
	EventPurchaseOrderPaymentRecorded   OutboxEventType = "purchase_order_payment_recorded"
	EventPurchaseOrderPaymentOverdue    OutboxEventType = "purchase_order_payment_overdue"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPurchaseOrderSubmitted,
	EventPurchaseOrderApproved,
	EventPurchaseOrderProcessingStarted,
	EventPurchaseOrderShipped,
	EventPurchaseOrderReceived,
	EventPurchaseOrderCompleted,
	EventPurchaseOrderCancelled,
	EventPurchaseOrderPaymentRecorded,
	EventPurchaseOrderPaymentOverdue,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
