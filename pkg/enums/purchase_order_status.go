package enums

import "fmt"

// PurchaseOrderStatus tracks the lifecycle of a purchase order.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft             PurchaseOrderStatus = "draft"
	PurchaseOrderStatusSubmitted         PurchaseOrderStatus = "submitted"
	PurchaseOrderStatusApproved          PurchaseOrderStatus = "approved"
	PurchaseOrderStatusProcessing        PurchaseOrderStatus = "processing"
	PurchaseOrderStatusShipped           PurchaseOrderStatus = "shipped"
	PurchaseOrderStatusPartiallyReceived PurchaseOrderStatus = "partially_received"
	PurchaseOrderStatusReceived          PurchaseOrderStatus = "received"
	PurchaseOrderStatusCompleted         PurchaseOrderStatus = "completed"
	PurchaseOrderStatusCancelled         PurchaseOrderStatus = "cancelled"
)

var validPurchaseOrderStatuses = []PurchaseOrderStatus{
	PurchaseOrderStatusDraft,
	PurchaseOrderStatusSubmitted,
	PurchaseOrderStatusApproved,
	PurchaseOrderStatusProcessing,
	PurchaseOrderStatusShipped,
	PurchaseOrderStatusPartiallyReceived,
	PurchaseOrderStatusReceived,
	PurchaseOrderStatusCompleted,
	PurchaseOrderStatusCancelled,
}

// purchaseOrderTransitions is the full state machine. Anything not listed is rejected.
var purchaseOrderTransitions = map[PurchaseOrderStatus][]PurchaseOrderStatus{
	PurchaseOrderStatusDraft:             {PurchaseOrderStatusSubmitted, PurchaseOrderStatusCancelled},
	PurchaseOrderStatusSubmitted:         {PurchaseOrderStatusApproved, PurchaseOrderStatusCancelled},
	PurchaseOrderStatusApproved:          {PurchaseOrderStatusProcessing, PurchaseOrderStatusCancelled},
	PurchaseOrderStatusProcessing:        {PurchaseOrderStatusShipped, PurchaseOrderStatusCancelled},
	PurchaseOrderStatusShipped:           {PurchaseOrderStatusPartiallyReceived, PurchaseOrderStatusReceived},
	PurchaseOrderStatusPartiallyReceived: {PurchaseOrderStatusPartiallyReceived, PurchaseOrderStatusReceived},
	PurchaseOrderStatusReceived:          {PurchaseOrderStatusCompleted},
}

// String implements fmt.Stringer.
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PurchaseOrderStatus.
func (s PurchaseOrderStatus) IsValid() bool {
	for _, candidate := range validPurchaseOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// NextStates returns the statuses reachable from s in one transition.
func (s PurchaseOrderStatus) NextStates() []PurchaseOrderStatus {
	next := purchaseOrderTransitions[s]
	out := make([]PurchaseOrderStatus, len(next))
	copy(out, next)
	return out
}

// CanTransitionTo reports whether moving from s to target is legal.
func (s PurchaseOrderStatus) CanTransitionTo(target PurchaseOrderStatus) bool {
	for _, candidate := range purchaseOrderTransitions[s] {
		if candidate == target {
			return true
		}
	}
	return false
}

// IsEditable reports whether line items may still be added, changed or removed.
func (s PurchaseOrderStatus) IsEditable() bool {
	return s == PurchaseOrderStatusDraft
}

// IsTerminal reports whether no further transition is possible.
func (s PurchaseOrderStatus) IsTerminal() bool {
	return len(purchaseOrderTransitions[s]) == 0
}

// HoldsReservation reports whether stock is reserved on the supplier side in this status.
func (s PurchaseOrderStatus) HoldsReservation() bool {
	switch s {
	case PurchaseOrderStatusSubmitted, PurchaseOrderStatusApproved, PurchaseOrderStatusProcessing:
		return true
	default:
		return false
	}
}

// AcceptsReceipt reports whether goods can be received against the order.
func (s PurchaseOrderStatus) AcceptsReceipt() bool {
	return s == PurchaseOrderStatusShipped || s == PurchaseOrderStatusPartiallyReceived
}

// ParsePurchaseOrderStatus converts raw input into a PurchaseOrderStatus.
func ParsePurchaseOrderStatus(value string) (PurchaseOrderStatus, error) {
	for _, candidate := range validPurchaseOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase order status %q", value)
}
