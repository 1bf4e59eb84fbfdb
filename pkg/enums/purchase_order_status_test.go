package enums

import "testing"

func TestPurchaseOrderTransitions(t *testing.T) {
	tests := []struct {
		from PurchaseOrderStatus
		to   PurchaseOrderStatus
		ok   bool
	}{
		{PurchaseOrderStatusDraft, PurchaseOrderStatusSubmitted, true},
		{PurchaseOrderStatusDraft, PurchaseOrderStatusCancelled, true},
		{PurchaseOrderStatusDraft, PurchaseOrderStatusApproved, false},
		{PurchaseOrderStatusSubmitted, PurchaseOrderStatusApproved, true},
		{PurchaseOrderStatusSubmitted, PurchaseOrderStatusShipped, false},
		{PurchaseOrderStatusApproved, PurchaseOrderStatusProcessing, true},
		{PurchaseOrderStatusApproved, PurchaseOrderStatusCancelled, true},
		{PurchaseOrderStatusProcessing, PurchaseOrderStatusShipped, true},
		{PurchaseOrderStatusProcessing, PurchaseOrderStatusCancelled, true},
		{PurchaseOrderStatusShipped, PurchaseOrderStatusCancelled, false},
		{PurchaseOrderStatusShipped, PurchaseOrderStatusReceived, true},
		{PurchaseOrderStatusShipped, PurchaseOrderStatusPartiallyReceived, true},
		{PurchaseOrderStatusPartiallyReceived, PurchaseOrderStatusReceived, true},
		{PurchaseOrderStatusReceived, PurchaseOrderStatusCompleted, true},
		{PurchaseOrderStatusReceived, PurchaseOrderStatusCancelled, false},
		{PurchaseOrderStatusCompleted, PurchaseOrderStatusDraft, false},
		{PurchaseOrderStatusCancelled, PurchaseOrderStatusSubmitted, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Fatalf("%s -> %s: expected %v got %v", tt.from, tt.to, tt.ok, got)
		}
	}
}

func TestPurchaseOrderTerminalStates(t *testing.T) {
	for _, status := range validPurchaseOrderStatuses {
		terminal := status == PurchaseOrderStatusCompleted || status == PurchaseOrderStatusCancelled
		if status.IsTerminal() != terminal {
			t.Fatalf("%s terminal mismatch", status)
		}
	}
}

func TestNextStatesReturnsCopy(t *testing.T) {
	next := PurchaseOrderStatusDraft.NextStates()
	next[0] = PurchaseOrderStatusCompleted
	if !PurchaseOrderStatusDraft.CanTransitionTo(PurchaseOrderStatusSubmitted) {
		t.Fatal("mutating NextStates result changed the state machine")
	}
}

func TestHoldsReservation(t *testing.T) {
	holding := map[PurchaseOrderStatus]bool{
		PurchaseOrderStatusSubmitted:  true,
		PurchaseOrderStatusApproved:   true,
		PurchaseOrderStatusProcessing: true,
	}
	for _, status := range validPurchaseOrderStatuses {
		if status.HoldsReservation() != holding[status] {
			t.Fatalf("%s reservation mismatch", status)
		}
	}
}

func TestParsePurchaseOrderStatus(t *testing.T) {
	got, err := ParsePurchaseOrderStatus("partially_received")
	if err != nil || got != PurchaseOrderStatusPartiallyReceived {
		t.Fatalf("unexpected parse result %q %v", got, err)
	}
	if _, err := ParsePurchaseOrderStatus("lost"); err == nil {
		t.Fatal("expected invalid status error")
	}
}
