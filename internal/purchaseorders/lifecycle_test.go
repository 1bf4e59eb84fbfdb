package purchaseorders

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplyledger-backend/internal/inventory"
	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyledger-backend/pkg/errors"
	"github.com/angelmondragon/supplyledger-backend/pkg/outbox"
	"github.com/angelmondragon/supplyledger-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/supplyledger-backend/pkg/pagination"
)

// shipped drives an order with the given lines all the way to SHIPPED.
func (h *harness) shipped(t *testing.T, lines map[uuid.UUID]int) *models.PurchaseOrder {
	t.Helper()
	po := h.processing(t, lines)
	po, err := h.svc.Ship(h.ctx, h.supplier, po.ID)
	require.NoError(t, err)
	return po
}

func (h *harness) processing(t *testing.T, lines map[uuid.UUID]int) *models.PurchaseOrder {
	t.Helper()
	po := h.draft(t)
	for variantID, qty := range lines {
		po = h.add(t, po, variantID, qty)
	}
	po, err := h.svc.Submit(h.ctx, h.buyer, po.ID)
	require.NoError(t, err)
	po, err = h.svc.Approve(h.ctx, h.supplier, po.ID)
	require.NoError(t, err)
	po, err = h.svc.StartProcessing(h.ctx, h.supplier, po.ID)
	require.NoError(t, err)
	return po
}

func TestFiftyUnitScenario(t *testing.T) {
	h := newHarness(t)
	x := h.variant(t, "4.00", 50)
	shop := inventory.ShopLocation(h.shopID)

	po := h.add(t, h.draft(t), x, 50)
	po, err := h.svc.Submit(h.ctx, h.buyer, po.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseOrderStatusSubmitted, po.Status)
	require.NotNil(t, po.Items[0].SourceLocationID)
	require.Equal(t, h.warehouse.ID, *po.Items[0].SourceLocationID)

	row := h.stockAt(t, x, h.warehouse)
	require.Equal(t, 50, row.Quantity)
	require.Equal(t, 50, row.ReservedQuantity)

	po, err = h.svc.Approve(h.ctx, h.supplier, po.ID)
	require.NoError(t, err)
	po, err = h.svc.StartProcessing(h.ctx, h.supplier, po.ID)
	require.NoError(t, err)
	po, err = h.svc.Ship(h.ctx, h.supplier, po.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseOrderStatusShipped, po.Status)

	row = h.stockAt(t, x, h.warehouse)
	require.Equal(t, 0, row.Quantity)
	require.Equal(t, 0, row.ReservedQuantity)

	page, err := h.inventory.ListMovements(h.ctx, x, h.warehouse, pagination.Params{Limit: pagination.MaxLimit})
	require.NoError(t, err)
	var shippedMoves []models.StockMovement
	for _, mv := range page.Items {
		if mv.Type == enums.MovementPOShipped {
			shippedMoves = append(shippedMoves, mv)
		}
	}
	require.Len(t, shippedMoves, 1)
	require.Equal(t, -50, shippedMoves[0].Quantity)
	require.Equal(t, 50, shippedMoves[0].QuantityBefore)
	require.Equal(t, 0, shippedMoves[0].QuantityAfter)

	po, err = h.svc.Receive(h.ctx, h.buyer, po.ID, ReceiveInput{Items: map[uuid.UUID]int{po.Items[0].ID: 50}})
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseOrderStatusReceived, po.Status)
	require.Equal(t, 50, h.stockAt(t, x, shop).Quantity)

	po, err = h.svc.Complete(h.ctx, h.buyer, po.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseOrderStatusCompleted, po.Status)
	require.NotNil(t, po.CompletedAt)

	supplierRow := h.stockAt(t, x, h.warehouse)
	audit, err := h.inventory.Reconcile(h.ctx, supplierRow)
	require.NoError(t, err)
	require.True(t, audit.OK(), audit.Issues)
	audit, err = h.inventory.Reconcile(h.ctx, h.stockAt(t, x, shop))
	require.NoError(t, err)
	require.True(t, audit.OK(), audit.Issues)

	require.Equal(t, []enums.OutboxEventType{
		enums.EventPurchaseOrderSubmitted,
		enums.EventPurchaseOrderApproved,
		enums.EventPurchaseOrderProcessingStarted,
		enums.EventPurchaseOrderShipped,
		enums.EventPurchaseOrderReceived,
		enums.EventPurchaseOrderCompleted,
	}, h.events(t, po.ID))
}

func TestPartialReceiptAccumulates(t *testing.T) {
	h := newHarness(t)
	x := h.variant(t, "1.00", 10)
	po := h.shipped(t, map[uuid.UUID]int{x: 10})
	itemID := po.Items[0].ID

	po, err := h.svc.Receive(h.ctx, h.buyer, po.ID, ReceiveInput{Items: map[uuid.UUID]int{itemID: 3}})
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseOrderStatusPartiallyReceived, po.Status)
	require.Nil(t, po.ReceivedAt)

	po, err = h.svc.Receive(h.ctx, h.buyer, po.ID, ReceiveInput{Items: map[uuid.UUID]int{itemID: 4}})
	require.NoError(t, err)
	require.Equal(t, 7, po.Items[0].ReceivedQuantity)
	require.Equal(t, enums.PurchaseOrderStatusPartiallyReceived, po.Status)

	delivered := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	po, err = h.svc.Receive(h.ctx, h.buyer, po.ID, ReceiveInput{
		Items:              map[uuid.UUID]int{itemID: 3},
		ActualDeliveryDate: &delivered,
	})
	require.NoError(t, err)
	require.Equal(t, 10, po.Items[0].ReceivedQuantity)
	require.Equal(t, enums.PurchaseOrderStatusReceived, po.Status)
	require.NotNil(t, po.ReceivedAt)
	require.Equal(t, h.buyer.UserID, *po.ReceivedBy)
	require.NotNil(t, po.ActualDeliveryDate)
	require.True(t, po.ActualDeliveryDate.Equal(delivered))

	require.Equal(t, 10, h.stockAt(t, x, inventory.ShopLocation(h.shopID)).Quantity)
}

func TestReceiptSpreadAcrossItems(t *testing.T) {
	h := newHarness(t)
	a := h.variant(t, "1.00", 4)
	b := h.variant(t, "1.00", 6)
	po := h.shipped(t, map[uuid.UUID]int{a: 4, b: 6})
	items := map[uuid.UUID]uuid.UUID{}
	for _, item := range po.Items {
		items[item.VariantID] = item.ID
	}

	po, err := h.svc.Receive(h.ctx, h.buyer, po.ID, ReceiveInput{Items: map[uuid.UUID]int{items[a]: 4, items[b]: 0}})
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseOrderStatusPartiallyReceived, po.Status)

	po, err = h.svc.Receive(h.ctx, h.buyer, po.ID, ReceiveInput{Items: map[uuid.UUID]int{items[b]: 6}})
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseOrderStatusReceived, po.Status)
}

func TestReceiveNothingKeepsStatus(t *testing.T) {
	h := newHarness(t)
	x := h.variant(t, "1.00", 2)
	po := h.shipped(t, map[uuid.UUID]int{x: 2})

	po, err := h.svc.Receive(h.ctx, h.buyer, po.ID, ReceiveInput{Items: map[uuid.UUID]int{po.Items[0].ID: 0}})
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseOrderStatusShipped, po.Status)
	require.NotContains(t, h.events(t, po.ID), enums.EventPurchaseOrderReceived)
}

func TestOverReceiptIsRejected(t *testing.T) {
	h := newHarness(t)
	x := h.variant(t, "1.00", 10)
	po := h.shipped(t, map[uuid.UUID]int{x: 10})
	itemID := po.Items[0].ID

	_, err := h.svc.Receive(h.ctx, h.buyer, po.ID, ReceiveInput{Items: map[uuid.UUID]int{itemID: 11}})
	requireCode(t, err, pkgerrors.CodeExcessReceipt)

	_, err = h.svc.Receive(h.ctx, h.buyer, po.ID, ReceiveInput{Items: map[uuid.UUID]int{itemID: -1}})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.Receive(h.ctx, h.buyer, po.ID, ReceiveInput{Items: map[uuid.UUID]int{uuid.New(): 1}})
	requireCode(t, err, pkgerrors.CodeNotFound)

	stored, err := h.svc.Get(h.ctx, h.buyer, po.ID)
	require.NoError(t, err)
	require.Equal(t, 0, stored.Items[0].ReceivedQuantity)
	require.Equal(t, enums.PurchaseOrderStatusShipped, stored.Status)

	_, err = h.inventory.GetLocation(h.ctx, x, inventory.ShopLocation(h.shopID))
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestShipIsAtomicAcrossItems(t *testing.T) {
	h := newHarness(t)
	a := h.variant(t, "1.00", 10)
	b := h.variant(t, "1.00", 5)
	po := h.processing(t, map[uuid.UUID]int{a: 10, b: 5})

	// Another path consumed part of b's stock after it was reserved.
	require.NoError(t, h.conn.Model(&models.InventoryLocation{}).
		Where("variant_id = ? AND location_id = ?", b, h.warehouse.ID).
		Update("quantity", 2).Error)

	_, err := h.svc.Ship(h.ctx, h.supplier, po.ID)
	requireCode(t, err, pkgerrors.CodeInsufficientStock)

	row := h.stockAt(t, a, h.warehouse)
	require.Equal(t, 10, row.Quantity)
	require.Equal(t, 10, row.ReservedQuantity)

	stored, err := h.svc.Get(h.ctx, h.buyer, po.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseOrderStatusProcessing, stored.Status)
	require.Nil(t, stored.ShippedAt)
}

func TestSubmitThenCancelReleasesReservationExactly(t *testing.T) {
	h := newHarness(t)
	x := h.variant(t, "1.00", 20)

	first := h.add(t, h.draft(t), x, 5)
	_, err := h.svc.Submit(h.ctx, h.buyer, first.ID)
	require.NoError(t, err)
	before := h.stockAt(t, x, h.warehouse)
	require.Equal(t, 5, before.ReservedQuantity)

	second := h.add(t, h.draft(t), x, 7)
	_, err = h.svc.Submit(h.ctx, h.buyer, second.ID)
	require.NoError(t, err)
	require.Equal(t, 12, h.stockAt(t, x, h.warehouse).ReservedQuantity)

	_, err = h.svc.Approve(h.ctx, h.supplier, second.ID)
	require.NoError(t, err)

	reason := "ordered twice"
	cancelled, err := h.svc.Cancel(h.ctx, h.buyer, second.ID, &reason)
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseOrderStatusCancelled, cancelled.Status)
	require.Equal(t, enums.PaymentStatusCancelled, cancelled.PaymentStatus)
	require.Equal(t, reason, *cancelled.CancellationReason)
	require.NotNil(t, cancelled.CancelledAt)

	after := h.stockAt(t, x, h.warehouse)
	require.Equal(t, before.ReservedQuantity, after.ReservedQuantity)
	require.Equal(t, before.Quantity, after.Quantity)

	page, err := h.inventory.ListMovements(h.ctx, x, h.warehouse, pagination.Params{Limit: pagination.MaxLimit})
	require.NoError(t, err)
	last := page.Items[len(page.Items)-1]
	require.Equal(t, enums.MovementPOReservationReleased, last.Type)
	require.Equal(t, 0, last.Quantity)
	require.Equal(t, second.PONumber, last.ReferenceNumber)

	rows, err := h.outbox.ListForAggregate(enums.AggregatePurchaseOrder, second.ID)
	require.NoError(t, err)
	var event payloads.PurchaseOrderTransitionEvent
	_, err = outbox.DecodeEnvelope(rows[len(rows)-1].Payload, &event)
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseOrderStatusApproved, event.FromStatus)
	require.Equal(t, enums.PurchaseOrderStatusCancelled, event.ToStatus)
	require.Equal(t, reason, *event.Reason)
}

func TestCancelDraftTouchesNoStock(t *testing.T) {
	h := newHarness(t)
	x := h.variant(t, "1.00", 3)
	po := h.add(t, h.draft(t), x, 3)

	po, err := h.svc.Cancel(h.ctx, h.buyer, po.ID, nil)
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseOrderStatusCancelled, po.Status)
	require.Equal(t, 0, h.stockAt(t, x, h.warehouse).ReservedQuantity)
}

func TestSubmitIsAllOrNothing(t *testing.T) {
	h := newHarness(t)
	a := h.variant(t, "1.00", 10)
	b := h.variant(t, "1.00", 1)
	po := h.add(t, h.add(t, h.draft(t), a, 10), b, 2)

	_, err := h.svc.Submit(h.ctx, h.buyer, po.ID)
	requireCode(t, err, pkgerrors.CodeInsufficientStock)

	require.Equal(t, 0, h.stockAt(t, a, h.warehouse).ReservedQuantity)
	stored, err := h.svc.Get(h.ctx, h.buyer, po.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseOrderStatusDraft, stored.Status)
	require.Nil(t, stored.Items[0].SourceLocationID)
	require.Empty(t, h.events(t, po.ID))
}

func TestSubmitRequiresItems(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Submit(h.ctx, h.buyer, h.draft(t).ID)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestSubmitStampsPaymentDueDate(t *testing.T) {
	h := newHarness(t, withPaymentTerms(15))
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	h.svc.(*service).now = func() time.Time { return now }
	x := h.variant(t, "1.00", 1)
	po := h.add(t, h.draft(t), x, 1)

	po, err := h.svc.Submit(h.ctx, h.buyer, po.ID)
	require.NoError(t, err)
	require.NotNil(t, po.SubmittedAt)
	require.True(t, po.SubmittedAt.Equal(now))
	require.Equal(t, h.buyer.UserID, *po.SubmittedBy)
	require.NotNil(t, po.PaymentDueDate)
	require.True(t, po.PaymentDueDate.Equal(now.AddDate(0, 0, 15)))
}

func TestSubmitUsesDefaultPaymentTerms(t *testing.T) {
	h := newHarness(t)
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	h.svc.(*service).now = func() time.Time { return now }
	x := h.variant(t, "1.00", 1)
	po := h.add(t, h.draft(t), x, 1)

	po, err := h.svc.Submit(h.ctx, h.buyer, po.ID)
	require.NoError(t, err)
	require.True(t, po.PaymentDueDate.Equal(now.AddDate(0, 0, 30)))
}

func TestTransitionGuards(t *testing.T) {
	h := newHarness(t)
	x := h.variant(t, "1.00", 5)
	po := h.add(t, h.draft(t), x, 1)

	_, err := h.svc.Approve(h.ctx, h.supplier, po.ID)
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	_, err = h.svc.Ship(h.ctx, h.supplier, po.ID)
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	_, err = h.svc.Receive(h.ctx, h.buyer, po.ID, ReceiveInput{Items: map[uuid.UUID]int{po.Items[0].ID: 1}})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	_, err = h.svc.Submit(h.ctx, h.supplier, po.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = h.svc.Submit(h.ctx, h.buyer, po.ID)
	require.NoError(t, err)
	_, err = h.svc.Approve(h.ctx, h.buyer, po.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = h.svc.Submit(h.ctx, h.buyer, po.ID)
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	_, err = h.svc.AddItem(h.ctx, h.buyer, po.ID, AddItemInput{VariantID: x, Quantity: 1})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	shipped := h.shipped(t, map[uuid.UUID]int{x: 2})
	_, err = h.svc.Cancel(h.ctx, h.buyer, shipped.ID, nil)
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	_, err = h.svc.Complete(h.ctx, h.buyer, shipped.ID)
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
}

func TestReceivedStampedOnce(t *testing.T) {
	po := &models.PurchaseOrder{}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	userID := uuid.New()

	updates := map[string]any{}
	stamp(updates, po, enums.PurchaseOrderStatusReceived, userID, now)
	require.Equal(t, now, updates["received_at"])
	require.Equal(t, userID, updates["received_by"])

	po.ReceivedAt = &now
	updates = map[string]any{}
	stamp(updates, po, enums.PurchaseOrderStatusReceived, uuid.New(), now.Add(time.Hour))
	require.Empty(t, updates)

	updates = map[string]any{}
	stamp(updates, po, enums.PurchaseOrderStatusPartiallyReceived, userID, now)
	require.Empty(t, updates)
}

func TestReceiptStatus(t *testing.T) {
	item := func(qty, received int) models.PurchaseOrderItem {
		return models.PurchaseOrderItem{Quantity: qty, ReceivedQuantity: received}
	}
	shipped := enums.PurchaseOrderStatusShipped

	require.Equal(t, shipped, receiptStatus(shipped, []models.PurchaseOrderItem{item(5, 0), item(2, 0)}))
	require.Equal(t, enums.PurchaseOrderStatusPartiallyReceived, receiptStatus(shipped, []models.PurchaseOrderItem{item(5, 5), item(2, 0)}))
	require.Equal(t, enums.PurchaseOrderStatusPartiallyReceived, receiptStatus(shipped, []models.PurchaseOrderItem{item(5, 1), item(2, 1)}))
	require.Equal(t, enums.PurchaseOrderStatusReceived, receiptStatus(shipped, []models.PurchaseOrderItem{item(5, 5), item(2, 2)}))
}
