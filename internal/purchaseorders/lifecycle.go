package purchaseorders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/internal/inventory"
	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyledger-backend/pkg/errors"
	"github.com/angelmondragon/supplyledger-backend/pkg/types"
	"github.com/angelmondragon/supplyledger-backend/pkg/validation"
)

type party int

const (
	partyBuyer party = iota
	partySupplier
)

// transition describes one lifecycle step. apply runs inside the transaction with the
// order locked. It may override the target through updates["status"] or drop the key
// to leave the status untouched.
type transition struct {
	name   string
	target enums.PurchaseOrderStatus
	party  party
	allow  func(from enums.PurchaseOrderStatus) bool
	apply  func(ctx context.Context, tx *gorm.DB, po *models.PurchaseOrder, actor types.Actor, now time.Time, updates map[string]any) error
	reason *string
}

func (s *service) Submit(ctx context.Context, actor types.Actor, poID uuid.UUID) (*models.PurchaseOrder, error) {
	return s.transition(ctx, actor, poID, transition{
		name:   "submit",
		target: enums.PurchaseOrderStatusSubmitted,
		party:  partyBuyer,
		apply:  s.applySubmit,
	})
}

func (s *service) Approve(ctx context.Context, actor types.Actor, poID uuid.UUID) (*models.PurchaseOrder, error) {
	return s.transition(ctx, actor, poID, transition{
		name:   "approve",
		target: enums.PurchaseOrderStatusApproved,
		party:  partySupplier,
	})
}

func (s *service) StartProcessing(ctx context.Context, actor types.Actor, poID uuid.UUID) (*models.PurchaseOrder, error) {
	return s.transition(ctx, actor, poID, transition{
		name:   "start processing",
		target: enums.PurchaseOrderStatusProcessing,
		party:  partySupplier,
	})
}

func (s *service) Ship(ctx context.Context, actor types.Actor, poID uuid.UUID) (*models.PurchaseOrder, error) {
	return s.transition(ctx, actor, poID, transition{
		name:   "ship",
		target: enums.PurchaseOrderStatusShipped,
		party:  partySupplier,
		apply: func(ctx context.Context, tx *gorm.DB, po *models.PurchaseOrder, actor types.Actor, _ time.Time, _ map[string]any) error {
			lines, err := sourcedLines(po.Items)
			if err != nil {
				return err
			}
			_, err = s.ledger.Ship(ctx, tx, po.SupplierTenantID, lines, s.entry(po, actor))
			return err
		},
	})
}

func (s *service) Receive(ctx context.Context, actor types.Actor, poID uuid.UUID, input ReceiveInput) (*models.PurchaseOrder, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, poID, transition{
		name:   "receive",
		target: enums.PurchaseOrderStatusReceived,
		party:  partyBuyer,
		allow:  enums.PurchaseOrderStatus.AcceptsReceipt,
		apply: func(ctx context.Context, tx *gorm.DB, po *models.PurchaseOrder, actor types.Actor, now time.Time, updates map[string]any) error {
			return s.applyReceive(ctx, tx, po, actor, now, input, updates)
		},
	})
}

func (s *service) Complete(ctx context.Context, actor types.Actor, poID uuid.UUID) (*models.PurchaseOrder, error) {
	return s.transition(ctx, actor, poID, transition{
		name:   "complete",
		target: enums.PurchaseOrderStatusCompleted,
		party:  partyBuyer,
	})
}

func (s *service) Cancel(ctx context.Context, actor types.Actor, poID uuid.UUID, reason *string) (*models.PurchaseOrder, error) {
	return s.transition(ctx, actor, poID, transition{
		name:   "cancel",
		target: enums.PurchaseOrderStatusCancelled,
		party:  partyBuyer,
		reason: reason,
		apply: func(ctx context.Context, tx *gorm.DB, po *models.PurchaseOrder, actor types.Actor, _ time.Time, updates map[string]any) error {
			if po.Status.HoldsReservation() && len(po.Items) > 0 {
				lines, err := sourcedLines(po.Items)
				if err != nil {
					return err
				}
				if _, err := s.ledger.Release(ctx, tx, po.SupplierTenantID, lines, s.entry(po, actor)); err != nil {
					return err
				}
			}
			updates["payment_status"] = enums.PaymentStatusCancelled
			updates["cancellation_reason"] = reason
			return nil
		},
	})
}

func (s *service) applySubmit(ctx context.Context, tx *gorm.DB, po *models.PurchaseOrder, actor types.Actor, now time.Time, updates map[string]any) error {
	if len(po.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase order has no items")
	}
	conn, err := s.credit.Connection(ctx, tx, po.BuyerTenantID, po.SupplierTenantID)
	if err != nil {
		return err
	}

	lines := make([]inventory.Line, len(po.Items))
	for i, item := range po.Items {
		lines[i] = inventory.Line{ItemID: item.ID, VariantID: item.VariantID, Quantity: item.Quantity}
	}
	allocations, err := s.ledger.Reserve(ctx, tx, po.SupplierTenantID, lines, s.entry(po, actor))
	if err != nil {
		return err
	}

	repo := s.repo.WithTx(tx)
	for _, alloc := range allocations {
		kind, id := alloc.Location.Kind, alloc.Location.ID
		if err := repo.UpdateItem(ctx, alloc.ItemID, map[string]any{
			"source_location_type": kind,
			"source_location_id":   id,
			"updated_at":           now,
		}); err != nil {
			return wrapStore(err, "pin item source location")
		}
	}

	terms := s.cfg.PaymentTerms()
	if conn.PaymentTermsOverride != nil {
		terms = time.Duration(*conn.PaymentTermsOverride) * 24 * time.Hour
	}
	updates["payment_due_date"] = now.Add(terms)
	return nil
}

func (s *service) applyReceive(ctx context.Context, tx *gorm.DB, po *models.PurchaseOrder, actor types.Actor, now time.Time, input ReceiveInput, updates map[string]any) error {
	increments := make(map[uuid.UUID]int, len(input.Items))
	for itemID, qty := range input.Items {
		idx := itemIndex(po.Items, itemID)
		if idx < 0 {
			return itemNotFound(itemID)
		}
		item := po.Items[idx]
		if qty < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("received quantity for %s must not be negative", item.SKU))
		}
		if item.ReceivedQuantity+qty > item.Quantity {
			return pkgerrors.New(
				pkgerrors.CodeExcessReceipt,
				fmt.Sprintf("receiving %d of %s exceeds the ordered quantity", qty, item.SKU),
			).WithDetails(map[string]any{
				"item_id":           item.ID.String(),
				"ordered_quantity":  item.Quantity,
				"received_quantity": item.ReceivedQuantity,
				"requested":         qty,
			})
		}
		increments[itemID] = qty
	}

	lines := make([]inventory.Line, 0, len(increments))
	for _, item := range po.Items {
		if qty := increments[item.ID]; qty > 0 {
			lines = append(lines, inventory.Line{ItemID: item.ID, VariantID: item.VariantID, Quantity: qty})
		}
	}
	if input.ActualDeliveryDate != nil {
		updates["actual_delivery_date"] = *input.ActualDeliveryDate
	}
	if len(lines) == 0 {
		delete(updates, "status")
		return nil
	}
	shop := inventory.ShopLocation(po.ShopID)
	if _, err := s.ledger.Receive(ctx, tx, po.BuyerTenantID, shop, lines, s.entry(po, actor)); err != nil {
		return err
	}

	repo := s.repo.WithTx(tx)
	for i := range po.Items {
		item := &po.Items[i]
		qty := increments[item.ID]
		if qty == 0 {
			continue
		}
		item.ReceivedQuantity += qty
		if err := repo.UpdateItem(ctx, item.ID, map[string]any{
			"received_quantity": item.ReceivedQuantity,
			"updated_at":        now,
		}); err != nil {
			return wrapStore(err, "update received quantity")
		}
	}

	updates["status"] = receiptStatus(po.Status, po.Items)
	return nil
}

// receiptStatus aggregates item receipts into the order status.
func receiptStatus(current enums.PurchaseOrderStatus, items []models.PurchaseOrderItem) enums.PurchaseOrderStatus {
	complete, started := true, false
	for _, item := range items {
		if item.ReceivedQuantity < item.Quantity {
			complete = false
		}
		if item.ReceivedQuantity > 0 {
			started = true
		}
	}
	switch {
	case complete && len(items) > 0:
		return enums.PurchaseOrderStatusReceived
	case started:
		return enums.PurchaseOrderStatusPartiallyReceived
	default:
		return current
	}
}

// transition locks the order, checks the actor and the state machine, runs the
// step and stamps the new status. Nothing is written when any check fails.
// The order row is always locked before the inventory rows its step touches.
func (s *service) transition(ctx context.Context, actor types.Actor, poID uuid.UUID, t transition) (*models.PurchaseOrder, error) {
	if err := validation.Struct(actor); err != nil {
		return nil, err
	}

	var from, to enums.PurchaseOrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		po, err := repo.LockByID(ctx, poID)
		if err != nil {
			return wrapLoad(err)
		}
		if err := authorize(actor, po, t.party, t.name); err != nil {
			return err
		}

		from = po.Status
		allowed := from.CanTransitionTo(t.target)
		if t.allow != nil {
			allowed = t.allow(from)
		}
		if !allowed {
			return invalidTransition(t.name, from)
		}

		now := s.now().UTC()
		updates := map[string]any{"status": t.target, "updated_at": now}
		if t.apply != nil {
			if err := t.apply(ctx, tx, po, actor, now, updates); err != nil {
				return err
			}
		}

		next, moved := updates["status"].(enums.PurchaseOrderStatus)
		if !moved {
			to = from
			return wrapStore(repo.Update(ctx, po.ID, updates), "update purchase order")
		}
		to = next
		if !from.CanTransitionTo(to) {
			return invalidTransition(t.name, from)
		}
		stamp(updates, po, to, actor.UserID, now)

		if err := repo.Update(ctx, po.ID, updates); err != nil {
			return wrapStore(err, "update purchase order")
		}
		po.Status = to
		return s.emitTransition(ctx, tx, po, actor, from, to, t.reason, now)
	})
	if err != nil {
		s.reject(err)
		return nil, err
	}

	if to != from {
		s.metrics.IncTransition(to.String())
	}
	if s.logg != nil {
		logCtx := s.logg.WithPurchaseOrder(ctx, poID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"from_status":   from,
			"to_status":     to,
			"actor_user_id": actor.UserID.String(),
		})
		s.logg.Info(logCtx, "purchase order "+strings.ReplaceAll(to.String(), "_", " "))
	}

	po, err := s.repo.FindByID(ctx, poID)
	if err != nil {
		return nil, wrapLoad(err)
	}
	return po, nil
}

// stamp records who moved the order into status and when. Received is stamped only
// on the first arrival.
func stamp(updates map[string]any, po *models.PurchaseOrder, status enums.PurchaseOrderStatus, userID uuid.UUID, now time.Time) {
	var prefix string
	switch status {
	case enums.PurchaseOrderStatusSubmitted:
		prefix = "submitted"
	case enums.PurchaseOrderStatusApproved:
		prefix = "approved"
	case enums.PurchaseOrderStatusProcessing:
		prefix = "processing"
	case enums.PurchaseOrderStatusShipped:
		prefix = "shipped"
	case enums.PurchaseOrderStatusReceived:
		if po.ReceivedAt != nil {
			return
		}
		prefix = "received"
	case enums.PurchaseOrderStatusCompleted:
		prefix = "completed"
	case enums.PurchaseOrderStatusCancelled:
		prefix = "cancelled"
	default:
		return
	}
	updates[prefix+"_at"] = now
	updates[prefix+"_by"] = userID
}

func authorize(actor types.Actor, po *models.PurchaseOrder, p party, action string) error {
	switch p {
	case partySupplier:
		if !actor.ActsFor(po.SupplierTenantID) {
			return forbidden(fmt.Sprintf("only the supplier may %s this order", action))
		}
	default:
		if !actor.ActsFor(po.BuyerTenantID) {
			return forbidden(fmt.Sprintf("only the buyer may %s this order", action))
		}
	}
	return nil
}

func invalidTransition(action string, from enums.PurchaseOrderStatus) error {
	return pkgerrors.New(
		pkgerrors.CodeInvalidTransition,
		fmt.Sprintf("cannot %s a %s purchase order", action, from),
	).WithDetails(map[string]any{
		"status":      from,
		"next_states": from.NextStates(),
	})
}

// sourcedLines maps items to ledger lines on the location pinned at submission.
func sourcedLines(items []models.PurchaseOrderItem) ([]inventory.Line, error) {
	lines := make([]inventory.Line, len(items))
	for i, item := range items {
		if item.SourceLocationType == nil || item.SourceLocationID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("item %s has no reserved source location", item.ID))
		}
		loc := inventory.Location{Kind: *item.SourceLocationType, ID: *item.SourceLocationID}
		lines[i] = inventory.Line{ItemID: item.ID, VariantID: item.VariantID, Quantity: item.Quantity, Source: &loc}
	}
	return lines, nil
}

func (s *service) entry(po *models.PurchaseOrder, actor types.Actor) inventory.Entry {
	return inventory.Entry{Reference: po.PONumber, ActorID: actor.UserID}
}

func (s *service) reject(err error) {
	if typed := pkgerrors.As(err); typed != nil {
		s.metrics.IncRejection(string(typed.Code()))
	}
}
