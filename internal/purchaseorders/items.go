package purchaseorders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/internal/catalog"
	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/supplyledger-backend/pkg/errors"
	"github.com/angelmondragon/supplyledger-backend/pkg/types"
	"github.com/angelmondragon/supplyledger-backend/pkg/validation"
)

type draftEdit func(ctx context.Context, repo Repository, po *models.PurchaseOrder, conn *models.SupplierConnection) error

func (s *service) AddItem(ctx context.Context, actor types.Actor, poID uuid.UUID, input AddItemInput) (*models.PurchaseOrder, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	return s.editDraft(ctx, actor, poID, "purchase order item added", func(ctx context.Context, repo Repository, po *models.PurchaseOrder, conn *models.SupplierConnection) error {
		for i := range po.Items {
			item := &po.Items[i]
			if item.VariantID != input.VariantID {
				continue
			}
			return s.repriceItem(ctx, repo, po, conn, item, item.Quantity+input.Quantity)
		}

		quote, err := s.quote(ctx, po, conn, input.VariantID, input.Quantity)
		if err != nil {
			return err
		}
		item := models.PurchaseOrderItem{
			PurchaseOrderID: po.ID,
			VariantID:       input.VariantID,
			CatalogItemID:   quote.CatalogItemID,
			SKU:             quote.SKU,
			Quantity:        input.Quantity,
			UnitPrice:       quote.UnitPrice,
			TotalPrice:      lineTotal(quote.UnitPrice, input.Quantity),
		}
		if err := repo.CreateItem(ctx, &item); err != nil {
			return wrapStore(err, "create purchase order item")
		}
		po.Items = append(po.Items, item)
		return nil
	})
}

func (s *service) UpdateItem(ctx context.Context, actor types.Actor, poID, itemID uuid.UUID, input UpdateItemInput) (*models.PurchaseOrder, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	return s.editDraft(ctx, actor, poID, "purchase order item updated", func(ctx context.Context, repo Repository, po *models.PurchaseOrder, conn *models.SupplierConnection) error {
		idx := itemIndex(po.Items, itemID)
		if idx < 0 {
			return itemNotFound(itemID)
		}
		return s.repriceItem(ctx, repo, po, conn, &po.Items[idx], input.Quantity)
	})
}

func (s *service) RemoveItem(ctx context.Context, actor types.Actor, poID, itemID uuid.UUID) (*models.PurchaseOrder, error) {
	return s.editDraft(ctx, actor, poID, "purchase order item removed", func(ctx context.Context, repo Repository, po *models.PurchaseOrder, _ *models.SupplierConnection) error {
		idx := itemIndex(po.Items, itemID)
		if idx < 0 {
			return itemNotFound(itemID)
		}
		if err := repo.DeleteItem(ctx, itemID); err != nil {
			return wrapStore(err, "delete purchase order item")
		}
		po.Items = append(po.Items[:idx], po.Items[idx+1:]...)
		return nil
	})
}

// editDraft runs one item edit on a locked draft and refreshes the order total.
// The open orders of the pair are locked before the draft itself so concurrent
// edits on sibling orders queue in id order. A grown total is checked against the
// connection's credit limit before it is saved.
func (s *service) editDraft(ctx context.Context, actor types.Actor, poID uuid.UUID, msg string, edit draftEdit) (*models.PurchaseOrder, error) {
	if err := validation.Struct(actor); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		head, err := repo.FindByID(ctx, poID)
		if err != nil {
			return wrapLoad(err)
		}
		if !actor.ActsFor(head.BuyerTenantID) {
			return forbidden("only the buyer may change items")
		}
		conn, err := s.credit.Connection(ctx, tx, head.BuyerTenantID, head.SupplierTenantID)
		if err != nil {
			return err
		}
		if conn.CreditLimit.Valid {
			if err := s.credit.LockPair(ctx, tx, head.BuyerTenantID, head.SupplierTenantID); err != nil {
				return err
			}
		}

		po, err := repo.LockByID(ctx, poID)
		if err != nil {
			return wrapLoad(err)
		}
		if !po.Status.IsEditable() {
			return pkgerrors.New(
				pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("items cannot be changed while the order is %s", po.Status),
			)
		}

		previous := po.TotalAmount
		if err := edit(ctx, repo, po, conn); err != nil {
			return err
		}
		total := orderTotal(po.Items)
		if total.GreaterThan(previous) {
			if err := s.credit.EnsureWithinLimit(ctx, tx, conn, po.ID, total); err != nil {
				return err
			}
		}
		return wrapStore(repo.Update(ctx, po.ID, map[string]any{
			"total_amount": total,
			"updated_at":   s.now().UTC(),
		}), "update purchase order total")
	})
	if err != nil {
		s.reject(err)
		return nil, err
	}

	po, err := s.repo.FindByID(ctx, poID)
	if err != nil {
		return nil, wrapLoad(err)
	}
	if s.logg != nil {
		logCtx := s.logg.WithPurchaseOrder(ctx, po.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"items":        len(po.Items),
			"total_amount": po.TotalAmount.StringFixed(2),
		})
		s.logg.Info(logCtx, msg)
	}
	return po, nil
}

func (s *service) quote(ctx context.Context, po *models.PurchaseOrder, conn *models.SupplierConnection, variantID uuid.UUID, qty int) (*catalog.Quote, error) {
	connectionID := conn.ID
	return s.prices.Quote(ctx, catalog.PriceRequest{
		SupplierTenantID: po.SupplierTenantID,
		VariantID:        variantID,
		Quantity:         qty,
		ConnectionID:     &connectionID,
	})
}

// repriceItem sets a new quantity and re-quotes the line, since the tier may change.
func (s *service) repriceItem(ctx context.Context, repo Repository, po *models.PurchaseOrder, conn *models.SupplierConnection, item *models.PurchaseOrderItem, qty int) error {
	quote, err := s.quote(ctx, po, conn, item.VariantID, qty)
	if err != nil {
		return err
	}
	item.Quantity = qty
	item.UnitPrice = quote.UnitPrice
	item.TotalPrice = lineTotal(quote.UnitPrice, qty)
	item.CatalogItemID = quote.CatalogItemID
	item.SKU = quote.SKU
	return wrapStore(repo.UpdateItem(ctx, item.ID, map[string]any{
		"quantity":        item.Quantity,
		"unit_price":      item.UnitPrice,
		"total_price":     item.TotalPrice,
		"catalog_item_id": item.CatalogItemID,
		"sku":             item.SKU,
		"updated_at":      s.now().UTC(),
	}), "update purchase order item")
}

func lineTotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

func orderTotal(items []models.PurchaseOrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalPrice)
	}
	return total
}

func itemIndex(items []models.PurchaseOrderItem, itemID uuid.UUID) int {
	for i := range items {
		if items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func itemNotFound(itemID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("purchase order item %s not found", itemID))
}

func forbidden(msg string) error {
	return pkgerrors.New(pkgerrors.CodeForbidden, msg)
}
