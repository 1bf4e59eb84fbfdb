package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/supplyledger-backend/pkg/errors"
)

// PriceRequest asks for the unit price of a variant at a quantity.
type PriceRequest struct {
	SupplierTenantID uuid.UUID
	VariantID        uuid.UUID
	Quantity         int
	ConnectionID     *uuid.UUID
}

// Quote is the resolved price of one line.
type Quote struct {
	CatalogItemID        uuid.UUID       `json:"catalog_item_id"`
	VariantID            uuid.UUID       `json:"variant_id"`
	SKU                  string          `json:"sku"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	MinimumOrderQuantity int             `json:"minimum_order_quantity"`
	TierMinQuantity      int             `json:"tier_min_quantity,omitempty"`
	ConnectionTier       bool            `json:"connection_tier"`
}

// MOQViolationDetail exposes the data returned to callers when a quantity is below the minimum.
type MOQViolationDetail struct {
	VariantID    uuid.UUID `json:"variant_id"`
	SKU          string    `json:"sku"`
	RequiredQty  int       `json:"required_qty"`
	RequestedQty int       `json:"requested_qty"`
}

// PriceResolver resolves unit prices from the supplier catalog.
type PriceResolver struct {
	repo Repository
}

// NewPriceResolver wires the default catalog backed resolver.
func NewPriceResolver(repo Repository) (*PriceResolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &PriceResolver{repo: repo}, nil
}

// Quote prices a line and enforces the item's minimum order quantity.
func (p *PriceResolver) Quote(ctx context.Context, req PriceRequest) (*Quote, error) {
	if req.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	item, err := p.repo.FindItem(ctx, req.SupplierTenantID, req.VariantID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !item.Active) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("catalog item not found for variant %s", req.VariantID))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog item")
	}

	if item.MinimumOrderQuantity > 1 && req.Quantity < item.MinimumOrderQuantity {
		return nil, pkgerrors.New(
			pkgerrors.CodeValidation,
			fmt.Sprintf("minimum order quantity for %s is %d", item.SKU, item.MinimumOrderQuantity),
		).WithDetails(map[string]any{
			"violations": []MOQViolationDetail{{
				VariantID:    item.VariantID,
				SKU:          item.SKU,
				RequiredQty:  item.MinimumOrderQuantity,
				RequestedQty: req.Quantity,
			}},
		})
	}

	quote := &Quote{
		CatalogItemID:        item.ID,
		VariantID:            item.VariantID,
		SKU:                  item.SKU,
		UnitPrice:            item.BaseUnitPrice,
		MinimumOrderQuantity: item.MinimumOrderQuantity,
	}
	if tier := selectTier(req.Quantity, req.ConnectionID, item.Tiers); tier != nil {
		quote.UnitPrice = tier.UnitPrice
		quote.TierMinQuantity = tier.MinQuantity
		quote.ConnectionTier = tier.ConnectionID != nil
	}
	return quote, nil
}

// selectTier picks the highest qualifying tier for the connection, falling back to
// the highest qualifying general tier. Tiers of other connections never apply.
func selectTier(qty int, connectionID *uuid.UUID, tiers []models.CatalogPriceTier) *models.CatalogPriceTier {
	var general, specific *models.CatalogPriceTier
	for i := range tiers {
		tier := &tiers[i]
		if tier.MinQuantity > qty {
			continue
		}
		switch {
		case tier.ConnectionID == nil:
			if general == nil || tier.MinQuantity > general.MinQuantity {
				general = tier
			}
		case connectionID != nil && *tier.ConnectionID == *connectionID:
			if specific == nil || tier.MinQuantity > specific.MinQuantity {
				specific = tier
			}
		}
	}
	if specific != nil {
		return specific
	}
	return general
}
