package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyledger-backend/pkg/errors"
	"github.com/angelmondragon/supplyledger-backend/pkg/types"
)

// ShopDirectory resolves which tenant owns a shop.
type ShopDirectory interface {
	ShopTenant(ctx context.Context, shopID uuid.UUID) (uuid.UUID, error)
}

// ownerOf returns the tenant that owns loc. Shops are looked up in the directory;
// a warehouse belongs to the tenant recording stock into it.
func ownerOf(ctx context.Context, shops ShopDirectory, loc Location, recorder uuid.UUID) (uuid.UUID, error) {
	if loc.Kind != enums.LocationKindShop {
		return recorder, nil
	}
	owner, err := shops.ShopTenant(ctx, loc.ID)
	if err != nil {
		return uuid.Nil, wrapStore(err, "resolve shop owner")
	}
	if owner == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("shop %s has no owner", loc.ID))
	}
	return owner, nil
}

// lockForIntake locks the row stock is about to be added to, creating it for its
// owner when absent. Only the owner may open a location.
func lockForIntake(ctx context.Context, repo Repository, shops ShopDirectory, actor types.Actor, key Key) (*models.InventoryLocation, error) {
	owner, err := ownerOf(ctx, shops, key.Location, actor.TenantID)
	if err != nil {
		return nil, err
	}
	if !actor.ActsFor(owner) {
		return nil, foreignLocation(key.Location)
	}
	row, err := repo.LockOrCreateLocation(ctx, owner, key)
	if err != nil {
		return nil, wrapStore(err, "lock inventory location")
	}
	return row, nil
}

func ensureOwner(row *models.InventoryLocation, actor types.Actor) error {
	if !actor.ActsFor(row.TenantID) {
		return foreignLocation(LocationOf(*row))
	}
	return nil
}

func foreignLocation(loc Location) error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "inventory location belongs to another tenant").
		WithDetails(map[string]any{"location": loc.String()})
}
