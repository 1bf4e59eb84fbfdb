package inventory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
)

// Location identifies where stock is held.
type Location struct {
	Kind enums.LocationKind `json:"kind" validate:"required,oneof=shop warehouse"`
	ID   uuid.UUID          `json:"id" validate:"required"`
}

// ShopLocation returns the location of a shop.
func ShopLocation(id uuid.UUID) Location {
	return Location{Kind: enums.LocationKindShop, ID: id}
}

// WarehouseLocation returns the location of a warehouse.
func WarehouseLocation(id uuid.UUID) Location {
	return Location{Kind: enums.LocationKindWarehouse, ID: id}
}

// LocationOf returns the location a row describes.
func LocationOf(row models.InventoryLocation) Location {
	return Location{Kind: row.LocationType, ID: row.LocationID}
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%s", l.Kind, l.ID)
}

// Key identifies one inventory_locations row.
type Key struct {
	VariantID uuid.UUID
	Location  Location
}

func keyOf(row models.InventoryLocation) Key {
	return Key{VariantID: row.VariantID, Location: LocationOf(row)}
}

func (k Key) less(other Key) bool {
	if c := strings.Compare(k.VariantID.String(), other.VariantID.String()); c != 0 {
		return c < 0
	}
	if k.Location.Kind != other.Location.Kind {
		return k.Location.Kind < other.Location.Kind
	}
	return k.Location.ID.String() < other.Location.ID.String()
}

// sortKeys orders keys the way every operation acquires row locks.
func sortKeys(keys []Key) []Key {
	seen := make(map[Key]struct{}, len(keys))
	out := make([]Key, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}
