package enums

import "fmt"

// LocationKind identifies what an inventory location id refers to.
type LocationKind string

const (
	LocationKindShop      LocationKind = "shop"
	LocationKindWarehouse LocationKind = "warehouse"
)

var validLocationKinds = []LocationKind{
	LocationKindShop,
	LocationKindWarehouse,
}

// String implements fmt.Stringer.
func (l LocationKind) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LocationKind.
func (l LocationKind) IsValid() bool {
	for _, candidate := range validLocationKinds {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLocationKind converts raw input into a LocationKind.
func ParseLocationKind(value string) (LocationKind, error) {
	for _, candidate := range validLocationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid location kind %q", value)
}
