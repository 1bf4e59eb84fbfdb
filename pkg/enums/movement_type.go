package enums

import "fmt"

// MovementType classifies a stock_movements ledger entry.
type MovementType string

const (
	MovementPurchase              MovementType = "purchase"
	MovementSale                  MovementType = "sale"
	MovementAdjustment            MovementType = "adjustment"
	MovementTransferIn            MovementType = "transfer_in"
	MovementTransferOut           MovementType = "transfer_out"
	MovementReturn                MovementType = "return"
	MovementDamage                MovementType = "damage"
	MovementLoss                  MovementType = "loss"
	MovementStockTake             MovementType = "stock_take"
	MovementPOReserved            MovementType = "po_reserved"
	MovementPOReservationReleased MovementType = "po_reservation_released"
	MovementPOShipped             MovementType = "po_shipped"
	MovementPOReceived            MovementType = "po_received"
)

var validMovementTypes = []MovementType{
	MovementPurchase,
	MovementSale,
	MovementAdjustment,
	MovementTransferIn,
	MovementTransferOut,
	MovementReturn,
	MovementDamage,
	MovementLoss,
	MovementStockTake,
	MovementPOReserved,
	MovementPOReservationReleased,
	MovementPOShipped,
	MovementPOReceived,
}

// String implements fmt.Stringer.
func (m MovementType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementType.
func (m MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsReservation reports whether the movement only audits a reservation change.
// Reservation movements always carry a zero delta.
func (m MovementType) IsReservation() bool {
	return m == MovementPOReserved || m == MovementPOReservationReleased
}

// Direction returns the sign a manual adjustment of this type applies to
// on-hand quantity: +1 increases, -1 decreases, 0 means either (adjustment).
func (m MovementType) Direction() int {
	switch m {
	case MovementPurchase, MovementReturn, MovementTransferIn, MovementPOReceived:
		return 1
	case MovementSale, MovementDamage, MovementLoss, MovementTransferOut, MovementPOShipped:
		return -1
	default:
		return 0
	}
}

// IsManual reports whether the type may be recorded through a direct stock adjustment.
func (m MovementType) IsManual() bool {
	switch m {
	case MovementPurchase, MovementSale, MovementAdjustment, MovementReturn, MovementDamage, MovementLoss:
		return true
	default:
		return false
	}
}

// ParseMovementType converts raw input into a MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}
