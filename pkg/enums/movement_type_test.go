package enums

import "testing"

func TestMovementTypeClassification(t *testing.T) {
	if !MovementPOReserved.IsReservation() || !MovementPOReservationReleased.IsReservation() {
		t.Fatal("reservation movements must report IsReservation")
	}
	if MovementPOShipped.IsReservation() {
		t.Fatal("shipment changes quantity")
	}
	if MovementDamage.Direction() != -1 || MovementReturn.Direction() != 1 || MovementAdjustment.Direction() != 0 {
		t.Fatal("unexpected direction")
	}
	if MovementPOShipped.IsManual() || MovementTransferIn.IsManual() || MovementStockTake.IsManual() {
		t.Fatal("system movements must not be recorded manually")
	}
	if !MovementLoss.IsManual() {
		t.Fatal("loss should be manual")
	}
}
