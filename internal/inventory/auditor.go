package inventory

import (
	"context"
	"fmt"

	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
)

// Reconciliation compares a location row with its movement ledger.
type Reconciliation struct {
	Key            Key
	Quantity       int
	Reserved       int
	LedgerQuantity int
	Issues         []string
}

// OK reports whether the location passed every check.
func (r Reconciliation) OK() bool {
	return len(r.Issues) == 0
}

// Auditor replays location ledgers. It only reads through the repository.
type Auditor struct {
	repo Repository
}

// NewAuditor returns an auditor reading through repo.
func NewAuditor(repo Repository) *Auditor {
	return &Auditor{repo: repo}
}

// Reconcile checks the reservation bounds and replays the ledger of one location.
func (a *Auditor) Reconcile(ctx context.Context, row models.InventoryLocation) (Reconciliation, error) {
	key := keyOf(row)
	sum, err := a.repo.SumMovementDeltas(ctx, key)
	if err != nil {
		return Reconciliation{}, wrapStore(err, "sum stock movements")
	}

	result := Reconciliation{Key: key, Quantity: row.Quantity, Reserved: row.ReservedQuantity, LedgerQuantity: sum}
	if row.ReservedQuantity < 0 {
		result.Issues = append(result.Issues, "reserved quantity is negative")
	}
	if row.ReservedQuantity > row.Quantity {
		result.Issues = append(result.Issues, "reserved quantity exceeds on-hand quantity")
	}
	if sum != row.Quantity {
		result.Issues = append(result.Issues, fmt.Sprintf("ledger reconstructs %d units but location holds %d", sum, row.Quantity))
	}
	return result, nil
}
