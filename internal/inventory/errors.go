package inventory

import (
	"fmt"

	"github.com/google/uuid"

	dbpkg "github.com/angelmondragon/supplyledger-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/supplyledger-backend/pkg/errors"
)

func insufficientStock(key Key, available, requested int) error {
	return pkgerrors.New(
		pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for variant %s at %s", key.VariantID, key.Location),
	).WithDetails(map[string]any{
		"variant_id": key.VariantID.String(),
		"location":   key.Location.String(),
		"available":  available,
		"requested":  requested,
	})
}

func insufficientSupplierStock(variantID uuid.UUID, available, requested int) error {
	return pkgerrors.New(
		pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("no supplier location holds %d available units of variant %s", requested, variantID),
	).WithDetails(map[string]any{
		"variant_id": variantID.String(),
		"available":  available,
		"requested":  requested,
	})
}

// wrapStore keeps typed errors and marks store failures as dependency errors.
// Lock waits that timed out or deadlocked are the only ones a caller may retry.
func wrapStore(err error, msg string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	if dbpkg.IsRetryable(err) {
		return wrapped.WithDetails(map[string]any{"retryable": true})
	}
	return wrapped
}
