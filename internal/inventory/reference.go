package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	referenceAdjustment = "ADJ"
	referenceTransfer   = "TRF"
	referenceStockTake  = "STK"
)

// NewReference builds a human readable reference such as PO-20260314-3F9A1C.
func NewReference(prefix string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, at.UTC().Format("20060102"), suffix)
}
