package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyledger-backend/pkg/errors"
	"github.com/angelmondragon/supplyledger-backend/pkg/logger"
	"github.com/angelmondragon/supplyledger-backend/pkg/metrics"
)

// Line is one purchase order line as the ledger sees it.
type Line struct {
	ItemID    uuid.UUID
	VariantID uuid.UUID
	Quantity  int
	// Source is the supplier location pinned at reservation time.
	Source *Location
}

// Allocation records which supplier location a line was reserved against.
type Allocation struct {
	ItemID   uuid.UUID
	Location Location
}

// Entry carries the bookkeeping shared by every movement of one ledger call.
type Entry struct {
	Reference string
	ActorID   uuid.UUID
}

// Ledger applies purchase order stock effects inside a caller-owned transaction.
// Every method locks the rows it touches in key order and either applies all lines
// or returns an error without mutating anything.
type Ledger struct {
	repo    Repository
	shops   ShopDirectory
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
	now     func() time.Time
}

// NewLedger wires the purchase order facing side of the inventory ledger.
func NewLedger(repo Repository, shops ShopDirectory, logg *logger.Logger, m *metrics.LedgerMetrics) (*Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if shops == nil {
		return nil, fmt.Errorf("shop directory required")
	}
	return &Ledger{repo: repo, shops: shops, logg: logg, metrics: m, now: time.Now}, nil
}

// Reserve holds stock for every line on a location of the supplier with enough
// available units.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, supplierTenantID uuid.UUID, lines []Line, entry Entry) ([]Allocation, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if err := validateLines(lines); err != nil {
		return nil, err
	}
	repo := l.repo.WithTx(tx)

	variants := distinctVariants(lines)
	candidates := make(map[uuid.UUID][]*models.InventoryLocation, len(variants))
	for _, variantID := range variants {
		rows, err := repo.LockTenantLocations(ctx, supplierTenantID, variantID)
		if err != nil {
			return nil, wrapStore(err, "lock supplier inventory")
		}
		ptrs := make([]*models.InventoryLocation, len(rows))
		for i := range rows {
			ptrs[i] = &rows[i]
		}
		candidates[variantID] = ptrs
	}

	touched := map[uuid.UUID]*models.InventoryLocation{}
	allocations := make([]Allocation, 0, len(lines))
	movements := make([]models.StockMovement, 0, len(lines))
	for _, line := range lines {
		row := pickLocation(candidates[line.VariantID], line.Quantity)
		if row == nil {
			return nil, insufficientSupplierStock(line.VariantID, maxAvailable(candidates[line.VariantID]), line.Quantity)
		}
		row.ReservedQuantity += line.Quantity
		touched[row.ID] = row

		loc := LocationOf(*row)
		allocations = append(allocations, Allocation{ItemID: line.ItemID, Location: loc})
		movements = append(movements, l.movement(row, enums.MovementPOReserved, 0, row.Quantity, entry,
			fmt.Sprintf("reserved %d for %s", line.Quantity, entry.Reference), &loc.ID, nil))
	}

	if err := l.persist(ctx, repo, touched, movements); err != nil {
		return nil, err
	}
	return allocations, nil
}

// Ship decrements on-hand stock and the matching reservation for every line.
// Stock is re-validated under lock first; a single short line fails the whole shipment.
func (l *Ledger) Ship(ctx context.Context, tx *gorm.DB, supplierTenantID uuid.UUID, lines []Line, entry Entry) ([]models.StockMovement, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if err := validateLines(lines); err != nil {
		return nil, err
	}
	repo := l.repo.WithTx(tx)

	rows, err := l.lockSources(ctx, repo, supplierTenantID, lines)
	if err != nil {
		return nil, err
	}

	demand := map[Key]int{}
	for _, line := range lines {
		demand[Key{VariantID: line.VariantID, Location: *line.Source}] += line.Quantity
	}
	for _, key := range sortKeys(keysOf(demand)) {
		if row := rows[key]; row.Quantity < demand[key] {
			return nil, insufficientStock(key, row.Quantity, demand[key])
		}
	}

	touched := map[uuid.UUID]*models.InventoryLocation{}
	movements := make([]models.StockMovement, 0, len(lines))
	for _, line := range lines {
		key := Key{VariantID: line.VariantID, Location: *line.Source}
		row := rows[key]
		before := row.Quantity
		row.Quantity -= line.Quantity
		l.releaseReservation(ctx, row, line.Quantity, entry)
		touched[row.ID] = row

		movements = append(movements, l.movement(row, enums.MovementPOShipped, -line.Quantity, before, entry,
			fmt.Sprintf("shipped %d for %s", line.Quantity, entry.Reference), &key.Location.ID, nil))
	}

	if err := l.persist(ctx, repo, touched, movements); err != nil {
		return nil, err
	}
	return movements, nil
}

// Release gives back the reservation of every line.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, supplierTenantID uuid.UUID, lines []Line, entry Entry) ([]models.StockMovement, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if err := validateLines(lines); err != nil {
		return nil, err
	}
	repo := l.repo.WithTx(tx)

	rows, err := l.lockSources(ctx, repo, supplierTenantID, lines)
	if err != nil {
		return nil, err
	}

	touched := map[uuid.UUID]*models.InventoryLocation{}
	movements := make([]models.StockMovement, 0, len(lines))
	for _, line := range lines {
		key := Key{VariantID: line.VariantID, Location: *line.Source}
		row := rows[key]
		released := l.releaseReservation(ctx, row, line.Quantity, entry)
		touched[row.ID] = row

		movements = append(movements, l.movement(row, enums.MovementPOReservationReleased, 0, row.Quantity, entry,
			fmt.Sprintf("released %d for %s", released, entry.Reference), &key.Location.ID, nil))
	}

	if err := l.persist(ctx, repo, touched, movements); err != nil {
		return nil, err
	}
	return movements, nil
}

// Receive adds received units to the buyer's shop, creating locations as needed.
// The shop and every row touched must belong to the buyer. Lines with a zero
// quantity are skipped.
func (l *Ledger) Receive(ctx context.Context, tx *gorm.DB, buyerTenantID uuid.UUID, shop Location, lines []Line, entry Entry) ([]models.StockMovement, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	repo := l.repo.WithTx(tx)

	owner, err := ownerOf(ctx, l.shops, shop, buyerTenantID)
	if err != nil {
		return nil, err
	}
	if owner != buyerTenantID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("shop %s does not belong to the buyer", shop.ID))
	}

	intake := map[Key]int{}
	for _, line := range lines {
		if line.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "received quantity must not be negative")
		}
		if line.Quantity == 0 {
			continue
		}
		intake[Key{VariantID: line.VariantID, Location: shop}] += line.Quantity
	}

	rows := map[Key]*models.InventoryLocation{}
	for _, key := range sortKeys(keysOf(intake)) {
		row, err := repo.LockOrCreateLocation(ctx, buyerTenantID, key)
		if err != nil {
			return nil, wrapStore(err, "lock buyer inventory")
		}
		if row.TenantID != buyerTenantID {
			return nil, foreignLocation(key.Location)
		}
		rows[key] = row
	}

	touched := map[uuid.UUID]*models.InventoryLocation{}
	movements := make([]models.StockMovement, 0, len(lines))
	for _, line := range lines {
		if line.Quantity == 0 {
			continue
		}
		row := rows[Key{VariantID: line.VariantID, Location: shop}]
		before := row.Quantity
		row.Quantity += line.Quantity
		touched[row.ID] = row

		movements = append(movements, l.movement(row, enums.MovementPOReceived, line.Quantity, before, entry,
			fmt.Sprintf("received %d for %s", line.Quantity, entry.Reference), nil, &shop.ID))
	}

	if err := l.persist(ctx, repo, touched, movements); err != nil {
		return nil, err
	}
	return movements, nil
}

// releaseReservation lowers the reservation by up to qty and never below zero.
// A shortfall means reservation and order disagree; it is logged, not rejected.
func (l *Ledger) releaseReservation(ctx context.Context, row *models.InventoryLocation, qty int, entry Entry) int {
	released := qty
	if row.ReservedQuantity < qty {
		released = row.ReservedQuantity
		if l.logg != nil {
			logCtx := l.logg.WithFields(ctx, map[string]any{
				"variant_id": row.VariantID.String(),
				"location":   LocationOf(*row).String(),
				"reserved":   row.ReservedQuantity,
				"expected":   qty,
				"reference":  entry.Reference,
			})
			l.logg.Warn(logCtx, "reservation smaller than released quantity")
		}
	}
	row.ReservedQuantity -= released
	return released
}

func (l *Ledger) lockSources(ctx context.Context, repo Repository, supplierTenantID uuid.UUID, lines []Line) (map[Key]*models.InventoryLocation, error) {
	keys := make([]Key, 0, len(lines))
	for _, line := range lines {
		if line.Source == nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("item %s has no reserved source location", line.ItemID))
		}
		keys = append(keys, Key{VariantID: line.VariantID, Location: *line.Source})
	}

	rows := make(map[Key]*models.InventoryLocation, len(keys))
	for _, key := range sortKeys(keys) {
		row, err := repo.LockLocation(ctx, key)
		if err != nil {
			return nil, wrapStore(err, "lock supplier inventory")
		}
		if row == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("inventory location %s not found for variant %s", key.Location, key.VariantID))
		}
		if row.TenantID != supplierTenantID {
			return nil, foreignLocation(key.Location)
		}
		rows[key] = row
	}
	return rows, nil
}

func (l *Ledger) persist(ctx context.Context, repo Repository, touched map[uuid.UUID]*models.InventoryLocation, movements []models.StockMovement) error {
	return persistChanges(ctx, repo, l.metrics, touched, movements)
}

func (l *Ledger) movement(row *models.InventoryLocation, movementType enums.MovementType, delta, before int, entry Entry, reason string, from, to *uuid.UUID) models.StockMovement {
	return buildMovement(row, movementType, delta, before, entry, reason, from, to, l.now())
}

func persistChanges(ctx context.Context, repo Repository, m *metrics.LedgerMetrics, touched map[uuid.UUID]*models.InventoryLocation, movements []models.StockMovement) error {
	rows := make([]*models.InventoryLocation, 0, len(touched))
	for _, row := range touched {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return keyOf(*rows[i]).less(keyOf(*rows[j])) })

	for _, row := range rows {
		if row.ReservedQuantity < 0 || row.ReservedQuantity > row.Quantity {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("inventory invariant violated at %s", LocationOf(*row))).
				WithDetails(map[string]any{"quantity": row.Quantity, "reserved_quantity": row.ReservedQuantity})
		}
		if err := repo.SaveQuantities(ctx, row); err != nil {
			return wrapStore(err, "update inventory location")
		}
	}
	if err := repo.InsertMovements(ctx, movements); err != nil {
		return wrapStore(err, "insert stock movements")
	}

	counts := map[enums.MovementType]int{}
	for _, mv := range movements {
		counts[mv.Type]++
	}
	for movementType, n := range counts {
		m.AddMovements(movementType.String(), n)
	}
	return nil
}

func buildMovement(row *models.InventoryLocation, movementType enums.MovementType, delta, before int, entry Entry, reason string, from, to *uuid.UUID, at time.Time) models.StockMovement {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	return models.StockMovement{
		VariantID:       row.VariantID,
		LocationType:    row.LocationType,
		LocationID:      row.LocationID,
		FromLocationID:  from,
		ToLocationID:    to,
		Type:            movementType,
		Quantity:        delta,
		QuantityBefore:  before,
		QuantityAfter:   before + delta,
		ReferenceNumber: entry.Reference,
		Reason:          reasonPtr,
		CreatedBy:       entry.ActorID,
		CreatedAt:       at.UTC(),
	}
}

func validateLines(lines []Line) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	for _, line := range lines {
		if line.VariantID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line variant is required")
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
	}
	return nil
}

func pickLocation(rows []*models.InventoryLocation, qty int) *models.InventoryLocation {
	for _, row := range rows {
		if row.Available() >= qty {
			return row
		}
	}
	return nil
}

func maxAvailable(rows []*models.InventoryLocation) int {
	best := 0
	for _, row := range rows {
		if row.Available() > best {
			best = row.Available()
		}
	}
	return best
}

func distinctVariants(lines []Line) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	out := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.VariantID]; ok {
			continue
		}
		seen[line.VariantID] = struct{}{}
		out = append(out, line.VariantID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func keysOf(m map[Key]int) []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
