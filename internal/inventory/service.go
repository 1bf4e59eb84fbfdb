package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyledger-backend/pkg/errors"
	"github.com/angelmondragon/supplyledger-backend/pkg/logger"
	"github.com/angelmondragon/supplyledger-backend/pkg/metrics"
	"github.com/angelmondragon/supplyledger-backend/pkg/pagination"
	"github.com/angelmondragon/supplyledger-backend/pkg/types"
	"github.com/angelmondragon/supplyledger-backend/pkg/validation"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records manual stock movements and answers ledger queries.
type Service interface {
	AdjustStock(ctx context.Context, input AdjustStockInput) (*models.StockMovement, error)
	TransferStock(ctx context.Context, input TransferStockInput) ([]models.StockMovement, error)
	StockTake(ctx context.Context, input StockTakeInput) (*models.StockMovement, error)
	GetLocation(ctx context.Context, variantID uuid.UUID, loc Location) (*models.InventoryLocation, error)
	ListMovements(ctx context.Context, variantID uuid.UUID, loc Location, params pagination.Params) (pagination.Page[models.StockMovement], error)
	Reconcile(ctx context.Context, row models.InventoryLocation) (Reconciliation, error)
}

// AdjustStockInput changes on-hand quantity at one location. Quantity is a positive
// amount for directional types and a signed delta for adjustments.
type AdjustStockInput struct {
	VariantID uuid.UUID          `json:"variant_id" validate:"required"`
	Location  Location           `json:"location"`
	Quantity  int                `json:"quantity" validate:"ne=0"`
	Type      enums.MovementType `json:"type" validate:"required"`
	Actor     types.Actor        `json:"actor"`
	Reason    *string            `json:"reason"`
}

// TransferStockInput moves units between two locations of the same tenant.
type TransferStockInput struct {
	VariantID uuid.UUID   `json:"variant_id" validate:"required"`
	From      Location    `json:"from"`
	To        Location    `json:"to"`
	Quantity  int         `json:"quantity" validate:"gt=0"`
	Actor     types.Actor `json:"actor"`
	Reason    *string     `json:"reason"`
}

// StockTakeInput records a physical count.
type StockTakeInput struct {
	VariantID      uuid.UUID   `json:"variant_id" validate:"required"`
	Location       Location    `json:"location"`
	ActualQuantity int         `json:"actual_quantity" validate:"gte=0"`
	Actor          types.Actor `json:"actor"`
	Notes          *string     `json:"notes"`
}

type service struct {
	repo    Repository
	tx      txRunner
	shops   ShopDirectory
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
	now     func() time.Time
}

// NewService wires the stock movement recorder.
func NewService(repo Repository, tx txRunner, shops ShopDirectory, logg *logger.Logger, m *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if shops == nil {
		return nil, fmt.Errorf("shop directory required")
	}
	return &service{repo: repo, tx: tx, shops: shops, logg: logg, metrics: m, now: time.Now}, nil
}

func (s *service) AdjustStock(ctx context.Context, input AdjustStockInput) (*models.StockMovement, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if !input.Type.IsManual() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("movement type %s cannot be recorded manually", input.Type))
	}

	delta := input.Quantity
	if dir := input.Type.Direction(); dir != 0 {
		if input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be positive for %s", input.Type))
		}
		delta = dir * input.Quantity
	}

	key := Key{VariantID: input.VariantID, Location: input.Location}
	entry := Entry{Reference: NewReference(referenceAdjustment, s.now()), ActorID: input.Actor.UserID}

	var movement models.StockMovement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var row *models.InventoryLocation
		var err error
		if delta > 0 {
			row, err = lockForIntake(ctx, repo, s.shops, input.Actor, key)
		} else {
			row, err = repo.LockLocation(ctx, key)
		}
		if err != nil {
			return wrapStore(err, "lock inventory location")
		}
		if row == nil {
			return insufficientStock(key, 0, -delta)
		}
		if err := ensureOwner(row, input.Actor); err != nil {
			return err
		}
		if delta < 0 && row.Available() < -delta {
			return insufficientStock(key, row.Available(), -delta)
		}

		before := row.Quantity
		row.Quantity += delta

		var from, to *uuid.UUID
		if delta > 0 {
			to = &key.Location.ID
		} else {
			from = &key.Location.ID
		}
		movement = buildMovement(row, input.Type, delta, before, entry, deref(input.Reason), from, to, s.now())
		movements := []models.StockMovement{movement}
		if err := persistChanges(ctx, repo, s.metrics, map[uuid.UUID]*models.InventoryLocation{row.ID: row}, movements); err != nil {
			return err
		}
		movement = movements[0]
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logMovement(ctx, "stock adjusted", movement)
	return &movement, nil
}

func (s *service) TransferStock(ctx context.Context, input TransferStockInput) ([]models.StockMovement, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if input.From == input.To {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source and destination must differ")
	}

	fromKey := Key{VariantID: input.VariantID, Location: input.From}
	toKey := Key{VariantID: input.VariantID, Location: input.To}
	entry := Entry{Reference: NewReference(referenceTransfer, s.now()), ActorID: input.Actor.UserID}

	var movements []models.StockMovement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rows := map[Key]*models.InventoryLocation{}
		for _, key := range sortKeys([]Key{fromKey, toKey}) {
			var row *models.InventoryLocation
			var err error
			if key == fromKey {
				row, err = repo.LockLocation(ctx, key)
			} else {
				row, err = lockForIntake(ctx, repo, s.shops, input.Actor, key)
			}
			if err != nil {
				return wrapStore(err, "lock inventory location")
			}
			if row == nil {
				return insufficientStock(fromKey, 0, input.Quantity)
			}
			if err := ensureOwner(row, input.Actor); err != nil {
				return err
			}
			rows[key] = row
		}

		source, dest := rows[fromKey], rows[toKey]
		if source.Available() < input.Quantity {
			return insufficientStock(fromKey, source.Available(), input.Quantity)
		}

		reason := deref(input.Reason)
		outBefore := source.Quantity
		source.Quantity -= input.Quantity
		inBefore := dest.Quantity
		dest.Quantity += input.Quantity

		movements = []models.StockMovement{
			buildMovement(source, enums.MovementTransferOut, -input.Quantity, outBefore, entry, reason, &input.From.ID, &input.To.ID, s.now()),
			buildMovement(dest, enums.MovementTransferIn, input.Quantity, inBefore, entry, reason, &input.From.ID, &input.To.ID, s.now()),
		}
		touched := map[uuid.UUID]*models.InventoryLocation{source.ID: source, dest.ID: dest}
		return persistChanges(ctx, repo, s.metrics, touched, movements)
	})
	if err != nil {
		return nil, err
	}

	for _, mv := range movements {
		s.logMovement(ctx, "stock transferred", mv)
	}
	return movements, nil
}

// StockTake reconciles the recorded quantity with a physical count. A count that
// matches the record writes nothing and returns nil.
func (s *service) StockTake(ctx context.Context, input StockTakeInput) (*models.StockMovement, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	key := Key{VariantID: input.VariantID, Location: input.Location}
	entry := Entry{Reference: NewReference(referenceStockTake, s.now()), ActorID: input.Actor.UserID}

	var movement *models.StockMovement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var row *models.InventoryLocation
		var err error
		if input.ActualQuantity > 0 {
			row, err = lockForIntake(ctx, repo, s.shops, input.Actor, key)
		} else {
			row, err = repo.LockLocation(ctx, key)
		}
		if err != nil {
			return wrapStore(err, "lock inventory location")
		}
		if row == nil {
			return nil
		}
		if err := ensureOwner(row, input.Actor); err != nil {
			return err
		}

		diff := input.ActualQuantity - row.Quantity
		if diff == 0 {
			return nil
		}
		if input.ActualQuantity < row.ReservedQuantity {
			return pkgerrors.New(
				pkgerrors.CodeInsufficientStock,
				fmt.Sprintf("counted %d units but %d are reserved at %s", input.ActualQuantity, row.ReservedQuantity, key.Location),
			).WithDetails(map[string]any{
				"variant_id": key.VariantID.String(),
				"location":   key.Location.String(),
				"counted":    input.ActualQuantity,
				"reserved":   row.ReservedQuantity,
			})
		}

		reason := stockTakeReason(diff, input.Notes)
		before := row.Quantity
		row.Quantity = input.ActualQuantity

		var from, to *uuid.UUID
		if diff > 0 {
			to = &key.Location.ID
		} else {
			from = &key.Location.ID
		}
		movements := []models.StockMovement{buildMovement(row, enums.MovementStockTake, diff, before, entry, reason, from, to, s.now())}
		if err := persistChanges(ctx, repo, s.metrics, map[uuid.UUID]*models.InventoryLocation{row.ID: row}, movements); err != nil {
			return err
		}
		movement = &movements[0]
		return nil
	})
	if err != nil {
		return nil, err
	}

	if movement != nil {
		s.logMovement(ctx, "stock take recorded", *movement)
	}
	return movement, nil
}

func (s *service) GetLocation(ctx context.Context, variantID uuid.UUID, loc Location) (*models.InventoryLocation, error) {
	row, err := s.repo.GetLocation(ctx, Key{VariantID: variantID, Location: loc})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("inventory location %s not found for variant %s", loc, variantID))
	}
	if err != nil {
		return nil, wrapStore(err, "load inventory location")
	}
	return row, nil
}

func (s *service) ListMovements(ctx context.Context, variantID uuid.UUID, loc Location, params pagination.Params) (pagination.Page[models.StockMovement], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.StockMovement]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListMovements(ctx, Key{VariantID: variantID, Location: loc}, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return pagination.Page[models.StockMovement]{}, wrapStore(err, "list stock movements")
	}
	return pagination.Paginate(rows, params.Limit, func(m models.StockMovement) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	}), nil
}

// Reconcile checks the reservation bounds and replays the ledger of one location.
func (s *service) Reconcile(ctx context.Context, row models.InventoryLocation) (Reconciliation, error) {
	return NewAuditor(s.repo).Reconcile(ctx, row)
}

func (s *service) logMovement(ctx context.Context, msg string, mv models.StockMovement) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"variant_id":     mv.VariantID.String(),
		"location_type":  mv.LocationType,
		"location_id":    mv.LocationID.String(),
		"movement_type":  mv.Type,
		"quantity":       mv.Quantity,
		"quantity_after": mv.QuantityAfter,
		"reference":      mv.ReferenceNumber,
		"actor_user_id":  mv.CreatedBy.String(),
	})
	s.logg.Info(logCtx, msg)
}

func stockTakeReason(diff int, notes *string) string {
	reason := fmt.Sprintf("stock take shortage of %d", -diff)
	if diff > 0 {
		reason = fmt.Sprintf("stock take surplus of %d", diff)
	}
	if n := deref(notes); n != "" {
		reason = fmt.Sprintf("%s: %s", reason, n)
	}
	return reason
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
