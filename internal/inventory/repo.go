package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/supplyledger-backend/internal/repo"
	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
	"github.com/angelmondragon/supplyledger-backend/pkg/pagination"
)

// Repository persists inventory locations and their movement ledger.
// Lock* methods must run inside a transaction; they issue SELECT ... FOR UPDATE.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockLocation(ctx context.Context, key Key) (*models.InventoryLocation, error)
	LockOrCreateLocation(ctx context.Context, tenantID uuid.UUID, key Key) (*models.InventoryLocation, error)
	LockTenantLocations(ctx context.Context, tenantID, variantID uuid.UUID) ([]models.InventoryLocation, error)
	SaveQuantities(ctx context.Context, row *models.InventoryLocation) error
	InsertMovements(ctx context.Context, movements []models.StockMovement) error
	GetLocation(ctx context.Context, key Key) (*models.InventoryLocation, error)
	ListLocations(ctx context.Context, after uuid.UUID, limit int) ([]models.InventoryLocation, error)
	ListMovements(ctx context.Context, key Key, cursor *pagination.Cursor, limit int) ([]models.StockMovement, error)
	SumMovementDeltas(ctx context.Context, key Key) (int, error)
}

var reservationTypes = []enums.MovementType{enums.MovementPOReserved, enums.MovementPOReservationReleased}

type repository struct {
	repo.Base
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) scoped(ctx context.Context, key Key) *gorm.DB {
	return r.scopedOn(r.DB(ctx), key)
}

func (r *repository) scopedOn(db *gorm.DB, key Key) *gorm.DB {
	return db.Where("variant_id = ? AND location_type = ? AND location_id = ?", key.VariantID, key.Location.Kind, key.Location.ID)
}

// LockLocation returns the locked row, or nil when the location has never held stock.
func (r *repository) LockLocation(ctx context.Context, key Key) (*models.InventoryLocation, error) {
	var row models.InventoryLocation
	err := r.scopedOn(r.Locked(ctx), key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// LockOrCreateLocation inserts an empty row when absent, then locks it.
func (r *repository) LockOrCreateLocation(ctx context.Context, tenantID uuid.UUID, key Key) (*models.InventoryLocation, error) {
	row := models.InventoryLocation{
		TenantID:     tenantID,
		VariantID:    key.VariantID,
		LocationType: key.Location.Kind,
		LocationID:   key.Location.ID,
	}
	if err := r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "variant_id"}, {Name: "location_type"}, {Name: "location_id"}},
			DoNothing: true,
		}).
		Create(&row).Error; err != nil {
		return nil, err
	}

	locked, err := r.LockLocation(ctx, key)
	if err != nil {
		return nil, err
	}
	if locked == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return locked, nil
}

// LockTenantLocations locks every location of the variant owned by the tenant, in lock order.
func (r *repository) LockTenantLocations(ctx context.Context, tenantID, variantID uuid.UUID) ([]models.InventoryLocation, error) {
	var rows []models.InventoryLocation
	err := r.Locked(ctx).
		Where("tenant_id = ? AND variant_id = ?", tenantID, variantID).
		Order("location_type ASC").
		Order("location_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) SaveQuantities(ctx context.Context, row *models.InventoryLocation) error {
	row.UpdatedAt = time.Now().UTC()
	return r.DB(ctx).
		Model(&models.InventoryLocation{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"quantity":          row.Quantity,
			"reserved_quantity": row.ReservedQuantity,
			"updated_at":        row.UpdatedAt,
		}).Error
}

func (r *repository) InsertMovements(ctx context.Context, movements []models.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&movements).Error
}

func (r *repository) GetLocation(ctx context.Context, key Key) (*models.InventoryLocation, error) {
	var row models.InventoryLocation
	if err := r.scoped(ctx, key).Take(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListLocations pages through all locations ordered by id.
func (r *repository) ListLocations(ctx context.Context, after uuid.UUID, limit int) ([]models.InventoryLocation, error) {
	var rows []models.InventoryLocation
	query := r.DB(ctx).Order("id ASC").Limit(limit)
	if after != uuid.Nil {
		query = query.Where("id > ?", after)
	}
	err := query.Find(&rows).Error
	return rows, err
}

// ListMovements returns the ledger of one location in creation order.
func (r *repository) ListMovements(ctx context.Context, key Key, cursor *pagination.Cursor, limit int) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	err := r.scoped(ctx, key).
		Scopes(pagination.Keyset(cursor, pagination.Oldest)).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// SumMovementDeltas adds up every quantity-changing movement of the location.
// Reservation movements carry no delta and are left out.
func (r *repository) SumMovementDeltas(ctx context.Context, key Key) (int, error) {
	var total int64
	err := r.scoped(ctx, key).
		Model(&models.StockMovement{}).
		Where("type NOT IN ?", reservationTypes).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return int(total), err
}
