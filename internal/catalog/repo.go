package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/internal/repo"
	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
)

// Repository reads supplier catalog items and their price tiers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindItem(ctx context.Context, supplierTenantID, variantID uuid.UUID) (*models.CatalogItem, error)
	Create(ctx context.Context, item *models.CatalogItem) error
}

type repository struct {
	repo.Base
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

// FindItem returns the supplier's catalog entry for the variant with its tiers preloaded.
func (r *repository) FindItem(ctx context.Context, supplierTenantID, variantID uuid.UUID) (*models.CatalogItem, error) {
	var item models.CatalogItem
	err := r.DB(ctx).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("min_quantity ASC")
		}).
		Where("supplier_tenant_id = ? AND variant_id = ?", supplierTenantID, variantID).
		Take(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) Create(ctx context.Context, item *models.CatalogItem) error {
	return r.DB(ctx).Create(item).Error
}
