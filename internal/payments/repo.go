package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/internal/repo"
	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
)

// Repository persists the append-only payment ledger of purchase orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockOrder(ctx context.Context, poID uuid.UUID) (*models.PurchaseOrder, error)
	FindOrder(ctx context.Context, poID uuid.UUID) (*models.PurchaseOrder, error)
	Insert(ctx context.Context, payment *models.PurchaseOrderPayment) error
	ListByOrder(ctx context.Context, poID uuid.UUID) ([]models.PurchaseOrderPayment, error)
	UpdateOrder(ctx context.Context, poID uuid.UUID, updates map[string]any) error
}

type repository struct {
	repo.Base
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) LockOrder(ctx context.Context, poID uuid.UUID) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := r.Locked(ctx).
		Where("id = ?", poID).
		Take(&po).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *repository) FindOrder(ctx context.Context, poID uuid.UUID) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	if err := r.DB(ctx).Where("id = ?", poID).Take(&po).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *repository) Insert(ctx context.Context, payment *models.PurchaseOrderPayment) error {
	return r.DB(ctx).Create(payment).Error
}

// ListByOrder returns payments oldest first.
func (r *repository) ListByOrder(ctx context.Context, poID uuid.UUID) ([]models.PurchaseOrderPayment, error) {
	var rows []models.PurchaseOrderPayment
	err := r.DB(ctx).
		Where("purchase_order_id = ?", poID).
		Order("paid_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateOrder(ctx context.Context, poID uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ?", poID).
		Updates(updates).Error
}
