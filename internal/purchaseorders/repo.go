package purchaseorders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/supplyledger-backend/internal/repo"
	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
	"github.com/angelmondragon/supplyledger-backend/pkg/pagination"
)

// ListFilters narrows purchase order queries. Nil fields are ignored.
type ListFilters struct {
	BuyerTenantID    *uuid.UUID
	SupplierTenantID *uuid.UUID
	ShopID           *uuid.UUID
	Status           *enums.PurchaseOrderStatus
}

// Repository defines persistence operations for purchase orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, po *models.PurchaseOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.PurchaseOrder, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateItem(ctx context.Context, item *models.PurchaseOrderItem) error
	UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	ListOverdue(ctx context.Context, now time.Time, after uuid.UUID, limit int) ([]models.PurchaseOrder, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a purchase order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

func (r *repository) Create(ctx context.Context, po *models.PurchaseOrder) error {
	return r.DB(ctx).Omit(clause.Associations).Create(po).Error
}

// FindByID loads the aggregate with items and payments.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := r.DB(ctx).
		Preload("Items", orderedItems).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("paid_at ASC").Order("id ASC")
		}).
		Where("id = ?", id).
		Take(&po).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}

// LockByID locks the order row and loads its items.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := r.Locked(ctx).
		Where("id = ?", id).
		Take(&po).Error
	if err != nil {
		return nil, err
	}
	if err := orderedItems(r.DB(ctx)).
		Where("purchase_order_id = ?", po.ID).
		Find(&po.Items).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

// List returns orders newest first.
func (r *repository) List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.PurchaseOrder, error) {
	q := r.DB(ctx).Model(&models.PurchaseOrder{})
	if filters.BuyerTenantID != nil {
		q = q.Where("buyer_tenant_id = ?", *filters.BuyerTenantID)
	}
	if filters.SupplierTenantID != nil {
		q = q.Where("supplier_tenant_id = ?", *filters.SupplierTenantID)
	}
	if filters.ShopID != nil {
		q = q.Where("shop_id = ?", *filters.ShopID)
	}
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}

	var rows []models.PurchaseOrder
	err := q.Preload("Items", orderedItems).
		Scopes(pagination.Keyset(cursor, pagination.Newest)).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateItem(ctx context.Context, item *models.PurchaseOrderItem) error {
	return r.DB(ctx).Create(item).Error
}

func (r *repository) UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).
		Model(&models.PurchaseOrderItem{}).
		Where("id = ?", itemID).
		Updates(updates).Error
}

func (r *repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.DB(ctx).
		Where("id = ?", itemID).
		Delete(&models.PurchaseOrderItem{}).Error
}

// ListOverdue returns unpaid, still open orders whose payment due date is before now.
func (r *repository) ListOverdue(ctx context.Context, now time.Time, after uuid.UUID, limit int) ([]models.PurchaseOrder, error) {
	var rows []models.PurchaseOrder
	err := r.DB(ctx).
		Where("payment_due_date IS NOT NULL AND payment_due_date < ?", now).
		Where("status NOT IN ?", []enums.PurchaseOrderStatus{enums.PurchaseOrderStatusCancelled, enums.PurchaseOrderStatusCompleted}).
		Where("payment_status IN ?", []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusPartial}).
		Where("id > ?", after).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
