package credit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/internal/repo"
	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
)

// Repository reads connections and the open orders between a buyer and a supplier.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindConnection(ctx context.Context, buyerTenantID, supplierTenantID uuid.UUID) (*models.SupplierConnection, error)
	CreateConnection(ctx context.Context, conn *models.SupplierConnection) error
	LockOpenOrders(ctx context.Context, buyerTenantID, supplierTenantID uuid.UUID) ([]models.PurchaseOrder, error)
	SumPayments(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a credit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

// FindConnection returns nil when the pair has no connection.
func (r *repository) FindConnection(ctx context.Context, buyerTenantID, supplierTenantID uuid.UUID) (*models.SupplierConnection, error) {
	var conn models.SupplierConnection
	err := r.DB(ctx).
		Where("buyer_tenant_id = ? AND supplier_tenant_id = ?", buyerTenantID, supplierTenantID).
		Take(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *repository) CreateConnection(ctx context.Context, conn *models.SupplierConnection) error {
	return r.DB(ctx).Create(conn).Error
}

// LockOpenOrders locks every order of the pair that still carries exposure, in id order.
func (r *repository) LockOpenOrders(ctx context.Context, buyerTenantID, supplierTenantID uuid.UUID) ([]models.PurchaseOrder, error) {
	var orders []models.PurchaseOrder
	err := r.Locked(ctx).
		Where("buyer_tenant_id = ? AND supplier_tenant_id = ?", buyerTenantID, supplierTenantID).
		Where("status <> ? AND payment_status <> ?", enums.PurchaseOrderStatusCancelled, enums.PaymentStatusPaid).
		Order("id ASC").
		Find(&orders).Error
	return orders, err
}

// SumPayments totals the payment ledger per order.
func (r *repository) SumPayments(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	sums := make(map[uuid.UUID]decimal.Decimal, len(orderIDs))
	if len(orderIDs) == 0 {
		return sums, nil
	}
	var payments []models.PurchaseOrderPayment
	if err := r.DB(ctx).
		Select("purchase_order_id", "amount").
		Where("purchase_order_id IN ?", orderIDs).
		Find(&payments).Error; err != nil {
		return nil, err
	}
	for _, p := range payments {
		sums[p.PurchaseOrderID] = sums[p.PurchaseOrderID].Add(p.Amount)
	}
	return sums, nil
}
