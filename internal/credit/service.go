package credit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/supplyledger-backend/pkg/errors"
	"github.com/angelmondragon/supplyledger-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Exposure is the outstanding amount a buyer owes a supplier.
type Exposure struct {
	BuyerTenantID    uuid.UUID           `json:"buyer_tenant_id"`
	SupplierTenantID uuid.UUID           `json:"supplier_tenant_id"`
	Outstanding      decimal.Decimal     `json:"outstanding"`
	CreditLimit      decimal.NullDecimal `json:"credit_limit"`
	OpenOrders       int                 `json:"open_orders"`
}

// Calculator sums outstanding exposure from the payment ledger and enforces credit limits.
type Calculator struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewCalculator wires the exposure calculator.
func NewCalculator(repo Repository, tx txRunner, logg *logger.Logger) (*Calculator, error) {
	if repo == nil {
		return nil, fmt.Errorf("credit repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Calculator{repo: repo, tx: tx, logg: logg}, nil
}

// Connection returns the connection for the pair or a configuration error when none exists.
func (c *Calculator) Connection(ctx context.Context, tx *gorm.DB, buyerTenantID, supplierTenantID uuid.UUID) (*models.SupplierConnection, error) {
	conn, err := c.repo.WithTx(tx).FindConnection(ctx, buyerTenantID, supplierTenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier connection")
	}
	if conn == nil || !conn.Active {
		return nil, pkgerrors.New(
			pkgerrors.CodeConfiguration,
			fmt.Sprintf("no active connection between buyer %s and supplier %s", buyerTenantID, supplierTenantID),
		)
	}
	return conn, nil
}

// LockPair locks the open orders of the pair in id order. Callers that will later
// lock one of those orders individually take this lock first.
func (c *Calculator) LockPair(ctx context.Context, tx *gorm.DB, buyerTenantID, supplierTenantID uuid.UUID) error {
	if _, err := c.repo.WithTx(tx).LockOpenOrders(ctx, buyerTenantID, supplierTenantID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock open purchase orders")
	}
	return nil
}

// CalculateOutstandingAmount locks and sums total minus payments over every open order
// of the pair inside tx. The locks are held until tx completes.
func (c *Calculator) CalculateOutstandingAmount(ctx context.Context, tx *gorm.DB, buyerTenantID, supplierTenantID uuid.UUID, excludePOID *uuid.UUID) (decimal.Decimal, int, error) {
	repo := c.repo.WithTx(tx)
	orders, err := repo.LockOpenOrders(ctx, buyerTenantID, supplierTenantID)
	if err != nil {
		return decimal.Zero, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock open purchase orders")
	}

	ids := make([]uuid.UUID, 0, len(orders))
	for _, po := range orders {
		if excludePOID != nil && po.ID == *excludePOID {
			continue
		}
		ids = append(ids, po.ID)
	}
	paid, err := repo.SumPayments(ctx, ids)
	if err != nil {
		return decimal.Zero, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum purchase order payments")
	}

	total := decimal.Zero
	counted := 0
	for _, po := range orders {
		if excludePOID != nil && po.ID == *excludePOID {
			continue
		}
		total = total.Add(po.TotalAmount.Sub(paid[po.ID]))
		counted++
	}
	return total, counted, nil
}

// EnsureWithinLimit fails with CREDIT_LIMIT_EXCEEDED when the open orders of the pair
// other than poID, plus projectedTotal for poID, would exceed the connection's limit.
func (c *Calculator) EnsureWithinLimit(ctx context.Context, tx *gorm.DB, conn *models.SupplierConnection, poID uuid.UUID, projectedTotal decimal.Decimal) error {
	if conn == nil || !conn.CreditLimit.Valid {
		return nil
	}
	others, _, err := c.CalculateOutstandingAmount(ctx, tx, conn.BuyerTenantID, conn.SupplierTenantID, &poID)
	if err != nil {
		return err
	}
	projected := others.Add(projectedTotal)
	if projected.LessThanOrEqual(conn.CreditLimit.Decimal) {
		return nil
	}

	if c.logg != nil {
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"connection_id":     conn.ID.String(),
			"purchase_order_id": poID.String(),
			"credit_limit":      conn.CreditLimit.Decimal.String(),
			"projected":         projected.String(),
		})
		c.logg.Warn(logCtx, "credit limit exceeded")
	}
	return pkgerrors.New(
		pkgerrors.CodeCreditLimitExceeded,
		fmt.Sprintf("order would exceed the credit limit of %s", conn.CreditLimit.Decimal.StringFixed(2)),
	).WithDetails(map[string]any{
		"credit_limit": conn.CreditLimit.Decimal.StringFixed(2),
		"outstanding":  others.StringFixed(2),
		"projected":    projected.StringFixed(2),
	})
}

// Exposure reports the outstanding amount for a pair in its own transaction.
func (c *Calculator) Exposure(ctx context.Context, buyerTenantID, supplierTenantID uuid.UUID) (*Exposure, error) {
	var out *Exposure
	err := c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		conn, err := c.Connection(ctx, tx, buyerTenantID, supplierTenantID)
		if err != nil {
			return err
		}
		outstanding, count, err := c.CalculateOutstandingAmount(ctx, tx, buyerTenantID, supplierTenantID, nil)
		if err != nil {
			return err
		}
		out = &Exposure{
			BuyerTenantID:    buyerTenantID,
			SupplierTenantID: supplierTenantID,
			Outstanding:      outstanding,
			CreditLimit:      conn.CreditLimit,
			OpenOrders:       count,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
