package credit

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/supplyledger-backend/pkg/db"
	"github.com/angelmondragon/supplyledger-backend/pkg/db/dbtest"
	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyledger-backend/pkg/errors"
)

type fixture struct {
	conn *gorm.DB
	calc *Calculator
	pair *models.SupplierConnection
	repo Repository
	ctx  context.Context
}

func newFixture(t *testing.T, limit *string) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	calc, err := NewCalculator(repo, dbpkg.NewFromConn(conn), nil)
	require.NoError(t, err)

	pair := &models.SupplierConnection{
		BuyerTenantID:    uuid.New(),
		SupplierTenantID: uuid.New(),
		Active:           true,
	}
	if limit != nil {
		pair.CreditLimit = decimal.NewNullDecimal(decimal.RequireFromString(*limit))
	}
	require.NoError(t, repo.CreateConnection(context.Background(), pair))
	return &fixture{conn: conn, calc: calc, pair: pair, repo: repo, ctx: context.Background()}
}

func (f *fixture) order(t *testing.T, total string, status enums.PurchaseOrderStatus, paymentStatus enums.PaymentStatus, payments ...string) *models.PurchaseOrder {
	t.Helper()
	po := &models.PurchaseOrder{
		PONumber:         "PO-" + uuid.NewString()[:8],
		BuyerTenantID:    f.pair.BuyerTenantID,
		SupplierTenantID: f.pair.SupplierTenantID,
		ShopID:           uuid.New(),
		ConnectionID:     f.pair.ID,
		Status:           status,
		PaymentStatus:    paymentStatus,
		TotalAmount:      decimal.RequireFromString(total),
		PaidAmount:       decimal.Zero,
		CreatedBy:        uuid.New(),
	}
	require.NoError(t, f.conn.Create(po).Error)
	for _, amount := range payments {
		require.NoError(t, f.conn.Create(&models.PurchaseOrderPayment{
			PurchaseOrderID: po.ID,
			Amount:          decimal.RequireFromString(amount),
			Method:          enums.PaymentMethodBankTransfer,
			RecordedBy:      uuid.New(),
			PaidAt:          po.CreatedAt,
		}).Error)
	}
	return po
}

func strPtr(v string) *string { return &v }

type capturedQuery struct {
	sql    string
	locked bool
}

// captureQueries records every SELECT issued on conn after it returns.
func captureQueries(t *testing.T, conn *gorm.DB) *[]capturedQuery {
	t.Helper()
	var queries []capturedQuery
	err := conn.Callback().Query().After("gorm:query").Register("test:capture_queries", func(db *gorm.DB) {
		_, locked := db.Statement.Clauses["FOR"]
		queries = append(queries, capturedQuery{sql: db.Statement.SQL.String(), locked: locked})
	})
	require.NoError(t, err)
	return &queries
}

func TestLockOpenOrdersLocksEveryOpenOrderOfThePair(t *testing.T) {
	f := newFixture(t, strPtr("1000.00"))
	draft := f.order(t, "120.00", enums.PurchaseOrderStatusDraft, enums.PaymentStatusPending)
	shipped := f.order(t, "300.00", enums.PurchaseOrderStatusShipped, enums.PaymentStatusPartial)
	f.order(t, "900.00", enums.PurchaseOrderStatusCancelled, enums.PaymentStatusCancelled)
	f.order(t, "200.00", enums.PurchaseOrderStatusCompleted, enums.PaymentStatusPaid)
	queries := captureQueries(t, f.conn)

	var orders []models.PurchaseOrder
	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		orders, err = f.repo.WithTx(tx).LockOpenOrders(f.ctx, f.pair.BuyerTenantID, f.pair.SupplierTenantID)
		return err
	}))

	ids := map[uuid.UUID]bool{}
	for _, po := range orders {
		ids[po.ID] = true
	}
	require.Len(t, orders, 2)
	require.True(t, ids[draft.ID], "drafts carry exposure and must be locked")
	require.True(t, ids[shipped.ID])
	require.True(t, strings.Compare(orders[0].ID.String(), orders[1].ID.String()) < 0, "orders must be locked in id order")

	require.Len(t, *queries, 1)
	q := (*queries)[0]
	require.True(t, q.locked, "expected FOR UPDATE on the open orders query")
	require.Contains(t, q.sql, "buyer_tenant_id = ?")
	require.Contains(t, q.sql, "supplier_tenant_id = ?")
	require.Contains(t, q.sql, "status <> ?")
	require.Contains(t, q.sql, "payment_status <> ?")
	require.Contains(t, q.sql, "ORDER BY id ASC")
}

func TestLockPairTakesTheOpenOrdersLock(t *testing.T) {
	f := newFixture(t, strPtr("1000.00"))
	f.order(t, "50.00", enums.PurchaseOrderStatusDraft, enums.PaymentStatusPending)
	queries := captureQueries(t, f.conn)

	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		return f.calc.LockPair(f.ctx, tx, f.pair.BuyerTenantID, f.pair.SupplierTenantID)
	}))
	require.Len(t, *queries, 1)
	require.True(t, (*queries)[0].locked)
	require.Contains(t, (*queries)[0].sql, "purchase_orders")
}

func TestCalculateOutstandingAmount(t *testing.T) {
	f := newFixture(t, nil)
	f.order(t, "500.00", enums.PurchaseOrderStatusSubmitted, enums.PaymentStatusPending)
	f.order(t, "300.00", enums.PurchaseOrderStatusShipped, enums.PaymentStatusPartial, "100.00", "50.00")
	f.order(t, "900.00", enums.PurchaseOrderStatusCancelled, enums.PaymentStatusCancelled)
	f.order(t, "200.00", enums.PurchaseOrderStatusCompleted, enums.PaymentStatusPaid, "200.00")
	draft := f.order(t, "75.00", enums.PurchaseOrderStatusDraft, enums.PaymentStatusPending)

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		total, count, err := f.calc.CalculateOutstandingAmount(f.ctx, tx, f.pair.BuyerTenantID, f.pair.SupplierTenantID, nil)
		require.NoError(t, err)
		require.True(t, total.Equal(decimal.RequireFromString("725")), total.String())
		require.Equal(t, 3, count)

		total, count, err = f.calc.CalculateOutstandingAmount(f.ctx, tx, f.pair.BuyerTenantID, f.pair.SupplierTenantID, &draft.ID)
		require.NoError(t, err)
		require.True(t, total.Equal(decimal.RequireFromString("650")), total.String())
		require.Equal(t, 2, count)
		return nil
	})
	require.NoError(t, err)
}

func TestCalculateOutstandingAmountIgnoresOtherPairs(t *testing.T) {
	f := newFixture(t, nil)
	f.order(t, "100.00", enums.PurchaseOrderStatusSubmitted, enums.PaymentStatusPending)

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		total, _, err := f.calc.CalculateOutstandingAmount(f.ctx, tx, f.pair.BuyerTenantID, uuid.New(), nil)
		require.NoError(t, err)
		require.True(t, total.IsZero())
		return nil
	})
	require.NoError(t, err)
}

func TestEnsureWithinLimit(t *testing.T) {
	f := newFixture(t, strPtr("1000.00"))
	draft := f.order(t, "0.00", enums.PurchaseOrderStatusDraft, enums.PaymentStatusPending)

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		return f.calc.EnsureWithinLimit(f.ctx, tx, f.pair, draft.ID, decimal.RequireFromString("1100.00"))
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeCreditLimitExceeded, typed.Code())
	details := typed.Details().(map[string]any)
	require.Equal(t, "1000.00", details["credit_limit"])
	require.Equal(t, "0.00", details["outstanding"])
	require.Equal(t, "1100.00", details["projected"])

	err = f.conn.Transaction(func(tx *gorm.DB) error {
		return f.calc.EnsureWithinLimit(f.ctx, tx, f.pair, draft.ID, decimal.RequireFromString("1000.00"))
	})
	require.NoError(t, err)
}

func TestEnsureWithinLimitCountsOtherOrders(t *testing.T) {
	f := newFixture(t, strPtr("1000.00"))
	f.order(t, "700.00", enums.PurchaseOrderStatusApproved, enums.PaymentStatusPartial, "200.00")
	draft := f.order(t, "400.00", enums.PurchaseOrderStatusDraft, enums.PaymentStatusPending)

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		return f.calc.EnsureWithinLimit(f.ctx, tx, f.pair, draft.ID, decimal.RequireFromString("500.00"))
	})
	require.NoError(t, err)

	err = f.conn.Transaction(func(tx *gorm.DB) error {
		return f.calc.EnsureWithinLimit(f.ctx, tx, f.pair, draft.ID, decimal.RequireFromString("500.01"))
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeCreditLimitExceeded))
}

func TestEnsureWithinLimitUnlimited(t *testing.T) {
	f := newFixture(t, nil)
	err := f.conn.Transaction(func(tx *gorm.DB) error {
		return f.calc.EnsureWithinLimit(f.ctx, tx, f.pair, uuid.New(), decimal.RequireFromString("1000000"))
	})
	require.NoError(t, err)
}

func TestConnectionMissingIsConfigurationError(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.calc.Connection(f.ctx, nil, uuid.New(), f.pair.SupplierTenantID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeConfiguration))

	_, err = f.calc.Exposure(f.ctx, f.pair.BuyerTenantID, uuid.New())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeConfiguration))
}

func TestExposure(t *testing.T) {
	f := newFixture(t, strPtr("250.00"))
	f.order(t, "120.00", enums.PurchaseOrderStatusSubmitted, enums.PaymentStatusPartial, "20.00")

	exposure, err := f.calc.Exposure(f.ctx, f.pair.BuyerTenantID, f.pair.SupplierTenantID)
	require.NoError(t, err)
	require.True(t, exposure.Outstanding.Equal(decimal.NewFromInt(100)))
	require.Equal(t, 1, exposure.OpenOrders)
	require.True(t, exposure.CreditLimit.Valid)
}
