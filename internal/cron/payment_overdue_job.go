package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
	"github.com/angelmondragon/supplyledger-backend/pkg/logger"
	"github.com/angelmondragon/supplyledger-backend/pkg/outbox"
	"github.com/angelmondragon/supplyledger-backend/pkg/outbox/payloads"
)

const paymentOverduePageSize = 200

type PaymentOverdueJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Orders   overdueOrderLister
	Outbox   overdueEmitter
	PageSize int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type overdueOrderLister interface {
	ListOverdue(ctx context.Context, now time.Time, after uuid.UUID, limit int) ([]models.PurchaseOrder, error)
}

type overdueEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// NewPaymentOverdueJob builds the job that flags unpaid orders past their due
// date. Each order is flagged once; later runs find the existing event.
func NewPaymentOverdueJob(params PaymentOverdueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("purchase order repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = paymentOverduePageSize
	}
	return &paymentOverdueJob{
		logg:     params.Logger,
		db:       params.DB,
		orders:   params.Orders,
		outbox:   params.Outbox,
		pageSize: pageSize,
		now:      time.Now,
	}, nil
}

type paymentOverdueJob struct {
	logg     *logger.Logger
	db       txRunner
	orders   overdueOrderLister
	outbox   overdueEmitter
	pageSize int
	now      func() time.Time
}

func (j *paymentOverdueJob) Name() string { return "purchase-order-payment-overdue" }

func (j *paymentOverdueJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var (
		after    uuid.UUID
		checked  int
		failures error
	)
	for {
		orders, err := j.orders.ListOverdue(ctx, now, after, j.pageSize)
		if err != nil {
			return fmt.Errorf("list overdue purchase orders: %w", err)
		}
		for i := range orders {
			if err := j.flag(ctx, orders[i], now); err != nil {
				failures = multierr.Append(failures, fmt.Errorf("flag purchase order %s: %w", orders[i].ID, err))
				continue
			}
			checked++
		}
		if len(orders) < j.pageSize {
			break
		}
		after = orders[len(orders)-1].ID
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"as_of":          now,
		"orders_checked": checked,
	})
	j.logg.Info(logCtx, "payment overdue sweep complete")
	return failures
}

func (j *paymentOverdueJob) flag(ctx context.Context, po models.PurchaseOrder, now time.Time) error {
	outstanding := po.TotalAmount.Sub(po.PaidAmount)
	if !outstanding.IsPositive() || po.PaymentDueDate == nil {
		return nil
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventPurchaseOrderPaymentOverdue,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   po.ID,
		Version:       1,
		OccurredAt:    now,
		Data: payloads.PurchaseOrderPaymentOverdueEvent{
			PurchaseOrderID:  po.ID,
			PONumber:         po.PONumber,
			BuyerTenantID:    po.BuyerTenantID,
			SupplierTenantID: po.SupplierTenantID,
			PaymentDueDate:   po.PaymentDueDate.UTC(),
			Outstanding:      outstanding,
		},
	}
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.EmitIfNotExists(ctx, tx, event)
	})
}
