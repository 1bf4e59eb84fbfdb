package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyledger-backend/pkg/errors"
	"github.com/angelmondragon/supplyledger-backend/pkg/logger"
	"github.com/angelmondragon/supplyledger-backend/pkg/outbox"
	"github.com/angelmondragon/supplyledger-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/supplyledger-backend/pkg/types"
	"github.com/angelmondragon/supplyledger-backend/pkg/validation"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service records purchase order payments and reports balances.
type Service interface {
	RecordPayment(ctx context.Context, actor types.Actor, input RecordPaymentInput) (*models.PurchaseOrderPayment, error)
	ListPayments(ctx context.Context, actor types.Actor, poID uuid.UUID) ([]models.PurchaseOrderPayment, error)
	Outstanding(ctx context.Context, actor types.Actor, poID uuid.UUID) (*Balance, error)
}

// RecordPaymentInput describes one payment against a purchase order.
type RecordPaymentInput struct {
	PurchaseOrderID uuid.UUID           `json:"purchase_order_id" validate:"required"`
	Amount          decimal.Decimal     `json:"amount"`
	Method          enums.PaymentMethod `json:"method" validate:"required"`
	Reference       *string             `json:"reference"`
	Notes           *string             `json:"notes"`
	PaidAt          *time.Time          `json:"paid_at"`
}

// Balance is the payment position of one order derived from its payment ledger.
type Balance struct {
	PurchaseOrderID uuid.UUID           `json:"purchase_order_id"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	PaidAmount      decimal.Decimal     `json:"paid_amount"`
	Outstanding     decimal.Decimal     `json:"outstanding"`
	Status          enums.PaymentStatus `json:"status"`
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the payment tracker.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: publisher, logg: logg, now: time.Now}, nil
}

func (s *service) RecordPayment(ctx context.Context, actor types.Actor, input RecordPaymentInput) (*models.PurchaseOrderPayment, error) {
	if err := validation.Struct(actor); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if input.Amount.Exponent() < -2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount supports at most two decimals")
	}

	var payment models.PurchaseOrderPayment
	var balance Balance
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		po, err := repo.LockOrder(ctx, input.PurchaseOrderID)
		if err != nil {
			return wrapLoad(err)
		}
		if !actor.ActsFor(po.BuyerTenantID) && !actor.ActsFor(po.SupplierTenantID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "purchase order belongs to another tenant")
		}
		if po.Status == enums.PurchaseOrderStatusDraft {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payments cannot be recorded on a draft purchase order")
		}
		if !po.PaymentStatus.AcceptsPayments() {
			return pkgerrors.New(
				pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("payments cannot be recorded while payment status is %s", po.PaymentStatus),
			)
		}

		existing, err := repo.ListByOrder(ctx, po.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payments")
		}
		current := Derive(po.TotalAmount, existing)
		if input.Amount.GreaterThan(current.Outstanding) {
			return pkgerrors.New(
				pkgerrors.CodeValidation,
				fmt.Sprintf("payment of %s exceeds the outstanding balance", input.Amount.StringFixed(2)),
			).WithDetails(map[string]any{
				"outstanding": current.Outstanding.StringFixed(2),
				"amount":      input.Amount.StringFixed(2),
			})
		}

		now := s.now().UTC()
		paidAt := now
		if input.PaidAt != nil {
			paidAt = input.PaidAt.UTC()
		}
		payment = models.PurchaseOrderPayment{
			PurchaseOrderID: po.ID,
			Amount:          input.Amount,
			Method:          input.Method,
			Reference:       input.Reference,
			Notes:           input.Notes,
			RecordedBy:      actor.UserID,
			PaidAt:          paidAt,
			CreatedAt:       now,
		}
		if err := repo.Insert(ctx, &payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert payment")
		}

		balance = Derive(po.TotalAmount, append(existing, payment))
		balance.PurchaseOrderID = po.ID
		if err := repo.UpdateOrder(ctx, po.ID, map[string]any{
			"paid_amount":    balance.PaidAmount,
			"payment_status": balance.Status,
			"updated_at":     now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseOrderPaymentRecorded,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   po.ID,
			Actor:         outbox.ActorFrom(actor),
			Data: payloads.PurchaseOrderPaymentRecordedEvent{
				PurchaseOrderID: po.ID,
				PaymentID:       payment.ID,
				Amount:          payment.Amount,
				Method:          payment.Method,
				PaidAmount:      balance.PaidAmount,
				PaymentStatus:   balance.Status,
			},
			Version:    1,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithPurchaseOrder(ctx, payment.PurchaseOrderID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"payment_id":     payment.ID.String(),
			"amount":         payment.Amount.StringFixed(2),
			"payment_status": balance.Status,
		})
		s.logg.Info(logCtx, "purchase order payment recorded")
	}
	return &payment, nil
}

func (s *service) ListPayments(ctx context.Context, actor types.Actor, poID uuid.UUID) ([]models.PurchaseOrderPayment, error) {
	if _, err := s.visibleOrder(ctx, actor, poID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByOrder(ctx, poID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payments")
	}
	return rows, nil
}

func (s *service) Outstanding(ctx context.Context, actor types.Actor, poID uuid.UUID) (*Balance, error) {
	po, err := s.visibleOrder(ctx, actor, poID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByOrder(ctx, poID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payments")
	}
	balance := Derive(po.TotalAmount, rows)
	balance.PurchaseOrderID = po.ID
	if po.PaymentStatus == enums.PaymentStatusCancelled {
		balance.Status = enums.PaymentStatusCancelled
	}
	return &balance, nil
}

func (s *service) visibleOrder(ctx context.Context, actor types.Actor, poID uuid.UUID) (*models.PurchaseOrder, error) {
	po, err := s.repo.FindOrder(ctx, poID)
	if err != nil {
		return nil, wrapLoad(err)
	}
	if !actor.ActsFor(po.BuyerTenantID) && !actor.ActsFor(po.SupplierTenantID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "purchase order belongs to another tenant")
	}
	return po, nil
}

// Derive computes the payment position from the ledger. It never reports CANCELLED;
// that status is set by the order lifecycle.
func Derive(total decimal.Decimal, payments []models.PurchaseOrderPayment) Balance {
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	outstanding := total.Sub(paid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	status := enums.PaymentStatusPending
	switch {
	case total.IsPositive() && paid.GreaterThanOrEqual(total):
		status = enums.PaymentStatusPaid
	case paid.IsPositive():
		status = enums.PaymentStatusPartial
	}
	return Balance{TotalAmount: total, PaidAmount: paid, Outstanding: outstanding, Status: status}
}

func wrapLoad(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
}
