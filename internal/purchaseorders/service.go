package purchaseorders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyledger-backend/internal/catalog"
	"github.com/angelmondragon/supplyledger-backend/internal/inventory"
	"github.com/angelmondragon/supplyledger-backend/pkg/config"
	dbpkg "github.com/angelmondragon/supplyledger-backend/pkg/db"
	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyledger-backend/pkg/errors"
	"github.com/angelmondragon/supplyledger-backend/pkg/logger"
	"github.com/angelmondragon/supplyledger-backend/pkg/metrics"
	"github.com/angelmondragon/supplyledger-backend/pkg/outbox"
	"github.com/angelmondragon/supplyledger-backend/pkg/pagination"
	"github.com/angelmondragon/supplyledger-backend/pkg/types"
	"github.com/angelmondragon/supplyledger-backend/pkg/validation"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ShopDirectory resolves which tenant owns a shop.
type ShopDirectory interface {
	ShopTenant(ctx context.Context, shopID uuid.UUID) (uuid.UUID, error)
}

// PriceResolver quotes a unit price for a variant at a quantity.
type PriceResolver interface {
	Quote(ctx context.Context, req catalog.PriceRequest) (*catalog.Quote, error)
}

type creditChecker interface {
	Connection(ctx context.Context, tx *gorm.DB, buyerTenantID, supplierTenantID uuid.UUID) (*models.SupplierConnection, error)
	LockPair(ctx context.Context, tx *gorm.DB, buyerTenantID, supplierTenantID uuid.UUID) error
	EnsureWithinLimit(ctx context.Context, tx *gorm.DB, conn *models.SupplierConnection, poID uuid.UUID, projectedTotal decimal.Decimal) error
}

type stockLedger interface {
	Reserve(ctx context.Context, tx *gorm.DB, supplierTenantID uuid.UUID, lines []inventory.Line, entry inventory.Entry) ([]inventory.Allocation, error)
	Ship(ctx context.Context, tx *gorm.DB, supplierTenantID uuid.UUID, lines []inventory.Line, entry inventory.Entry) ([]models.StockMovement, error)
	Release(ctx context.Context, tx *gorm.DB, supplierTenantID uuid.UUID, lines []inventory.Line, entry inventory.Entry) ([]models.StockMovement, error)
	Receive(ctx context.Context, tx *gorm.DB, buyerTenantID uuid.UUID, shop inventory.Location, lines []inventory.Line, entry inventory.Entry) ([]models.StockMovement, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service manages purchase orders from draft to completion.
type Service interface {
	Create(ctx context.Context, actor types.Actor, input CreateInput) (*models.PurchaseOrder, error)
	Get(ctx context.Context, actor types.Actor, id uuid.UUID) (*models.PurchaseOrder, error)
	List(ctx context.Context, actor types.Actor, filters ListFilters, params pagination.Params) (pagination.Page[models.PurchaseOrder], error)

	AddItem(ctx context.Context, actor types.Actor, poID uuid.UUID, input AddItemInput) (*models.PurchaseOrder, error)
	UpdateItem(ctx context.Context, actor types.Actor, poID, itemID uuid.UUID, input UpdateItemInput) (*models.PurchaseOrder, error)
	RemoveItem(ctx context.Context, actor types.Actor, poID, itemID uuid.UUID) (*models.PurchaseOrder, error)

	Submit(ctx context.Context, actor types.Actor, poID uuid.UUID) (*models.PurchaseOrder, error)
	Approve(ctx context.Context, actor types.Actor, poID uuid.UUID) (*models.PurchaseOrder, error)
	StartProcessing(ctx context.Context, actor types.Actor, poID uuid.UUID) (*models.PurchaseOrder, error)
	Ship(ctx context.Context, actor types.Actor, poID uuid.UUID) (*models.PurchaseOrder, error)
	Receive(ctx context.Context, actor types.Actor, poID uuid.UUID, input ReceiveInput) (*models.PurchaseOrder, error)
	Complete(ctx context.Context, actor types.Actor, poID uuid.UUID) (*models.PurchaseOrder, error)
	Cancel(ctx context.Context, actor types.Actor, poID uuid.UUID, reason *string) (*models.PurchaseOrder, error)
}

// CreateInput opens a draft order for one of the buyer's shops.
type CreateInput struct {
	SupplierTenantID     uuid.UUID  `json:"supplier_tenant_id" validate:"required"`
	ShopID               uuid.UUID  `json:"shop_id" validate:"required"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
	Notes                *string    `json:"notes"`
}

// AddItemInput adds a variant to a draft order.
type AddItemInput struct {
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

// UpdateItemInput changes the ordered quantity of a line.
type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

// ReceiveInput records delivered units keyed by purchase order item id.
type ReceiveInput struct {
	Items              map[uuid.UUID]int `json:"items" validate:"required,min=1"`
	ActualDeliveryDate *time.Time        `json:"actual_delivery_date"`
}

type service struct {
	repo    Repository
	tx      txRunner
	shops   ShopDirectory
	prices  PriceResolver
	credit  creditChecker
	ledger  stockLedger
	outbox  outboxPublisher
	cfg     config.LedgerConfig
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
	now     func() time.Time
}

// NewService builds the purchase order lifecycle manager.
func NewService(
	repo Repository,
	tx txRunner,
	shops ShopDirectory,
	prices PriceResolver,
	credit creditChecker,
	ledger stockLedger,
	publisher outboxPublisher,
	cfg config.LedgerConfig,
	logg *logger.Logger,
	m *metrics.LedgerMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchase order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if shops == nil {
		return nil, fmt.Errorf("shop directory required")
	}
	if prices == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	if credit == nil {
		return nil, fmt.Errorf("credit checker required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if cfg.ReferencePrefix == "" {
		cfg.ReferencePrefix = "PO"
	}
	return &service{
		repo:    repo,
		tx:      tx,
		shops:   shops,
		prices:  prices,
		credit:  credit,
		ledger:  ledger,
		outbox:  publisher,
		cfg:     cfg,
		logg:    logg,
		metrics: m,
		now:     time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor types.Actor, input CreateInput) (*models.PurchaseOrder, error) {
	if err := validation.Struct(actor); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if input.SupplierTenantID == actor.TenantID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer and supplier must differ")
	}

	owner, err := s.shops.ShopTenant(ctx, input.ShopID)
	if err != nil {
		return nil, err
	}
	if owner != actor.TenantID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop does not belong to the buyer")
	}

	var created *models.PurchaseOrder
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		conn, err := s.credit.Connection(ctx, tx, actor.TenantID, input.SupplierTenantID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		po := &models.PurchaseOrder{
			PONumber:             inventory.NewReference(s.cfg.ReferencePrefix, now),
			BuyerTenantID:        actor.TenantID,
			SupplierTenantID:     input.SupplierTenantID,
			ShopID:               input.ShopID,
			ConnectionID:         conn.ID,
			Status:               enums.PurchaseOrderStatusDraft,
			PaymentStatus:        enums.PaymentStatusPending,
			TotalAmount:          decimal.Zero,
			PaidAmount:           decimal.Zero,
			Notes:                input.Notes,
			ExpectedDeliveryDate: input.ExpectedDeliveryDate,
			CreatedBy:            actor.UserID,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := s.repo.WithTx(tx).Create(ctx, po); err != nil {
			return wrapStore(err, "create purchase order")
		}
		created = po
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithPurchaseOrder(ctx, created.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"po_number":          created.PONumber,
			"buyer_tenant_id":    created.BuyerTenantID.String(),
			"supplier_tenant_id": created.SupplierTenantID.String(),
			"shop_id":            created.ShopID.String(),
		})
		s.logg.Info(logCtx, "purchase order created")
	}
	created.Items = []models.PurchaseOrderItem{}
	return created, nil
}

func (s *service) Get(ctx context.Context, actor types.Actor, id uuid.UUID) (*models.PurchaseOrder, error) {
	po, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapLoad(err)
	}
	if !actor.ActsFor(po.BuyerTenantID) && !actor.ActsFor(po.SupplierTenantID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "purchase order belongs to another tenant")
	}
	return po, nil
}

func (s *service) List(ctx context.Context, actor types.Actor, filters ListFilters, params pagination.Params) (pagination.Page[models.PurchaseOrder], error) {
	var empty pagination.Page[models.PurchaseOrder]
	if filters.BuyerTenantID == nil && filters.SupplierTenantID == nil {
		return empty, pkgerrors.New(pkgerrors.CodeValidation, "buyer or supplier filter required")
	}
	asBuyer := filters.BuyerTenantID != nil && actor.ActsFor(*filters.BuyerTenantID)
	asSupplier := filters.SupplierTenantID != nil && actor.ActsFor(*filters.SupplierTenantID)
	if !asBuyer && !asSupplier {
		return empty, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list orders of another tenant")
	}
	if filters.Status != nil && !filters.Status.IsValid() {
		return empty, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", *filters.Status))
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filters, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase orders")
	}
	return pagination.Paginate(rows, params.Limit, func(po models.PurchaseOrder) pagination.Cursor {
		return pagination.Cursor{CreatedAt: po.CreatedAt, ID: po.ID}
	}), nil
}

func wrapLoad(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
	}
	return wrapStore(err, "load purchase order")
}

// wrapStore keeps typed errors and marks store failures as dependency errors.
func wrapStore(err error, msg string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	if dbpkg.IsRetryable(err) {
		return wrapped.WithDetails(map[string]any{"retryable": true})
	}
	return wrapped
}
