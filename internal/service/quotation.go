package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/enum"
)

var (
	ErrQuotationNotFound          = errors.New("quotation not found")
	ErrEmptyQuotationItems        = errors.New("quotation items are required")
	ErrInvalidQuotationItem       = errors.New("invalid quotation item")
	ErrInvalidQuotationStatus     = errors.New("invalid quotation status")
	ErrIllegalQuotationTransition = errors.New("illegal quotation status transition")
	ErrQuotationNotAccepted       = errors.New("only accepted quotations can convert")
	ErrQuotationConflict          = errors.New("quotation status changed concurrently")
)

// quotationTransitions is the quotation status adjacency table.
var quotationTransitions = map[string][]string{
	enum.QuotationStatusDraft:    {enum.QuotationStatusSent, enum.QuotationStatusRejected, enum.QuotationStatusExpired},
	enum.QuotationStatusSent:     {enum.QuotationStatusAccepted, enum.QuotationStatusRejected, enum.QuotationStatusExpired},
	enum.QuotationStatusAccepted: {enum.QuotationStatusConverted, enum.QuotationStatusRejected},
}

// QuotationStore defines the DB methods the quotation service needs.
type QuotationStore interface {
	NextDailySequence(ctx context.Context, scope string, day time.Time) (int32, error)
	CreateQuotation(ctx context.Context, arg database.CreateQuotationParams) (database.Quotation, error)
	GetQuotation(ctx context.Context, arg database.GetQuotationParams) (database.Quotation, error)
	UpdateQuotationStatus(ctx context.Context, arg database.UpdateQuotationStatusParams) (database.Quotation, error)
}

// OrderCreator creates an order from validated input. Implemented by
// *OrderService.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error)
}

// CreateQuotationRequest is the validated input for creating a quotation.
type CreateQuotationRequest struct {
	BranchID   uuid.UUID
	BranchCode string
	CustomerID uuid.UUID
	Items      []database.QuotationItem
	ValidUntil string // RFC3339, optional
	CreatedBy  uuid.UUID
}

// ConvertQuotationRequest converts an accepted quotation into an order.
type ConvertQuotationRequest struct {
	QuotationID      uuid.UUID
	BranchID         uuid.UUID
	BranchCode       string
	ServiceType      string
	CollectionMethod string
	ReturnMethod     string
	ActorID          uuid.UUID
	ActorName        string
}

// ConvertQuotationResult is the converted quotation with its new order.
type ConvertQuotationResult struct {
	Quotation database.Quotation
	Order     database.Order
	Garments  []database.Garment
}

// QuotationService manages quotations and their conversion into orders.
type QuotationService struct {
	store  QuotationStore
	orders OrderCreator
}

// NewQuotationService creates a new QuotationService.
func NewQuotationService(store QuotationStore, orders OrderCreator) *QuotationService {
	return &QuotationService{store: store, orders: orders}
}

// Create prices the items, generates the daily quotation number, and stores
// the quotation as a draft.
func (s *QuotationService) Create(ctx context.Context, req CreateQuotationRequest) (database.Quotation, error) {
	if len(req.Items) == 0 {
		return database.Quotation{}, ErrEmptyQuotationItems
	}

	total := decimal.Zero
	for i, item := range req.Items {
		if item.Description == "" || item.Quantity <= 0 {
			return database.Quotation{}, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuotationItem)
		}
		unit, err := decimal.NewFromString(item.UnitPrice)
		if err != nil || unit.IsNegative() {
			return database.Quotation{}, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuotationItem)
		}
		total = total.Add(unit.Mul(decimal.NewFromInt32(item.Quantity)))
	}

	validUntil := pgtype.Timestamptz{}
	if req.ValidUntil != "" {
		t, err := time.Parse(time.RFC3339, req.ValidUntil)
		if err != nil {
			return database.Quotation{}, fmt.Errorf("%w: invalid valid_until", ErrInvalidQuotationItem)
		}
		validUntil = pgtype.Timestamptz{Time: t, Valid: true}
	}

	now := time.Now()
	seq, err := s.store.NextDailySequence(ctx, "QT-"+req.BranchCode, now)
	if err != nil {
		return database.Quotation{}, fmt.Errorf("next quotation sequence: %w", err)
	}
	quotationNo := fmt.Sprintf("QT-%s-%s-%03d", req.BranchCode, now.Format("20060102"), seq)

	quotation, err := s.store.CreateQuotation(ctx, database.CreateQuotationParams{
		QuotationNo: quotationNo,
		BranchID:    req.BranchID,
		CustomerID:  req.CustomerID,
		Status:      enum.QuotationStatusDraft,
		Items:       req.Items,
		TotalAmount: decimalToNumeric(total),
		ValidUntil:  validUntil,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		return database.Quotation{}, fmt.Errorf("create quotation: %w", err)
	}
	return quotation, nil
}

// Transition moves a quotation to a new status per the adjacency table.
func (s *QuotationService) Transition(ctx context.Context, quotationID, branchID uuid.UUID, next string) (database.Quotation, error) {
	if !isQuotationStatus(next) {
		return database.Quotation{}, ErrInvalidQuotationStatus
	}

	quotation, err := s.store.GetQuotation(ctx, database.GetQuotationParams{ID: quotationID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Quotation{}, ErrQuotationNotFound
		}
		return database.Quotation{}, fmt.Errorf("get quotation: %w", err)
	}

	if err := validateQuotationTransition(quotation.Status, next); err != nil {
		return database.Quotation{}, err
	}

	updated, err := s.store.UpdateQuotationStatus(ctx, database.UpdateQuotationStatusParams{
		ID:         quotationID,
		Status:     next,
		PrevStatus: quotation.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Quotation{}, ErrQuotationConflict
		}
		return database.Quotation{}, fmt.Errorf("update quotation status: %w", err)
	}
	return updated, nil
}

// Convert turns an accepted quotation into a new order carrying the
// quotation's items as garments, then marks the quotation CONVERTED with a
// link to the order.
func (s *QuotationService) Convert(ctx context.Context, req ConvertQuotationRequest) (*ConvertQuotationResult, error) {
	quotation, err := s.store.GetQuotation(ctx, database.GetQuotationParams{ID: req.QuotationID, BranchID: req.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuotationNotFound
		}
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if quotation.Status != enum.QuotationStatusAccepted {
		return nil, ErrQuotationNotAccepted
	}

	garments := make([]CreateGarmentRequest, 0, len(quotation.Items))
	for _, item := range quotation.Items {
		unit, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("quotation item price: %w", err)
		}
		garments = append(garments, CreateGarmentRequest{
			Type:     item.Description,
			Services: []string{req.ServiceType},
			Price:    unit.Mul(decimal.NewFromInt32(item.Quantity)).StringFixed(2),
		})
	}

	orderResult, err := s.orders.CreateOrder(ctx, CreateOrderRequest{
		BranchID:         req.BranchID,
		BranchCode:       req.BranchCode,
		CustomerID:       quotation.CustomerID,
		ServiceType:      req.ServiceType,
		CollectionMethod: req.CollectionMethod,
		ReturnMethod:     req.ReturnMethod,
		CreatedBy:        req.ActorID,
		CreatedByName:    req.ActorName,
		Garments:         garments,
	})
	if err != nil {
		return nil, fmt.Errorf("create order from quotation: %w", err)
	}

	updated, err := s.store.UpdateQuotationStatus(ctx, database.UpdateQuotationStatusParams{
		ID:               req.QuotationID,
		Status:           enum.QuotationStatusConverted,
		PrevStatus:       enum.QuotationStatusAccepted,
		ConvertedOrderID: pgtype.UUID{Bytes: orderResult.Order.ID, Valid: true},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The order exists but the quotation moved under us. Surface
			// the conflict so the caller reconciles manually.
			return nil, fmt.Errorf("%w: order %s was created", ErrQuotationConflict, orderResult.Order.OrderNo)
		}
		return nil, fmt.Errorf("update quotation status: %w", err)
	}

	return &ConvertQuotationResult{
		Quotation: updated,
		Order:     orderResult.Order,
		Garments:  orderResult.Garments,
	}, nil
}

func validateQuotationTransition(current, next string) error {
	allowed, ok := quotationTransitions[current]
	if !ok {
		return fmt.Errorf("%w: %s is terminal", ErrIllegalQuotationTransition, current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrIllegalQuotationTransition, current, next)
}

func isQuotationStatus(s string) bool {
	switch s {
	case enum.QuotationStatusDraft, enum.QuotationStatusSent, enum.QuotationStatusAccepted,
		enum.QuotationStatusRejected, enum.QuotationStatusExpired, enum.QuotationStatusConverted:
		return true
	}
	return false
}
