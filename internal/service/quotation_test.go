package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/enum"
)

type mockQuotationStore struct {
	nextDailySequenceFn     func(ctx context.Context, scope string, day time.Time) (int32, error)
	createQuotationFn       func(ctx context.Context, arg database.CreateQuotationParams) (database.Quotation, error)
	getQuotationFn          func(ctx context.Context, arg database.GetQuotationParams) (database.Quotation, error)
	updateQuotationStatusFn func(ctx context.Context, arg database.UpdateQuotationStatusParams) (database.Quotation, error)
}

func (m *mockQuotationStore) NextDailySequence(ctx context.Context, scope string, day time.Time) (int32, error) {
	return m.nextDailySequenceFn(ctx, scope, day)
}
func (m *mockQuotationStore) CreateQuotation(ctx context.Context, arg database.CreateQuotationParams) (database.Quotation, error) {
	return m.createQuotationFn(ctx, arg)
}
func (m *mockQuotationStore) GetQuotation(ctx context.Context, arg database.GetQuotationParams) (database.Quotation, error) {
	return m.getQuotationFn(ctx, arg)
}
func (m *mockQuotationStore) UpdateQuotationStatus(ctx context.Context, arg database.UpdateQuotationStatusParams) (database.Quotation, error) {
	return m.updateQuotationStatusFn(ctx, arg)
}

// mockOrderCreator records the requests it receives.
type mockOrderCreator struct {
	requests []CreateOrderRequest
	err      error
}

func (m *mockOrderCreator) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.requests = append(m.requests, req)
	garments := make([]database.Garment, len(req.Garments))
	for i, g := range req.Garments {
		garments[i] = database.Garment{ID: uuid.New(), GarmentNo: int32(i + 1), Type: g.Type, Services: g.Services}
	}
	return &CreateOrderResult{
		Order:    database.Order{ID: uuid.New(), OrderNo: "ORD-HQ-20260826-001", BranchID: req.BranchID, CustomerID: req.CustomerID, Status: enum.OrderStatusReceived},
		Garments: garments,
	}, nil
}

func defaultQuotationStore(quotationID, branchID uuid.UUID, status string, items []database.QuotationItem) *mockQuotationStore {
	return &mockQuotationStore{
		nextDailySequenceFn: func(ctx context.Context, scope string, day time.Time) (int32, error) {
			return 1, nil
		},
		createQuotationFn: func(ctx context.Context, arg database.CreateQuotationParams) (database.Quotation, error) {
			return database.Quotation{
				ID: quotationID, QuotationNo: arg.QuotationNo, BranchID: arg.BranchID,
				CustomerID: arg.CustomerID, Status: arg.Status, Items: arg.Items,
				TotalAmount: arg.TotalAmount, ValidUntil: arg.ValidUntil,
			}, nil
		},
		getQuotationFn: func(ctx context.Context, arg database.GetQuotationParams) (database.Quotation, error) {
			if arg.ID != quotationID || arg.BranchID != branchID {
				return database.Quotation{}, pgx.ErrNoRows
			}
			return database.Quotation{
				ID: quotationID, QuotationNo: "QT-HQ-20260826-001", BranchID: branchID,
				CustomerID: uuid.New(), Status: status, Items: items,
			}, nil
		},
		updateQuotationStatusFn: func(ctx context.Context, arg database.UpdateQuotationStatusParams) (database.Quotation, error) {
			return database.Quotation{
				ID: arg.ID, QuotationNo: "QT-HQ-20260826-001", BranchID: branchID,
				Status: arg.Status, ConvertedOrderID: arg.ConvertedOrderID,
			}, nil
		},
	}
}

func quotationItems() []database.QuotationItem {
	return []database.QuotationItem{
		{Description: "Suit 2pc", Quantity: 2, UnitPrice: "500.00"},
		{Description: "Duvet", Quantity: 1, UnitPrice: "800.00"},
	}
}

// ===== Create tests =====

func TestCreateQuotation_EmptyItems(t *testing.T) {
	svc := NewQuotationService(defaultQuotationStore(uuid.New(), uuid.New(), enum.QuotationStatusDraft, nil), &mockOrderCreator{})

	_, err := svc.Create(context.Background(), CreateQuotationRequest{BranchID: uuid.New(), BranchCode: "HQ"})
	if !errors.Is(err, ErrEmptyQuotationItems) {
		t.Fatalf("expected ErrEmptyQuotationItems, got: %v", err)
	}
}

func TestCreateQuotation_InvalidItem(t *testing.T) {
	svc := NewQuotationService(defaultQuotationStore(uuid.New(), uuid.New(), enum.QuotationStatusDraft, nil), &mockOrderCreator{})

	cases := []database.QuotationItem{
		{Description: "", Quantity: 1, UnitPrice: "100.00"},
		{Description: "Suit", Quantity: 0, UnitPrice: "100.00"},
		{Description: "Suit", Quantity: 1, UnitPrice: "free"},
		{Description: "Suit", Quantity: 1, UnitPrice: "-5.00"},
	}
	for i, item := range cases {
		_, err := svc.Create(context.Background(), CreateQuotationRequest{
			BranchID: uuid.New(), BranchCode: "HQ",
			Items: []database.QuotationItem{item},
		})
		if !errors.Is(err, ErrInvalidQuotationItem) {
			t.Errorf("case %d: expected ErrInvalidQuotationItem, got: %v", i, err)
		}
	}
}

func TestCreateQuotation_NumberAndTotal(t *testing.T) {
	branchID := uuid.New()
	store := defaultQuotationStore(uuid.New(), branchID, enum.QuotationStatusDraft, nil)
	store.nextDailySequenceFn = func(ctx context.Context, scope string, day time.Time) (int32, error) {
		if scope != "QT-HQ" {
			t.Errorf("sequence scope: got %s, want QT-HQ", scope)
		}
		return 3, nil
	}

	var captured database.CreateQuotationParams
	store.createQuotationFn = func(ctx context.Context, arg database.CreateQuotationParams) (database.Quotation, error) {
		captured = arg
		return database.Quotation{ID: uuid.New(), QuotationNo: arg.QuotationNo, Status: arg.Status}, nil
	}

	svc := NewQuotationService(store, &mockOrderCreator{})
	quotation, err := svc.Create(context.Background(), CreateQuotationRequest{
		BranchID: branchID, BranchCode: "HQ",
		CustomerID: uuid.New(), Items: quotationItems(), CreatedBy: uuid.New(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := fmt.Sprintf("QT-HQ-%s-003", time.Now().Format("20060102"))
	if quotation.QuotationNo != want {
		t.Errorf("quotation number: got %s, want %s", quotation.QuotationNo, want)
	}
	// 2*500 + 1*800
	if !numericEquals(captured.TotalAmount, "1800.00") {
		t.Errorf("total: got %v, want 1800.00", numericToDecimal(captured.TotalAmount))
	}
	if captured.Status != enum.QuotationStatusDraft {
		t.Errorf("status: got %s, want DRAFT", captured.Status)
	}
}

// ===== Transition tests =====

func TestQuotationTransition_Legal(t *testing.T) {
	quotationID := uuid.New()
	branchID := uuid.New()
	store := defaultQuotationStore(quotationID, branchID, enum.QuotationStatusDraft, nil)
	svc := NewQuotationService(store, &mockOrderCreator{})

	updated, err := svc.Transition(context.Background(), quotationID, branchID, enum.QuotationStatusSent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enum.QuotationStatusSent {
		t.Errorf("status: got %s, want SENT", updated.Status)
	}
}

func TestQuotationTransition_Illegal(t *testing.T) {
	quotationID := uuid.New()
	branchID := uuid.New()
	store := defaultQuotationStore(quotationID, branchID, enum.QuotationStatusDraft, nil)
	svc := NewQuotationService(store, &mockOrderCreator{})

	_, err := svc.Transition(context.Background(), quotationID, branchID, enum.QuotationStatusConverted)
	if !errors.Is(err, ErrIllegalQuotationTransition) {
		t.Fatalf("expected ErrIllegalQuotationTransition, got: %v", err)
	}
}

func TestQuotationTransition_TerminalHasNoExit(t *testing.T) {
	quotationID := uuid.New()
	branchID := uuid.New()
	store := defaultQuotationStore(quotationID, branchID, enum.QuotationStatusRejected, nil)
	svc := NewQuotationService(store, &mockOrderCreator{})

	_, err := svc.Transition(context.Background(), quotationID, branchID, enum.QuotationStatusSent)
	if !errors.Is(err, ErrIllegalQuotationTransition) {
		t.Fatalf("expected ErrIllegalQuotationTransition from terminal status, got: %v", err)
	}
}

func TestQuotationTransition_ConcurrentConflict(t *testing.T) {
	quotationID := uuid.New()
	branchID := uuid.New()
	store := defaultQuotationStore(quotationID, branchID, enum.QuotationStatusSent, nil)
	store.updateQuotationStatusFn = func(ctx context.Context, arg database.UpdateQuotationStatusParams) (database.Quotation, error) {
		return database.Quotation{}, pgx.ErrNoRows
	}
	svc := NewQuotationService(store, &mockOrderCreator{})

	_, err := svc.Transition(context.Background(), quotationID, branchID, enum.QuotationStatusAccepted)
	if !errors.Is(err, ErrQuotationConflict) {
		t.Fatalf("expected ErrQuotationConflict, got: %v", err)
	}
}

// ===== Convert tests =====

func convertReq(quotationID, branchID uuid.UUID) ConvertQuotationRequest {
	return ConvertQuotationRequest{
		QuotationID:      quotationID,
		BranchID:         branchID,
		BranchCode:       "HQ",
		ServiceType:      enum.ServiceTypeNormal,
		CollectionMethod: enum.CollectionMethodDropOff,
		ReturnMethod:     enum.ReturnMethodCollect,
		ActorID:          uuid.New(),
		ActorName:        "Front Desk",
	}
}

func TestConvert_RequiresAccepted(t *testing.T) {
	quotationID := uuid.New()
	branchID := uuid.New()
	store := defaultQuotationStore(quotationID, branchID, enum.QuotationStatusSent, quotationItems())
	svc := NewQuotationService(store, &mockOrderCreator{})

	_, err := svc.Convert(context.Background(), convertReq(quotationID, branchID))
	if !errors.Is(err, ErrQuotationNotAccepted) {
		t.Fatalf("expected ErrQuotationNotAccepted, got: %v", err)
	}
}

func TestConvert_ItemsBecomeGarments(t *testing.T) {
	quotationID := uuid.New()
	branchID := uuid.New()
	store := defaultQuotationStore(quotationID, branchID, enum.QuotationStatusAccepted, quotationItems())
	creator := &mockOrderCreator{}
	svc := NewQuotationService(store, creator)

	result, err := svc.Convert(context.Background(), convertReq(quotationID, branchID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(creator.requests) != 1 {
		t.Fatalf("order requests: got %d, want 1", len(creator.requests))
	}
	req := creator.requests[0]
	if len(req.Garments) != 2 {
		t.Fatalf("garments: got %d, want 2", len(req.Garments))
	}
	// Line total: 2 * 500.00.
	if req.Garments[0].Type != "Suit 2pc" || req.Garments[0].Price != "1000.00" {
		t.Errorf("garment 0: got %+v, want Suit 2pc at 1000.00", req.Garments[0])
	}
	if result.Quotation.Status != enum.QuotationStatusConverted {
		t.Errorf("quotation status: got %s, want CONVERTED", result.Quotation.Status)
	}
	if !result.Quotation.ConvertedOrderID.Valid {
		t.Error("converted quotation should link the order")
	}
}

func TestConvert_ConflictAfterOrderCreated(t *testing.T) {
	quotationID := uuid.New()
	branchID := uuid.New()
	store := defaultQuotationStore(quotationID, branchID, enum.QuotationStatusAccepted, quotationItems())
	store.updateQuotationStatusFn = func(ctx context.Context, arg database.UpdateQuotationStatusParams) (database.Quotation, error) {
		return database.Quotation{}, pgx.ErrNoRows
	}
	svc := NewQuotationService(store, &mockOrderCreator{})

	_, err := svc.Convert(context.Background(), convertReq(quotationID, branchID))
	if !errors.Is(err, ErrQuotationConflict) {
		t.Fatalf("expected ErrQuotationConflict, got: %v", err)
	}
}
