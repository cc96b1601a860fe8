package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/enum"
	"github.com/cleanline-pos/api/internal/handler"
	"github.com/cleanline-pos/api/internal/middleware"
	"github.com/cleanline-pos/api/internal/service"
)

type mockQuotationService struct {
	createFn     func(ctx context.Context, req service.CreateQuotationRequest) (database.Quotation, error)
	transitionFn func(ctx context.Context, quotationID, branchID uuid.UUID, next string) (database.Quotation, error)
	convertFn    func(ctx context.Context, req service.ConvertQuotationRequest) (*service.ConvertQuotationResult, error)
}

func (m *mockQuotationService) Create(ctx context.Context, req service.CreateQuotationRequest) (database.Quotation, error) {
	return m.createFn(ctx, req)
}

func (m *mockQuotationService) Transition(ctx context.Context, quotationID, branchID uuid.UUID, next string) (database.Quotation, error) {
	return m.transitionFn(ctx, quotationID, branchID, next)
}

func (m *mockQuotationService) Convert(ctx context.Context, req service.ConvertQuotationRequest) (*service.ConvertQuotationResult, error) {
	return m.convertFn(ctx, req)
}

type mockQuotationReadStore struct {
	getBranchByIDFn  func(ctx context.Context, id uuid.UUID) (database.Branch, error)
	getQuotationFn   func(ctx context.Context, arg database.GetQuotationParams) (database.Quotation, error)
	listQuotationsFn func(ctx context.Context, arg database.ListQuotationsParams) ([]database.Quotation, error)
}

func (m *mockQuotationReadStore) GetBranchByID(ctx context.Context, id uuid.UUID) (database.Branch, error) {
	if m.getBranchByIDFn != nil {
		return m.getBranchByIDFn(ctx, id)
	}
	return database.Branch{ID: id, Code: "HQ", Name: "Head Office"}, nil
}

func (m *mockQuotationReadStore) GetQuotation(ctx context.Context, arg database.GetQuotationParams) (database.Quotation, error) {
	if m.getQuotationFn != nil {
		return m.getQuotationFn(ctx, arg)
	}
	return database.Quotation{}, pgx.ErrNoRows
}

func (m *mockQuotationReadStore) ListQuotations(ctx context.Context, arg database.ListQuotationsParams) ([]database.Quotation, error) {
	if m.listQuotationsFn != nil {
		return m.listQuotationsFn(ctx, arg)
	}
	return []database.Quotation{}, nil
}

func setupQuotationRouter(svc *mockQuotationService, store *mockQuotationReadStore) *chi.Mux {
	h := handler.NewQuotationHandler(svc, store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/branches/{bid}", func(r chi.Router) {
		r.Use(middleware.RequireBranch)
		r.Route("/quotations", func(r chi.Router) {
			r.Use(middleware.RequireCapability(enum.CapManageOrders))
			h.RegisterRoutes(r)
		})
	})
	return r
}

func testQuotation(branchID uuid.UUID, status string) database.Quotation {
	return database.Quotation{
		ID:          uuid.New(),
		QuotationNo: "QT-HQ-20260826-001",
		BranchID:    branchID,
		CustomerID:  uuid.New(),
		Status:      status,
		Items: []database.QuotationItem{
			{Description: "Duvet", Quantity: 1, UnitPrice: "800.00"},
		},
		TotalAmount: testNumeric("800.00"),
		CreatedBy:   uuid.New(),
	}
}

func TestQuotationCreate(t *testing.T) {
	branchID := uuid.New()
	claims := frontDeskClaims(branchID)

	svc := &mockQuotationService{
		createFn: func(ctx context.Context, req service.CreateQuotationRequest) (database.Quotation, error) {
			if req.BranchCode != "HQ" {
				t.Errorf("branch_code: got %s, want HQ", req.BranchCode)
			}
			if len(req.Items) != 1 {
				t.Errorf("items: got %d, want 1", len(req.Items))
			}
			return testQuotation(branchID, enum.QuotationStatusDraft), nil
		},
	}
	router := setupQuotationRouter(svc, &mockQuotationReadStore{})

	rr := doAuthRequest(t, router, "POST", "/branches/"+branchID.String()+"/quotations/", map[string]interface{}{
		"customer_id": uuid.New().String(),
		"items": []map[string]interface{}{
			{"description": "Duvet", "quantity": 1, "unit_price": "800.00"},
		},
	}, claims)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["status"] != "DRAFT" {
		t.Errorf("status: got %v, want DRAFT", resp["status"])
	}
	if resp["total_amount"] != "800.00" {
		t.Errorf("total_amount: got %v, want 800.00", resp["total_amount"])
	}
}

func TestQuotationCreate_InvalidItem(t *testing.T) {
	branchID := uuid.New()
	svc := &mockQuotationService{
		createFn: func(ctx context.Context, req service.CreateQuotationRequest) (database.Quotation, error) {
			return database.Quotation{}, service.ErrInvalidQuotationItem
		},
	}
	router := setupQuotationRouter(svc, &mockQuotationReadStore{})

	rr := doAuthRequest(t, router, "POST", "/branches/"+branchID.String()+"/quotations/", map[string]interface{}{
		"customer_id": uuid.New().String(),
		"items":       []map[string]interface{}{{"description": "", "quantity": 0}},
	}, frontDeskClaims(branchID))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestQuotationUpdateStatus_IllegalTransition(t *testing.T) {
	branchID := uuid.New()
	svc := &mockQuotationService{
		transitionFn: func(ctx context.Context, quotationID, bid uuid.UUID, next string) (database.Quotation, error) {
			return database.Quotation{}, service.ErrIllegalQuotationTransition
		},
	}
	router := setupQuotationRouter(svc, &mockQuotationReadStore{})

	rr := doAuthRequest(t, router, "PATCH", "/branches/"+branchID.String()+"/quotations/"+uuid.New().String()+"/status",
		map[string]interface{}{"status": "CONVERTED"}, frontDeskClaims(branchID))
	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestQuotationUpdateStatus_Accepted(t *testing.T) {
	branchID := uuid.New()
	quotation := testQuotation(branchID, enum.QuotationStatusAccepted)

	svc := &mockQuotationService{
		transitionFn: func(ctx context.Context, quotationID, bid uuid.UUID, next string) (database.Quotation, error) {
			if next != enum.QuotationStatusAccepted {
				t.Errorf("next: got %s, want ACCEPTED", next)
			}
			return quotation, nil
		},
	}
	router := setupQuotationRouter(svc, &mockQuotationReadStore{})

	rr := doAuthRequest(t, router, "PATCH", "/branches/"+branchID.String()+"/quotations/"+quotation.ID.String()+"/status",
		map[string]interface{}{"status": "ACCEPTED"}, frontDeskClaims(branchID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestQuotationConvert(t *testing.T) {
	branchID := uuid.New()
	claims := frontDeskClaims(branchID)
	quotation := testQuotation(branchID, enum.QuotationStatusConverted)

	svc := &mockQuotationService{
		convertFn: func(ctx context.Context, req service.ConvertQuotationRequest) (*service.ConvertQuotationResult, error) {
			if req.ActorID != claims.UserID {
				t.Errorf("actor_id: got %v, want %v", req.ActorID, claims.UserID)
			}
			result := testOrderResult(branchID, claims.UserID)
			return &service.ConvertQuotationResult{
				Quotation: quotation,
				Order:     result.Order,
				Garments:  result.Garments,
			}, nil
		},
	}
	router := setupQuotationRouter(svc, &mockQuotationReadStore{})

	rr := doAuthRequest(t, router, "POST", "/branches/"+branchID.String()+"/quotations/"+quotation.ID.String()+"/convert",
		map[string]interface{}{"service_type": "NORMAL", "collection_method": "DROP_OFF", "return_method": "COLLECT"}, claims)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	q, ok := resp["quotation"].(map[string]interface{})
	if !ok || q["status"] != "CONVERTED" {
		t.Errorf("quotation status: got %v, want CONVERTED", resp["quotation"])
	}
	order, ok := resp["order"].(map[string]interface{})
	if !ok || order["order_no"] != "ORD-HQ-20260826-001" {
		t.Errorf("order: got %v", resp["order"])
	}
}

func TestQuotationConvert_NotAccepted(t *testing.T) {
	branchID := uuid.New()
	svc := &mockQuotationService{
		convertFn: func(ctx context.Context, req service.ConvertQuotationRequest) (*service.ConvertQuotationResult, error) {
			return nil, service.ErrQuotationNotAccepted
		},
	}
	router := setupQuotationRouter(svc, &mockQuotationReadStore{})

	rr := doAuthRequest(t, router, "POST", "/branches/"+branchID.String()+"/quotations/"+uuid.New().String()+"/convert",
		map[string]interface{}{"service_type": "NORMAL"}, frontDeskClaims(branchID))
	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestQuotationList_StatusFilter(t *testing.T) {
	branchID := uuid.New()

	var captured database.ListQuotationsParams
	store := &mockQuotationReadStore{
		listQuotationsFn: func(ctx context.Context, arg database.ListQuotationsParams) ([]database.Quotation, error) {
			captured = arg
			return []database.Quotation{testQuotation(branchID, enum.QuotationStatusSent)}, nil
		},
	}
	router := setupQuotationRouter(&mockQuotationService{}, store)

	rr := doAuthRequest(t, router, "GET", "/branches/"+branchID.String()+"/quotations/?status=SENT", nil, frontDeskClaims(branchID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if !captured.Status.Valid || captured.Status.String != "SENT" {
		t.Errorf("status filter: got %+v, want SENT", captured.Status)
	}
}
