package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/middleware"
	"github.com/cleanline-pos/api/internal/service"
)

// QuotationServicer defines the service methods needed by quotation handlers.
// Satisfied by *service.QuotationService; narrow interface for testability.
type QuotationServicer interface {
	Create(ctx context.Context, req service.CreateQuotationRequest) (database.Quotation, error)
	Transition(ctx context.Context, quotationID, branchID uuid.UUID, next string) (database.Quotation, error)
	Convert(ctx context.Context, req service.ConvertQuotationRequest) (*service.ConvertQuotationResult, error)
}

// QuotationStore defines the database methods needed by quotation read handlers.
type QuotationStore interface {
	GetBranchByID(ctx context.Context, id uuid.UUID) (database.Branch, error)
	GetQuotation(ctx context.Context, arg database.GetQuotationParams) (database.Quotation, error)
	ListQuotations(ctx context.Context, arg database.ListQuotationsParams) ([]database.Quotation, error)
}

// QuotationHandler handles quotation endpoints.
type QuotationHandler struct {
	svc   QuotationServicer
	store QuotationStore
}

// NewQuotationHandler creates a new QuotationHandler.
func NewQuotationHandler(svc QuotationServicer, store QuotationStore) *QuotationHandler {
	return &QuotationHandler{svc: svc, store: store}
}

// RegisterRoutes registers quotation endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/quotations
func (h *QuotationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/convert", h.Convert)
}

// --- Request / Response types ---

type createQuotationRequest struct {
	CustomerID string                   `json:"customer_id"`
	Items      []database.QuotationItem `json:"items"`
	ValidUntil string                   `json:"valid_until"`
}

type quotationResponse struct {
	ID               uuid.UUID                `json:"id"`
	QuotationNo      string                   `json:"quotation_no"`
	BranchID         uuid.UUID                `json:"branch_id"`
	CustomerID       uuid.UUID                `json:"customer_id"`
	Status           string                   `json:"status"`
	Items            []database.QuotationItem `json:"items"`
	TotalAmount      string                   `json:"total_amount"`
	ValidUntil       *time.Time               `json:"valid_until"`
	ConvertedOrderID *string                  `json:"converted_order_id"`
	CreatedBy        uuid.UUID                `json:"created_by"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

type updateQuotationStatusRequest struct {
	Status string `json:"status"`
}

type convertQuotationRequest struct {
	ServiceType      string `json:"service_type"`
	CollectionMethod string `json:"collection_method"`
	ReturnMethod     string `json:"return_method"`
}

type convertQuotationResponse struct {
	Quotation quotationResponse `json:"quotation"`
	Order     orderResponse     `json:"order"`
}

// --- Handlers ---

// Create handles POST /branches/{bid}/quotations.
func (h *QuotationHandler) Create(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createQuotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer_id"})
		return
	}

	branch, err := h.store.GetBranchByID(r.Context(), branchID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "branch not found"})
		return
	}

	quotation, err := h.svc.Create(r.Context(), service.CreateQuotationRequest{
		BranchID:   branchID,
		BranchCode: branch.Code,
		CustomerID: customerID,
		Items:      req.Items,
		ValidUntil: req.ValidUntil,
		CreatedBy:  claims.UserID,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuotationItems) || errors.Is(err, service.ErrInvalidQuotationItem) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create quotation: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbQuotationToResponse(quotation))
}

// List handles GET /branches/{bid}/quotations.
func (h *QuotationHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	limit, offset := parsePagination(r)
	params := database.ListQuotationsParams{
		BranchID: branchID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	quotations, err := h.store.ListQuotations(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list quotations: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]quotationResponse, len(quotations))
	for i, q := range quotations {
		resp[i] = dbQuotationToResponse(q)
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotations": resp, "limit": limit, "offset": offset})
}

// Get handles GET /branches/{bid}/quotations/{id}.
func (h *QuotationHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, quotationID, ok := parseBranchAndID(w, r)
	if !ok {
		return
	}

	quotation, err := h.store.GetQuotation(r.Context(), database.GetQuotationParams{
		ID:       quotationID,
		BranchID: branchID,
	})
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "quotation not found"})
		return
	}
	writeJSON(w, http.StatusOK, dbQuotationToResponse(quotation))
}

// UpdateStatus handles PATCH /branches/{bid}/quotations/{id}/status.
func (h *QuotationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	branchID, quotationID, ok := parseBranchAndID(w, r)
	if !ok {
		return
	}

	var req updateQuotationStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	updated, err := h.svc.Transition(r.Context(), quotationID, branchID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuotationNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidQuotationStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrIllegalQuotationTransition), errors.Is(err, service.ErrQuotationConflict):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: quotation transition: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}
	writeJSON(w, http.StatusOK, dbQuotationToResponse(updated))
}

// Convert handles POST /branches/{bid}/quotations/{id}/convert.
func (h *QuotationHandler) Convert(w http.ResponseWriter, r *http.Request) {
	branchID, quotationID, ok := parseBranchAndID(w, r)
	if !ok {
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req convertQuotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	branch, err := h.store.GetBranchByID(r.Context(), branchID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "branch not found"})
		return
	}

	result, err := h.svc.Convert(r.Context(), service.ConvertQuotationRequest{
		QuotationID:      quotationID,
		BranchID:         branchID,
		BranchCode:       branch.Code,
		ServiceType:      req.ServiceType,
		CollectionMethod: req.CollectionMethod,
		ReturnMethod:     req.ReturnMethod,
		ActorID:          claims.UserID,
		ActorName:        claims.Name,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuotationNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrQuotationNotAccepted), errors.Is(err, service.ErrQuotationConflict):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case isOrderValidationError(err):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: convert quotation: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, convertQuotationResponse{
		Quotation: dbQuotationToResponse(result.Quotation),
		Order:     dbOrderToResponse(result.Order),
	})
}

// --- Helpers ---

func dbQuotationToResponse(q database.Quotation) quotationResponse {
	resp := quotationResponse{
		ID:          q.ID,
		QuotationNo: q.QuotationNo,
		BranchID:    q.BranchID,
		CustomerID:  q.CustomerID,
		Status:      q.Status,
		Items:       q.Items,
		TotalAmount: numericToString(q.TotalAmount),
		CreatedBy:   q.CreatedBy,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
	if q.ValidUntil.Valid {
		resp.ValidUntil = &q.ValidUntil.Time
	}
	if q.ConvertedOrderID.Valid {
		s := uuid.UUID(q.ConvertedOrderID.Bytes).String()
		resp.ConvertedOrderID = &s
	}
	return resp
}
