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

	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/middleware"
	"github.com/cleanline-pos/api/internal/service"
	"github.com/cleanline-pos/api/internal/ws"
)

// BatchServicer defines the service methods needed by batch handlers.
// Satisfied by *service.BatchService; narrow interface for testability.
type BatchServicer interface {
	Create(ctx context.Context, req service.CreateBatchRequest) (database.Batch, error)
	ListMine(ctx context.Context, branchID, staffID uuid.UUID) ([]database.Batch, error)
	Get(ctx context.Context, branchID, batchID uuid.UUID) (database.Batch, []uuid.UUID, error)
	Complete(ctx context.Context, branchID, batchID, actorID uuid.UUID, actorName string) (*service.CompleteBatchResult, error)
}

// BatchHandler handles processing batch endpoints.
type BatchHandler struct {
	svc BatchServicer
	hub Broadcaster
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(svc BatchServicer, hub Broadcaster) *BatchHandler {
	return &BatchHandler{svc: svc, hub: hub}
}

// RegisterRoutes registers batch endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/batches
func (h *BatchHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/mine", h.ListMine)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/complete", h.Complete)
}

// --- Request / Response types ---

type createBatchRequest struct {
	Stage         string   `json:"stage"`
	OrderIDs      []string `json:"order_ids"`
	AssignedStaff []string `json:"assigned_staff"`
}

type batchResponse struct {
	ID            uuid.UUID   `json:"id"`
	BranchID      uuid.UUID   `json:"branch_id"`
	Stage         string      `json:"stage"`
	Status        string      `json:"status"`
	GarmentCount  int32       `json:"garment_count"`
	AssignedStaff []uuid.UUID `json:"assigned_staff"`
	StartedAt     time.Time   `json:"started_at"`
	CompletedAt   *time.Time  `json:"completed_at"`
	CreatedBy     uuid.UUID   `json:"created_by"`
	OrderIDs      []uuid.UUID `json:"order_ids,omitempty"`
}

type completeBatchResponse struct {
	Batch    batchResponse               `json:"batch"`
	Complete bool                        `json:"complete"`
	Advanced []uuid.UUID                 `json:"advanced"`
	Failed   []service.BatchOrderFailure `json:"failed,omitempty"`
}

// --- Handlers ---

// Create handles POST /branches/{bid}/batches.
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req createBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	orderIDs := make([]uuid.UUID, len(req.OrderIDs))
	for i, s := range req.OrderIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id in order_ids"})
			return
		}
		orderIDs[i] = id
	}
	staff := make([]uuid.UUID, len(req.AssignedStaff))
	for i, s := range req.AssignedStaff {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id in assigned_staff"})
			return
		}
		staff[i] = id
	}
	if len(staff) == 0 {
		staff = []uuid.UUID{claims.UserID}
	}

	batch, err := h.svc.Create(r.Context(), service.CreateBatchRequest{
		BranchID:      branchID,
		Stage:         req.Stage,
		OrderIDs:      orderIDs,
		AssignedStaff: staff,
		CreatedBy:     claims.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidBatchStage), errors.Is(err, service.ErrEmptyBatch):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrOrderAlreadyBatched):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: create batch: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := dbBatchToResponse(batch)
	resp.OrderIDs = orderIDs
	writeJSON(w, http.StatusCreated, resp)
}

// ListMine handles GET /branches/{bid}/batches/mine.
func (h *BatchHandler) ListMine(w http.ResponseWriter, r *http.Request) {
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

	batches, err := h.svc.ListMine(r.Context(), branchID, claims.UserID)
	if err != nil {
		log.Printf("ERROR: list batches: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]batchResponse, len(batches))
	for i, b := range batches {
		resp[i] = dbBatchToResponse(b)
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": resp})
}

// Get handles GET /branches/{bid}/batches/{id}.
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, batchID, ok := parseBranchAndID(w, r)
	if !ok {
		return
	}

	batch, orderIDs, err := h.svc.Get(r.Context(), branchID, batchID)
	if err != nil {
		if errors.Is(err, service.ErrBatchNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: get batch: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbBatchToResponse(batch)
	resp.OrderIDs = orderIDs
	writeJSON(w, http.StatusOK, resp)
}

// Complete handles POST /branches/{bid}/batches/{id}/complete.
// Responds 200 when every order advanced, 207 when some failed.
func (h *BatchHandler) Complete(w http.ResponseWriter, r *http.Request) {
	branchID, batchID, ok := parseBranchAndID(w, r)
	if !ok {
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	result, err := h.svc.Complete(r.Context(), branchID, batchID, claims.UserID, claims.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBatchNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrBatchNotOpen):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: complete batch: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := completeBatchResponse{
		Batch:    dbBatchToResponse(result.Batch),
		Complete: len(result.Failed) == 0,
		Advanced: result.Advanced,
		Failed:   result.Failed,
	}

	if resp.Complete {
		h.broadcast(branchID, ws.EventBatchComplete, resp)
		writeJSON(w, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusMultiStatus, resp)
}

// --- Helpers ---

func (h *BatchHandler) broadcast(branchID uuid.UUID, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal ws payload: %v", err)
		return
	}
	h.hub.BroadcastToBranch(branchID, ws.Event{Type: eventType, Payload: raw})
}

func dbBatchToResponse(b database.Batch) batchResponse {
	resp := batchResponse{
		ID:            b.ID,
		BranchID:      b.BranchID,
		Stage:         b.Stage,
		Status:        b.Status,
		GarmentCount:  b.GarmentCount,
		AssignedStaff: b.AssignedStaff,
		StartedAt:     b.StartedAt,
		CreatedBy:     b.CreatedBy,
	}
	if b.CompletedAt.Valid {
		resp.CompletedAt = &b.CompletedAt.Time
	}
	return resp
}
