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

// RedoServicer defines the service methods needed by redo handlers.
// Satisfied by *service.RedoService; narrow interface for testability.
type RedoServicer interface {
	Create(ctx context.Context, req service.CreateRedoRequest) (database.RedoItem, error)
	Approve(ctx context.Context, itemID, branchID, actorID uuid.UUID, actorName string) (*service.ApproveRedoResult, error)
	Reject(ctx context.Context, itemID, branchID, actorID uuid.UUID) (database.RedoItem, error)
	Start(ctx context.Context, itemID, branchID uuid.UUID) (database.RedoItem, error)
	Finish(ctx context.Context, itemID, branchID uuid.UUID) (database.RedoItem, error)
	List(ctx context.Context, branchID uuid.UUID, status string, limit, offset int32) ([]database.RedoItem, error)
}

// RedoHandler handles redo item endpoints.
type RedoHandler struct {
	svc RedoServicer
	hub Broadcaster
}

// NewRedoHandler creates a new RedoHandler.
func NewRedoHandler(svc RedoServicer, hub Broadcaster) *RedoHandler {
	return &RedoHandler{svc: svc, hub: hub}
}

// RegisterRoutes registers redo endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/redo
func (h *RedoHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/reject", h.Reject)
	r.Post("/{id}/start", h.Start)
	r.Post("/{id}/finish", h.Finish)
}

// --- Request / Response types ---

type createRedoRequest struct {
	OrderID   string `json:"order_id"`
	GarmentID string `json:"garment_id"`
	Reason    string `json:"reason"`
}

type redoItemResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	GarmentID   uuid.UUID `json:"garment_id"`
	Reason      string    `json:"reason"`
	Status      string    `json:"status"`
	RedoOrderID *string   `json:"redo_order_id"`
	RequestedBy uuid.UUID `json:"requested_by"`
	ApprovedBy  *string   `json:"approved_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type approveRedoResponse struct {
	Item  redoItemResponse `json:"item"`
	Order orderResponse    `json:"order"`
}

// --- Handlers ---

// Create handles POST /branches/{bid}/redo.
func (h *RedoHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req createRedoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_id"})
		return
	}
	garmentID, err := uuid.Parse(req.GarmentID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid garment_id"})
		return
	}

	item, err := h.svc.Create(r.Context(), service.CreateRedoRequest{
		OrderID:     orderID,
		BranchID:    branchID,
		GarmentID:   garmentID,
		Reason:      req.Reason,
		RequestedBy: claims.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRedoReasonEmpty):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrGarmentNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: create redo item: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := dbRedoItemToResponse(item)
	h.broadcast(branchID, ws.EventRedoFlagged, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /branches/{bid}/redo.
func (h *RedoHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	limit, offset := parsePagination(r)
	items, err := h.svc.List(r.Context(), branchID, r.URL.Query().Get("status"), int32(limit), int32(offset))
	if err != nil {
		log.Printf("ERROR: list redo items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]redoItemResponse, len(items))
	for i, item := range items {
		resp[i] = dbRedoItemToResponse(item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": resp, "limit": limit, "offset": offset})
}

// Approve handles POST /branches/{bid}/redo/{id}/approve.
func (h *RedoHandler) Approve(w http.ResponseWriter, r *http.Request) {
	branchID, itemID, ok := parseBranchAndID(w, r)
	if !ok {
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	result, err := h.svc.Approve(r.Context(), itemID, branchID, claims.UserID, claims.Name)
	if err != nil {
		h.writeRedoError(w, err)
		return
	}

	resp := approveRedoResponse{
		Item:  dbRedoItemToResponse(result.Item),
		Order: dbOrderToResponse(result.Order),
	}
	h.broadcast(branchID, ws.EventOrderCreated, resp.Order)
	writeJSON(w, http.StatusOK, resp)
}

// Reject handles POST /branches/{bid}/redo/{id}/reject.
func (h *RedoHandler) Reject(w http.ResponseWriter, r *http.Request) {
	branchID, itemID, ok := parseBranchAndID(w, r)
	if !ok {
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	item, err := h.svc.Reject(r.Context(), itemID, branchID, claims.UserID)
	if err != nil {
		h.writeRedoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dbRedoItemToResponse(item))
}

// Start handles POST /branches/{bid}/redo/{id}/start.
func (h *RedoHandler) Start(w http.ResponseWriter, r *http.Request) {
	branchID, itemID, ok := parseBranchAndID(w, r)
	if !ok {
		return
	}

	item, err := h.svc.Start(r.Context(), itemID, branchID)
	if err != nil {
		h.writeRedoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dbRedoItemToResponse(item))
}

// Finish handles POST /branches/{bid}/redo/{id}/finish.
func (h *RedoHandler) Finish(w http.ResponseWriter, r *http.Request) {
	branchID, itemID, ok := parseBranchAndID(w, r)
	if !ok {
		return
	}

	item, err := h.svc.Finish(r.Context(), itemID, branchID)
	if err != nil {
		h.writeRedoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dbRedoItemToResponse(item))
}

// --- Helpers ---

func (h *RedoHandler) writeRedoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrRedoItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrRedoNotPending), errors.Is(err, service.ErrRedoConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: redo item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func (h *RedoHandler) broadcast(branchID uuid.UUID, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal ws payload: %v", err)
		return
	}
	h.hub.BroadcastToBranch(branchID, ws.Event{Type: eventType, Payload: raw})
}

func dbRedoItemToResponse(item database.RedoItem) redoItemResponse {
	resp := redoItemResponse{
		ID:          item.ID,
		OrderID:     item.OrderID,
		GarmentID:   item.GarmentID,
		Reason:      item.Reason,
		Status:      item.Status,
		RequestedBy: item.RequestedBy,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	if item.RedoOrderID.Valid {
		s := uuid.UUID(item.RedoOrderID.Bytes).String()
		resp.RedoOrderID = &s
	}
	if item.ApprovedBy.Valid {
		s := uuid.UUID(item.ApprovedBy.Bytes).String()
		resp.ApprovedBy = &s
	}
	return resp
}
