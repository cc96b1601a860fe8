package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/enum"
	"github.com/cleanline-pos/api/internal/middleware"
	"github.com/cleanline-pos/api/internal/service"
	"github.com/cleanline-pos/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	Transition(ctx context.Context, req service.TransitionRequest) (database.Order, error)
	CompleteStage(ctx context.Context, req service.CompleteStageRequest) (*service.CompleteStageResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetBranchByID(ctx context.Context, id uuid.UUID) (database.Branch, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListGarmentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Garment, error)
	ListStageCompletionsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.StageCompletion, error)
	ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]database.StatusHistory, error)
}

// Broadcaster pushes dashboard events to branch rooms. Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToBranch(branchID uuid.UUID, event ws.Event)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	hub   Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Get("/{id}/history", h.History)
	r.Delete("/{id}", h.Cancel)
}

// RegisterStageRoutes registers the stage-completion endpoint. Kept separate
// from RegisterRoutes so the router can gate it on the workstation
// capability rather than order management.
func (h *OrderHandler) RegisterStageRoutes(r chi.Router) {
	r.Post("/{id}/garments/{gid}/stages", h.CompleteStage)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerID        string                 `json:"customer_id"`
	ServiceType       string                 `json:"service_type"`
	CollectionMethod  string                 `json:"collection_method"`
	CollectionAddress string                 `json:"collection_address"`
	ReturnMethod      string                 `json:"return_method"`
	ReturnAddress     string                 `json:"return_address"`
	PaidAmount        string                 `json:"paid_amount"`
	EstimatedReadyAt  string                 `json:"estimated_ready_at"`
	Garments          []createGarmentRequest `json:"garments"`
}

type createGarmentRequest struct {
	Type     string   `json:"type"`
	Color    string   `json:"color"`
	Brand    string   `json:"brand"`
	Services []string `json:"services"`
	Price    string   `json:"price"`
}

type orderResponse struct {
	ID                uuid.UUID         `json:"id"`
	OrderNo           string            `json:"order_no"`
	BranchID          uuid.UUID         `json:"branch_id"`
	CustomerID        uuid.UUID         `json:"customer_id"`
	Status            string            `json:"status"`
	ServiceType       string            `json:"service_type"`
	CollectionMethod  string            `json:"collection_method"`
	CollectionAddress *string           `json:"collection_address"`
	ReturnMethod      string            `json:"return_method"`
	ReturnAddress     *string           `json:"return_address"`
	TotalAmount       string            `json:"total_amount"`
	PaidAmount        string            `json:"paid_amount"`
	PaymentStatus     string            `json:"payment_status"`
	EstimatedReadyAt  *time.Time        `json:"estimated_ready_at"`
	CompletedAt       *time.Time        `json:"completed_at"`
	FeedbackEligible  bool              `json:"feedback_eligible"`
	ParentRedoItemID  *string           `json:"parent_redo_item_id"`
	CreatedBy         uuid.UUID         `json:"created_by"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	Garments          []garmentResponse `json:"garments,omitempty"`
}

type garmentResponse struct {
	ID        uuid.UUID `json:"id"`
	GarmentNo int32     `json:"garment_no"`
	Type      string    `json:"type"`
	Color     *string   `json:"color"`
	Brand     *string   `json:"brand"`
	Services  []string  `json:"services"`
	Price     string    `json:"price"`
}

type stageCompletionResponse struct {
	ID          uuid.UUID  `json:"id"`
	GarmentID   uuid.UUID  `json:"garment_id"`
	Stage       string     `json:"stage"`
	StaffID     uuid.UUID  `json:"staff_id"`
	StaffName   string     `json:"staff_name"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
}

type statusHistoryResponse struct {
	Status    string    `json:"status"`
	ActorID   uuid.UUID `json:"actor_id"`
	ActorName string    `json:"actor_name"`
	CreatedAt time.Time `json:"created_at"`
}

// orderDetailResponse extends orderResponse with per-garment progress.
type orderDetailResponse struct {
	orderResponse
	StageCompletions []stageCompletionResponse `json:"stage_completions"`
	StatusHistory    []statusHistoryResponse   `json:"status_history"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type completeStageRequest struct {
	Stage     string `json:"stage"`
	StartedAt string `json:"started_at"`
}

type completeStageResponse struct {
	Completion  stageCompletionResponse `json:"completion"`
	AllComplete bool                    `json:"all_complete"`
	Advanced    bool                    `json:"advanced"`
	Order       orderResponse           `json:"order"`
}

// --- Handlers ---

// Create handles POST /branches/{bid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer_id"})
		return
	}
	if len(req.Garments) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "garments are required"})
		return
	}
	for i, g := range req.Garments {
		if g.Type == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "garments[" + strconv.Itoa(i) + "]: type is required",
			})
			return
		}
	}

	branch, err := h.store.GetBranchByID(r.Context(), branchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "branch not found"})
			return
		}
		log.Printf("ERROR: get branch: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	garments := make([]service.CreateGarmentRequest, len(req.Garments))
	for i, g := range req.Garments {
		garments[i] = service.CreateGarmentRequest{
			Type:     g.Type,
			Color:    g.Color,
			Brand:    g.Brand,
			Services: g.Services,
			Price:    g.Price,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		BranchID:          branchID,
		BranchCode:        branch.Code,
		CustomerID:        customerID,
		ServiceType:       req.ServiceType,
		CollectionMethod:  req.CollectionMethod,
		CollectionAddress: req.CollectionAddress,
		ReturnMethod:      req.ReturnMethod,
		ReturnAddress:     req.ReturnAddress,
		PaidAmount:        req.PaidAmount,
		EstimatedReadyAt:  req.EstimatedReadyAt,
		CreatedBy:         claims.UserID,
		CreatedByName:     claims.Name,
		Garments:          garments,
	})
	if err != nil {
		if isOrderValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(result.Order)
	resp.Garments = make([]garmentResponse, len(result.Garments))
	for i, g := range result.Garments {
		resp.Garments[i] = dbGarmentToResponse(g)
	}

	h.broadcast(branchID, ws.EventOrderCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /branches/{bid}/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	limit, offset := parsePagination(r)

	params := database.ListOrdersParams{
		BranchID: branchID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("customer_id"); s != "" {
		cid, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer_id"})
			return
		}
		params.CustomerID = pgtype.UUID{Bytes: cid, Valid: true}
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t.AddDate(0, 0, 1), Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /branches/{bid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, orderID, ok := parseBranchAndID(w, r)
	if !ok {
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{
		ID:       orderID,
		BranchID: branchID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	garments, err := h.store.ListGarmentsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list garments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	completions, err := h.store.ListStageCompletionsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list stage completions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	history, err := h.store.ListStatusHistory(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list status history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(order)
	resp.Garments = make([]garmentResponse, len(garments))
	for i, g := range garments {
		resp.Garments[i] = dbGarmentToResponse(g)
	}

	completionResps := make([]stageCompletionResponse, len(completions))
	for i, c := range completions {
		completionResps[i] = dbStageCompletionToResponse(c)
	}
	historyResps := make([]statusHistoryResponse, len(history))
	for i, e := range history {
		historyResps[i] = statusHistoryResponse{
			Status:    e.Status,
			ActorID:   e.ActorID,
			ActorName: e.ActorName,
			CreatedAt: e.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{
		orderResponse:    resp,
		StageCompletions: completionResps,
		StatusHistory:    historyResps,
	})
}

// UpdateStatus handles PATCH /branches/{bid}/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	branchID, orderID, ok := parseBranchAndID(w, r)
	if !ok {
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	updated, err := h.svc.Transition(r.Context(), service.TransitionRequest{
		OrderID:   orderID,
		BranchID:  branchID,
		Status:    req.Status,
		ActorID:   claims.UserID,
		ActorName: claims.Name,
	})
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}

	resp := dbOrderToResponse(updated)
	h.broadcast(branchID, ws.EventOrderStatus, resp)
	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /branches/{bid}/orders/{id}/history.
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	branchID, orderID, ok := parseBranchAndID(w, r)
	if !ok {
		return
	}

	if _, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, BranchID: branchID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	history, err := h.store.ListStatusHistory(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list status history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]statusHistoryResponse, len(history))
	for i, e := range history {
		resp[i] = statusHistoryResponse{
			Status:    e.Status,
			ActorID:   e.ActorID,
			ActorName: e.ActorName,
			CreatedAt: e.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": resp})
}

// CompleteStage handles POST /branches/{bid}/orders/{id}/garments/{gid}/stages.
func (h *OrderHandler) CompleteStage(w http.ResponseWriter, r *http.Request) {
	branchID, orderID, ok := parseBranchAndID(w, r)
	if !ok {
		return
	}

	garmentID, err := uuid.Parse(chi.URLParam(r, "gid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid garment ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req completeStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Stage == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stage is required"})
		return
	}

	result, err := h.svc.CompleteStage(r.Context(), service.CompleteStageRequest{
		OrderID:   orderID,
		BranchID:  branchID,
		GarmentID: garmentID,
		Stage:     req.Stage,
		ActorID:   claims.UserID,
		ActorName: claims.Name,
		StartedAt: req.StartedAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrGarmentNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrStageAlreadyDone):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidStage):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrIllegalTransition):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: complete stage: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := completeStageResponse{
		Completion:  dbStageCompletionToResponse(result.Completion),
		AllComplete: result.AllComplete,
		Advanced:    result.Advanced,
		Order:       dbOrderToResponse(result.Order),
	}

	h.broadcast(branchID, ws.EventStageComplete, resp)
	if result.Advanced {
		h.broadcast(branchID, ws.EventOrderStatus, resp.Order)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Cancel handles DELETE /branches/{bid}/orders/{id}.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	branchID, orderID, ok := parseBranchAndID(w, r)
	if !ok {
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	updated, err := h.svc.Transition(r.Context(), service.TransitionRequest{
		OrderID:   orderID,
		BranchID:  branchID,
		Status:    enum.OrderStatusCancelled,
		ActorID:   claims.UserID,
		ActorName: claims.Name,
	})
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}

	resp := dbOrderToResponse(updated)
	h.broadcast(branchID, ws.EventOrderStatus, resp)
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func (h *OrderHandler) writeTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrIllegalTransition), errors.Is(err, service.ErrStageIncomplete):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: order transition: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func (h *OrderHandler) broadcast(branchID uuid.UUID, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal ws payload: %v", err)
		return
	}
	h.hub.BroadcastToBranch(branchID, ws.Event{Type: eventType, Payload: raw})
}

func parseBranchAndID(w http.ResponseWriter, r *http.Request) (branchID, id uuid.UUID, ok bool) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return uuid.Nil, uuid.Nil, false
	}
	id, err = uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ID"})
		return uuid.Nil, uuid.Nil, false
	}
	return branchID, id, true
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}
	offset = 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyGarments) ||
		errors.Is(err, service.ErrInvalidServiceType) ||
		errors.Is(err, service.ErrInvalidCollectionMethod) ||
		errors.Is(err, service.ErrInvalidReturnMethod) ||
		errors.Is(err, service.ErrInvalidPrice) ||
		errors.Is(err, service.ErrInvalidPaidAmount) ||
		errors.Is(err, service.ErrInvalidReadyAt)
}

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:               o.ID,
		OrderNo:          o.OrderNo,
		BranchID:         o.BranchID,
		CustomerID:       o.CustomerID,
		Status:           o.Status,
		ServiceType:      o.ServiceType,
		CollectionMethod: o.CollectionMethod,
		ReturnMethod:     o.ReturnMethod,
		TotalAmount:      numericToString(o.TotalAmount),
		PaidAmount:       numericToString(o.PaidAmount),
		PaymentStatus:    o.PaymentStatus,
		FeedbackEligible: o.FeedbackEligible,
		CreatedBy:        o.CreatedBy,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}

	if o.CollectionAddress.Valid {
		resp.CollectionAddress = &o.CollectionAddress.String
	}
	if o.ReturnAddress.Valid {
		resp.ReturnAddress = &o.ReturnAddress.String
	}
	if o.EstimatedReadyAt.Valid {
		resp.EstimatedReadyAt = &o.EstimatedReadyAt.Time
	}
	if o.CompletedAt.Valid {
		resp.CompletedAt = &o.CompletedAt.Time
	}
	if o.ParentRedoItemID.Valid {
		s := uuid.UUID(o.ParentRedoItemID.Bytes).String()
		resp.ParentRedoItemID = &s
	}

	return resp
}

func dbGarmentToResponse(g database.Garment) garmentResponse {
	resp := garmentResponse{
		ID:        g.ID,
		GarmentNo: g.GarmentNo,
		Type:      g.Type,
		Services:  g.Services,
		Price:     numericToString(g.Price),
	}
	if g.Color.Valid {
		resp.Color = &g.Color.String
	}
	if g.Brand.Valid {
		resp.Brand = &g.Brand.String
	}
	return resp
}

func dbStageCompletionToResponse(c database.StageCompletion) stageCompletionResponse {
	resp := stageCompletionResponse{
		ID:          c.ID,
		GarmentID:   c.GarmentID,
		Stage:       c.Stage,
		StaffID:     c.StaffID,
		StaffName:   c.StaffName,
		CompletedAt: c.CompletedAt,
	}
	if c.StartedAt.Valid {
		resp.StartedAt = &c.StartedAt.Time
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
