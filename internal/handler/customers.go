package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/enum"
)

// CustomerStore defines the database methods needed by customer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
	ListCustomers(ctx context.Context, arg database.ListCustomersParams) ([]database.Customer, error)
	UpdateCustomer(ctx context.Context, arg database.UpdateCustomerParams) (database.Customer, error)
}

// CustomerHandler handles customer endpoints.
type CustomerHandler struct {
	store CustomerStore
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore) *CustomerHandler {
	return &CustomerHandler{store: store}
}

// RegisterRoutes registers customer endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/customers
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Post("/validate-phone", h.ValidatePhone)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
}

// phoneRe accepts international format with optional + and 7-15 digits.
var phoneRe = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// --- Request / Response types ---

type customerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Segment string `json:"segment"`
}

type customerResponse struct {
	ID        uuid.UUID `json:"id"`
	BranchID  uuid.UUID `json:"branch_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     *string   `json:"email"`
	Segment   string    `json:"segment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// --- Handlers ---

// Create handles POST /branches/{bid}/customers.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	req, ok := decodeCustomerRequest(w, r)
	if !ok {
		return
	}

	customer, err := h.store.CreateCustomer(r.Context(), database.CreateCustomerParams{
		BranchID: branchID,
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    optionalText(req.Email),
		Segment:  req.Segment,
	})
	if err != nil {
		log.Printf("ERROR: create customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, dbCustomerToResponse(customer))
}

// List handles GET /branches/{bid}/customers.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	limit, offset := parsePagination(r)
	params := database.ListCustomersParams{
		BranchID: branchID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	}
	if s := r.URL.Query().Get("search"); s != "" {
		params.Search = pgtype.Text{String: s, Valid: true}
	}

	customers, err := h.store.ListCustomers(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list customers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]customerResponse, len(customers))
	for i, c := range customers {
		resp[i] = dbCustomerToResponse(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": resp, "limit": limit, "offset": offset})
}

// Get handles GET /branches/{bid}/customers/{id}.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, customerID, ok := parseBranchAndID(w, r)
	if !ok {
		return
	}

	customer, err := h.store.GetCustomer(r.Context(), database.GetCustomerParams{
		ID:       customerID,
		BranchID: branchID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		log.Printf("ERROR: get customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, dbCustomerToResponse(customer))
}

// Update handles PUT /branches/{bid}/customers/{id}.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	branchID, customerID, ok := parseBranchAndID(w, r)
	if !ok {
		return
	}

	req, ok := decodeCustomerRequest(w, r)
	if !ok {
		return
	}

	customer, err := h.store.UpdateCustomer(r.Context(), database.UpdateCustomerParams{
		ID:       customerID,
		BranchID: branchID,
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    optionalText(req.Email),
		Segment:  req.Segment,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		log.Printf("ERROR: update customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, dbCustomerToResponse(customer))
}

// ValidatePhone handles POST /branches/{bid}/customers/validate-phone.
// Front-desk forms call this before submitting a customer so typos are
// caught while the customer is still at the counter.
func (h *CustomerHandler) ValidatePhone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	normalized := phoneSeparatorRe.ReplaceAllString(req.Phone, "")
	if !phoneRe.MatchString(normalized) {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false})
		return
	}
	if normalized[0] != '+' {
		normalized = "+" + normalized
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "normalized": normalized})
}

// --- Helpers ---

// phoneSeparatorRe strips spaces, dashes, dots, and parentheses before
// validation so formatted numbers like "+254 (711) 000-222" pass.
var phoneSeparatorRe = regexp.MustCompile(`[\s\-().]`)

func decodeCustomerRequest(w http.ResponseWriter, r *http.Request) (customerRequest, bool) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return req, false
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return req, false
	}
	if !phoneRe.MatchString(req.Phone) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid phone number"})
		return req, false
	}
	if req.Segment == "" {
		req.Segment = enum.CustomerSegmentRegular
	}
	switch req.Segment {
	case enum.CustomerSegmentRegular, enum.CustomerSegmentVIP, enum.CustomerSegmentCorporate:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid segment"})
		return req, false
	}
	return req, true
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func dbCustomerToResponse(c database.Customer) customerResponse {
	resp := customerResponse{
		ID:        c.ID,
		BranchID:  c.BranchID,
		Name:      c.Name,
		Phone:     c.Phone,
		Segment:   c.Segment,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.Email.Valid {
		resp.Email = &c.Email.String
	}
	return resp
}
