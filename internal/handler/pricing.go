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
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/service"
)

// PricingServicer defines the service methods needed by pricing handlers.
// Satisfied by *service.PricingService; narrow interface for testability.
type PricingServicer interface {
	Calculate(ctx context.Context, req service.CalculateRequest) (*service.CalculateResult, error)
}

// PricingStore defines the database methods needed by rule CRUD handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PricingStore interface {
	CreatePricingRule(ctx context.Context, arg database.CreatePricingRuleParams) (database.PricingRule, error)
	GetPricingRule(ctx context.Context, id uuid.UUID) (database.PricingRule, error)
	ListPricingRules(ctx context.Context, limit, offset int32) ([]database.PricingRule, error)
	DeactivatePricingRule(ctx context.Context, id uuid.UUID) (database.PricingRule, error)
}

// PricingHandler handles pricing rule and calculation endpoints.
type PricingHandler struct {
	svc   PricingServicer
	store PricingStore
}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler(svc PricingServicer, store PricingStore) *PricingHandler {
	return &PricingHandler{svc: svc, store: store}
}

// RegisterRoutes registers pricing endpoints on the given Chi router.
func (h *PricingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/rules", h.CreateRule)
	r.Get("/rules", h.ListRules)
	r.Get("/rules/{id}", h.GetRule)
	r.Delete("/rules/{id}", h.DeactivateRule)
	r.Post("/calculate", h.Calculate)
}

// --- Request / Response types ---

type createRuleRequest struct {
	ServiceType     string `json:"service_type"`
	BranchCode      string `json:"branch_code"`
	Segment         string `json:"segment"`
	PricingType     string `json:"pricing_type"`
	BasePrice       string `json:"base_price"`
	PricePerKg      string `json:"price_per_kg"`
	MinWeightKg     string `json:"min_weight_kg"`
	MaxWeightKg     string `json:"max_weight_kg"`
	DiscountPercent string `json:"discount_percent"`
	Priority        int32  `json:"priority"`
}

type ruleResponse struct {
	ID              uuid.UUID `json:"id"`
	RuleNo          string    `json:"rule_no"`
	ServiceType     string    `json:"service_type"`
	BranchCode      string    `json:"branch_code"`
	Segment         string    `json:"segment"`
	PricingType     string    `json:"pricing_type"`
	BasePrice       string    `json:"base_price"`
	PricePerKg      string    `json:"price_per_kg"`
	MinWeightKg     *string   `json:"min_weight_kg"`
	MaxWeightKg     *string   `json:"max_weight_kg"`
	DiscountPercent string    `json:"discount_percent"`
	Priority        int32     `json:"priority"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

type calculateRequest struct {
	ServiceType string `json:"service_type"`
	BranchCode  string `json:"branch_code"`
	Segment     string `json:"segment"`
	WeightKg    string `json:"weight_kg"`
	Quantity    int32  `json:"quantity"`
}

// --- Handlers ---

// CreateRule handles POST /pricing/rules.
func (h *PricingHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := service.ValidatePricingType(req.PricingType); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.ServiceType == "" || req.Segment == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "service_type and segment are required"})
		return
	}
	if req.BranchCode == "" {
		req.BranchCode = service.AllBranches
	}

	basePrice, err := parsePriceField(req.BasePrice)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid base_price"})
		return
	}
	perKg, err := parsePriceField(req.PricePerKg)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price_per_kg"})
		return
	}
	discount, err := parsePriceField(req.DiscountPercent)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid discount_percent"})
		return
	}

	minWeight, err := parseOptionalNumeric(req.MinWeightKg)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid min_weight_kg"})
		return
	}
	maxWeight, err := parseOptionalNumeric(req.MaxWeightKg)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid max_weight_kg"})
		return
	}

	rule, err := h.store.CreatePricingRule(r.Context(), database.CreatePricingRuleParams{
		RuleNo:          service.NewRuleNo(),
		ServiceType:     req.ServiceType,
		BranchCode:      req.BranchCode,
		Segment:         req.Segment,
		PricingType:     req.PricingType,
		BasePrice:       basePrice,
		PricePerKg:      perKg,
		MinWeightKg:     minWeight,
		MaxWeightKg:     maxWeight,
		DiscountPercent: discount,
		Priority:        req.Priority,
	})
	if err != nil {
		log.Printf("ERROR: create pricing rule: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbRuleToResponse(rule))
}

// ListRules handles GET /pricing/rules.
func (h *PricingHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	rules, err := h.store.ListPricingRules(r.Context(), int32(limit), int32(offset))
	if err != nil {
		log.Printf("ERROR: list pricing rules: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]ruleResponse, len(rules))
	for i, rule := range rules {
		resp[i] = dbRuleToResponse(rule)
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": resp, "limit": limit, "offset": offset})
}

// GetRule handles GET /pricing/rules/{id}.
func (h *PricingHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid rule ID"})
		return
	}

	rule, err := h.store.GetPricingRule(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "rule not found"})
			return
		}
		log.Printf("ERROR: get pricing rule: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, dbRuleToResponse(rule))
}

// DeactivateRule handles DELETE /pricing/rules/{id}. Rules are never hard
// deleted so past price calculations stay explainable.
func (h *PricingHandler) DeactivateRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid rule ID"})
		return
	}

	rule, err := h.store.DeactivatePricingRule(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "rule not found"})
			return
		}
		log.Printf("ERROR: deactivate pricing rule: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, dbRuleToResponse(rule))
}

// Calculate handles POST /pricing/calculate.
func (h *PricingHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	result, err := h.svc.Calculate(r.Context(), service.CalculateRequest{
		ServiceType: req.ServiceType,
		BranchCode:  req.BranchCode,
		Segment:     req.Segment,
		WeightKg:    req.WeightKg,
		Quantity:    req.Quantity,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidServiceType),
			errors.Is(err, service.ErrInvalidSegment),
			errors.Is(err, service.ErrInvalidWeight),
			errors.Is(err, service.ErrInvalidQuantity):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: calculate price: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// --- Helpers ---

func parsePriceField(s string) (pgtype.Numeric, error) {
	if s == "" {
		s = "0"
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return pgtype.Numeric{}, errors.New("invalid amount")
	}
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(2)); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func parseOptionalNumeric(s string) (pgtype.Numeric, error) {
	if s == "" {
		return pgtype.Numeric{}, nil
	}
	return parsePriceField(s)
}

func dbRuleToResponse(rule database.PricingRule) ruleResponse {
	resp := ruleResponse{
		ID:              rule.ID,
		RuleNo:          rule.RuleNo,
		ServiceType:     rule.ServiceType,
		BranchCode:      rule.BranchCode,
		Segment:         rule.Segment,
		PricingType:     rule.PricingType,
		BasePrice:       numericToString(rule.BasePrice),
		PricePerKg:      numericToString(rule.PricePerKg),
		DiscountPercent: numericToString(rule.DiscountPercent),
		Priority:        rule.Priority,
		Active:          rule.Active,
		CreatedAt:       rule.CreatedAt,
	}
	if rule.MinWeightKg.Valid {
		s := numericToString(rule.MinWeightKg)
		resp.MinWeightKg = &s
	}
	if rule.MaxWeightKg.Valid {
		s := numericToString(rule.MaxWeightKg)
		resp.MaxWeightKg = &s
	}
	return resp
}
