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
	"github.com/cleanline-pos/api/internal/service"
)

// LoyaltyServicer defines the service methods needed by loyalty handlers.
// Satisfied by *service.LoyaltyService; narrow interface for testability.
type LoyaltyServicer interface {
	Enroll(ctx context.Context, customerID uuid.UUID) (database.LoyaltyAccount, error)
	Get(ctx context.Context, customerID uuid.UUID) (database.LoyaltyAccount, error)
	Award(ctx context.Context, customerID uuid.UUID, points int64) (*service.AwardResult, error)
	Redeem(ctx context.Context, customerID uuid.UUID, points int64) (*service.RedeemResult, error)
}

// LoyaltyStore defines the database methods needed by loyalty read handlers.
type LoyaltyStore interface {
	GetLoyaltyAccountByCustomer(ctx context.Context, customerID uuid.UUID) (database.LoyaltyAccount, error)
	ListLoyaltyTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int32) ([]database.LoyaltyTransaction, error)
	ListTierHistory(ctx context.Context, accountID uuid.UUID) ([]database.LoyaltyTierChange, error)
}

// LoyaltyHandler handles loyalty account endpoints.
type LoyaltyHandler struct {
	svc   LoyaltyServicer
	store LoyaltyStore
}

// NewLoyaltyHandler creates a new LoyaltyHandler.
func NewLoyaltyHandler(svc LoyaltyServicer, store LoyaltyStore) *LoyaltyHandler {
	return &LoyaltyHandler{svc: svc, store: store}
}

// RegisterRoutes registers loyalty endpoints on the given Chi router.
// Mounted under /customers/{cid}/loyalty.
func (h *LoyaltyHandler) RegisterRoutes(r chi.Router) {
	r.Post("/enroll", h.Enroll)
	r.Get("/", h.Get)
	r.Get("/transactions", h.Transactions)
	r.Post("/award", h.Award)
	r.Post("/redeem", h.Redeem)
}

// --- Request / Response types ---

type pointsRequest struct {
	Points int64 `json:"points"`
}

type accountResponse struct {
	ID            uuid.UUID `json:"id"`
	AccountNo     string    `json:"account_no"`
	CustomerID    uuid.UUID `json:"customer_id"`
	Balance       int64     `json:"balance"`
	TotalEarned   int64     `json:"total_earned"`
	TotalRedeemed int64     `json:"total_redeemed"`
	Tier          string    `json:"tier"`
	CreatedAt     time.Time `json:"created_at"`
}

type loyaltyTxResponse struct {
	TxNo         string     `json:"tx_no"`
	Type         string     `json:"type"`
	Points       int64      `json:"points"`
	BalanceAfter int64      `json:"balance_after"`
	ExpiresAt    *time.Time `json:"expires_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

type awardResponse struct {
	Account     accountResponse   `json:"account"`
	Transaction loyaltyTxResponse `json:"transaction"`
	TierChanged bool              `json:"tier_changed"`
}

type redeemResponse struct {
	Account     accountResponse   `json:"account"`
	Transaction loyaltyTxResponse `json:"transaction"`
	DiscountKES string            `json:"discount_kes"`
}

// --- Handlers ---

// Enroll handles POST /customers/{cid}/loyalty/enroll.
func (h *LoyaltyHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	customerID, ok := parseCustomerID(w, r)
	if !ok {
		return
	}

	account, err := h.svc.Enroll(r.Context(), customerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyEnrolled):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrNoActiveProgram):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: enroll loyalty: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}
	writeJSON(w, http.StatusCreated, dbAccountToResponse(account))
}

// Get handles GET /customers/{cid}/loyalty.
func (h *LoyaltyHandler) Get(w http.ResponseWriter, r *http.Request) {
	customerID, ok := parseCustomerID(w, r)
	if !ok {
		return
	}

	account, err := h.svc.Get(r.Context(), customerID)
	if err != nil {
		if errors.Is(err, service.ErrNotEnrolled) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: get loyalty account: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, dbAccountToResponse(account))
}

// Transactions handles GET /customers/{cid}/loyalty/transactions.
func (h *LoyaltyHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	customerID, ok := parseCustomerID(w, r)
	if !ok {
		return
	}
	limit, offset := parsePagination(r)

	account, err := h.store.GetLoyaltyAccountByCustomer(r.Context(), customerID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer is not enrolled"})
		return
	}

	txs, err := h.store.ListLoyaltyTransactions(r.Context(), account.ID, int32(limit), int32(offset))
	if err != nil {
		log.Printf("ERROR: list loyalty transactions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]loyaltyTxResponse, len(txs))
	for i, t := range txs {
		resp[i] = dbLoyaltyTxToResponse(t)
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": resp, "limit": limit, "offset": offset})
}

// Award handles POST /customers/{cid}/loyalty/award.
func (h *LoyaltyHandler) Award(w http.ResponseWriter, r *http.Request) {
	customerID, ok := parseCustomerID(w, r)
	if !ok {
		return
	}

	var req pointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.Award(r.Context(), customerID, req.Points)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPoints):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrNotEnrolled):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: award points: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, awardResponse{
		Account:     dbAccountToResponse(result.Account),
		Transaction: dbLoyaltyTxToResponse(result.Transaction),
		TierChanged: result.TierChanged,
	})
}

// Redeem handles POST /customers/{cid}/loyalty/redeem.
func (h *LoyaltyHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	customerID, ok := parseCustomerID(w, r)
	if !ok {
		return
	}

	var req pointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.Redeem(r.Context(), customerID, req.Points)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPoints),
			errors.Is(err, service.ErrBelowMinimumRedemption):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrNotEnrolled):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrInsufficientBalance):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: redeem points: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, redeemResponse{
		Account:     dbAccountToResponse(result.Account),
		Transaction: dbLoyaltyTxToResponse(result.Transaction),
		DiscountKES: result.DiscountKES.StringFixed(2),
	})
}

// --- Helpers ---

func parseCustomerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return uuid.Nil, false
	}
	return id, true
}

func dbAccountToResponse(a database.LoyaltyAccount) accountResponse {
	return accountResponse{
		ID:            a.ID,
		AccountNo:     a.AccountNo,
		CustomerID:    a.CustomerID,
		Balance:       a.Balance,
		TotalEarned:   a.TotalEarned,
		TotalRedeemed: a.TotalRedeemed,
		Tier:          a.Tier,
		CreatedAt:     a.CreatedAt,
	}
}

func dbLoyaltyTxToResponse(t database.LoyaltyTransaction) loyaltyTxResponse {
	resp := loyaltyTxResponse{
		TxNo:         t.TxNo,
		Type:         t.Type,
		Points:       t.Points,
		BalanceAfter: t.BalanceAfter,
		CreatedAt:    t.CreatedAt,
	}
	if t.ExpiresAt.Valid {
		resp.ExpiresAt = &t.ExpiresAt.Time
	}
	return resp
}
