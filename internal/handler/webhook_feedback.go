package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cleanline-pos/api/internal/database"
)

// FeedbackStore defines the database methods needed by the feedback webhook.
type FeedbackStore interface {
	GetCustomerByPhone(ctx context.Context, phone string) (database.Customer, error)
	LatestFeedbackEligibleOrder(ctx context.Context, customerID uuid.UUID) (database.Order, error)
	FeedbackExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	CreateFeedback(ctx context.Context, arg database.CreateFeedbackParams) (database.Feedback, error)
}

// FeedbackWebhookHandler receives rating button replies from the messaging
// provider. The provider delivers at least once, so a rating that already
// exists for an order is acknowledged without being re-recorded.
type FeedbackWebhookHandler struct {
	store       FeedbackStore
	verifyToken string
}

// NewFeedbackWebhookHandler creates a new FeedbackWebhookHandler.
func NewFeedbackWebhookHandler(store FeedbackStore, verifyToken string) *FeedbackWebhookHandler {
	return &FeedbackWebhookHandler{store: store, verifyToken: verifyToken}
}

// Verify handles GET /webhooks/feedback, the provider handshake.
func (h *FeedbackWebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != h.verifyToken {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "verification failed"})
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(q.Get("hub.challenge"))); err != nil {
		log.Printf("ERROR: feedback webhook challenge write: %v", err)
	}
}

type feedbackWebhookBody struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []feedbackMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type feedbackMessage struct {
	From        string `json:"from"`
	Type        string `json:"type"`
	Interactive struct {
		Type        string `json:"type"`
		ButtonReply struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
	} `json:"interactive"`
}

// Receive handles POST /webhooks/feedback.
func (h *FeedbackWebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var body feedbackWebhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed body"})
		return
	}

	recorded := 0
	for _, entry := range body.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if h.processMessage(r.Context(), msg) {
					recorded++
				}
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"recorded": recorded})
}

// processMessage records one rating reply. Returns false for messages that
// are not ratings or cannot be tied to an eligible order; those are dropped
// silently since the provider retries on anything but a 2xx.
func (h *FeedbackWebhookHandler) processMessage(ctx context.Context, msg feedbackMessage) bool {
	rating, ok := parseRatingButton(msg.Interactive.ButtonReply.ID)
	if !ok {
		return false
	}

	phone := msg.From
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	customer, err := h.store.GetCustomerByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("ERROR: feedback webhook customer lookup: %v", err)
		}
		return false
	}

	order, err := h.store.LatestFeedbackEligibleOrder(ctx, customer.ID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("ERROR: feedback webhook order lookup: %v", err)
		}
		return false
	}

	exists, err := h.store.FeedbackExistsForOrder(ctx, order.ID)
	if err != nil {
		log.Printf("ERROR: feedback webhook dedup check: %v", err)
		return false
	}
	if exists {
		return false
	}

	_, err = h.store.CreateFeedback(ctx, database.CreateFeedbackParams{
		OrderID:    order.ID,
		CustomerID: customer.ID,
		Rating:     rating,
		Source:     "whatsapp",
	})
	if err != nil {
		log.Printf("ERROR: feedback webhook record: %v", err)
		return false
	}
	return true
}

// parseRatingButton extracts the 1-5 rating from a button id such as
// "rating_4".
func parseRatingButton(id string) (int32, bool) {
	digits, ok := strings.CutPrefix(id, "rating_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || n > 5 {
		return 0, false
	}
	return int32(n), true
}
