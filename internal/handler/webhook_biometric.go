package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/enum"
)

// BiometricStore defines the database methods needed by the biometric webhook.
type BiometricStore interface {
	GetDeviceBySerial(ctx context.Context, serial string) (database.Device, error)
	GetDeviceByIP(ctx context.Context, ip string) (database.Device, error)
	GetUserByBiometricID(ctx context.Context, biometricID string) (database.User, error)
	GetLastAttendanceEvent(ctx context.Context, userID uuid.UUID) (database.AttendanceEvent, error)
	CreateAttendanceEvent(ctx context.Context, arg database.CreateAttendanceEventParams) (database.AttendanceEvent, error)
}

// BiometricWebhookHandler receives clock events pushed by fingerprint
// terminals. Devices retry aggressively on non-2xx responses, so unknown
// devices and unmatched employees are acknowledged with 200 and a
// descriptive body instead of an error status.
type BiometricWebhookHandler struct {
	store BiometricStore
}

// NewBiometricWebhookHandler creates a new BiometricWebhookHandler.
func NewBiometricWebhookHandler(store BiometricStore) *BiometricWebhookHandler {
	return &BiometricWebhookHandler{store: store}
}

type biometricResult struct {
	Matched   bool   `json:"matched"`
	EventType string `json:"event_type,omitempty"`
	Message   string `json:"message"`
}

// biometricPayload is the normalized form of the three body encodings
// terminals send (JSON, form-encoded, raw key=value text).
type biometricPayload struct {
	BiometricID string
	Timestamp   string
	EventType   string
}

// Handle handles POST /webhooks/biometric.
func (h *BiometricWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	device, found, err := h.resolveDevice(r)
	if err != nil {
		log.Printf("ERROR: biometric webhook device lookup: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, biometricResult{Matched: false, Message: "unknown device"})
		return
	}

	if device.Secret.Valid {
		if !verifySignature(r.Header.Get("X-Signature"), device.Secret.String, body) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
			return
		}
	}

	payload, err := parseBiometricBody(r.Header.Get("Content-Type"), body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	user, err := h.store.GetUserByBiometricID(r.Context(), payload.BiometricID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusOK, biometricResult{Matched: false, Message: "employee not found"})
			return
		}
		log.Printf("ERROR: biometric webhook user lookup: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	eventType, err := h.resolveEventType(r.Context(), user.ID, payload.EventType)
	if err != nil {
		log.Printf("ERROR: biometric webhook last event lookup: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	occurredAt := time.Now()
	if payload.Timestamp != "" {
		if t, perr := parseDeviceTimestamp(payload.Timestamp); perr == nil {
			occurredAt = t
		}
	}

	_, err = h.store.CreateAttendanceEvent(r.Context(), database.CreateAttendanceEventParams{
		DeviceID:    device.ID,
		UserID:      user.ID,
		BiometricID: payload.BiometricID,
		EventType:   eventType,
		OccurredAt:  occurredAt,
	})
	if err != nil {
		log.Printf("ERROR: biometric webhook record event: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, biometricResult{
		Matched:   true,
		EventType: eventType,
		Message:   "recorded for " + user.Name,
	})
}

// resolveDevice identifies the sending terminal. Serial (query param or
// header) wins; source IP is the fallback for older firmwares that send
// nothing identifying in the request itself.
func (h *BiometricWebhookHandler) resolveDevice(r *http.Request) (database.Device, bool, error) {
	serial := r.URL.Query().Get("serial")
	if serial == "" {
		serial = r.URL.Query().Get("deviceId")
	}
	if serial == "" {
		serial = r.Header.Get("X-Device-Serial")
	}
	if serial != "" {
		device, err := h.store.GetDeviceBySerial(r.Context(), serial)
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Device{}, false, nil
		}
		return device, err == nil, err
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	device, err := h.store.GetDeviceByIP(r.Context(), host)
	if errors.Is(err, pgx.ErrNoRows) {
		return database.Device{}, false, nil
	}
	return device, err == nil, err
}

// resolveEventType alternates check-in and check-out when the device does
// not state which punch this is.
func (h *BiometricWebhookHandler) resolveEventType(ctx context.Context, userID uuid.UUID, declared string) (string, error) {
	switch strings.ToUpper(declared) {
	case enum.AttendanceCheckIn, "IN", "0":
		return enum.AttendanceCheckIn, nil
	case enum.AttendanceCheckOut, "OUT", "1":
		return enum.AttendanceCheckOut, nil
	}

	last, err := h.store.GetLastAttendanceEvent(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return enum.AttendanceCheckIn, nil
		}
		return "", err
	}
	if last.EventType == enum.AttendanceCheckIn {
		return enum.AttendanceCheckOut, nil
	}
	return enum.AttendanceCheckIn, nil
}

var rawPinRe = regexp.MustCompile(`(?i)(?:pin|userid|biometric_?id)\s*[=:]\s*"?([A-Za-z0-9_-]+)`)

func parseBiometricBody(contentType string, body []byte) (biometricPayload, error) {
	ct := contentType
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(strings.ToLower(ct))

	switch ct {
	case "application/json":
		var raw struct {
			BiometricID string `json:"biometric_id"`
			Pin         string `json:"pin"`
			UserID      string `json:"userId"`
			Timestamp   string `json:"timestamp"`
			EventType   string `json:"event_type"`
			Punch       string `json:"punch"`
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return biometricPayload{}, errors.New("malformed JSON body")
		}
		p := biometricPayload{
			BiometricID: firstNonEmpty(raw.BiometricID, raw.Pin, raw.UserID),
			Timestamp:   raw.Timestamp,
			EventType:   firstNonEmpty(raw.EventType, raw.Punch),
		}
		if p.BiometricID == "" {
			return biometricPayload{}, errors.New("missing biometric id")
		}
		return p, nil

	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return biometricPayload{}, errors.New("malformed form body")
		}
		p := biometricPayload{
			BiometricID: firstNonEmpty(values.Get("biometric_id"), values.Get("pin"), values.Get("userId")),
			Timestamp:   values.Get("timestamp"),
			EventType:   firstNonEmpty(values.Get("event_type"), values.Get("punch")),
		}
		if p.BiometricID == "" {
			return biometricPayload{}, errors.New("missing biometric id")
		}
		return p, nil

	default:
		// Raw text from older terminals, loosely key=value or key:"value".
		m := rawPinRe.FindSubmatch(body)
		if m == nil {
			return biometricPayload{}, errors.New("unrecognized body format")
		}
		return biometricPayload{BiometricID: string(m[1])}, nil
	}
}

func verifySignature(header, secret string, body []byte) bool {
	if header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(header)), []byte(expected))
}

var deviceTimestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseDeviceTimestamp(s string) (time.Time, error) {
	for _, layout := range deviceTimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized timestamp")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
