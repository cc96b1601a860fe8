package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cleanline-pos/api/internal/database"
)

// ReportStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportStore interface {
	GetDailyRevenue(ctx context.Context, arg database.GetDailyRevenueParams) ([]database.GetDailyRevenueRow, error)
	GetStatusBreakdown(ctx context.Context, branchID uuid.UUID) ([]database.GetStatusBreakdownRow, error)
	GetStageThroughput(ctx context.Context, arg database.GetStageThroughputParams) ([]database.GetStageThroughputRow, error)
	GetServiceTypeMix(ctx context.Context, branchID uuid.UUID) ([]database.GetServiceTypeMixRow, error)
	GetBranchComparison(ctx context.Context, arg database.GetBranchComparisonParams) ([]database.GetBranchComparisonRow, error)
	GetFeedbackSummary(ctx context.Context, branchID uuid.UUID) ([]database.GetFeedbackSummaryRow, error)
}

// ReportHandler handles dashboard report endpoints.
type ReportHandler struct {
	store ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore) *ReportHandler {
	return &ReportHandler{store: store}
}

// RegisterRoutes registers branch-scoped report endpoints.
// Mounted at /branches/{bid}/reports.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-revenue", h.DailyRevenue)
	r.Get("/status-breakdown", h.StatusBreakdown)
	r.Get("/stage-throughput", h.StageThroughput)
	r.Get("/service-mix", h.ServiceMix)
	r.Get("/feedback-summary", h.FeedbackSummary)
}

// RegisterDirectorRoutes registers cross-branch report endpoints.
// Mounted at /reports, gated on the view_all_branches capability.
func (h *ReportHandler) RegisterDirectorRoutes(r chi.Router) {
	r.Get("/branch-comparison", h.BranchComparison)
}

// --- Response types ---

type dailyRevenueRow struct {
	Day          string `json:"day"`
	OrderCount   int64  `json:"order_count"`
	TotalRevenue string `json:"total_revenue"`
	TotalPaid    string `json:"total_paid"`
}

type statusBreakdownRow struct {
	Status     string `json:"status"`
	OrderCount int64  `json:"order_count"`
}

type stageThroughputRow struct {
	Stage        string    `json:"stage"`
	StaffID      uuid.UUID `json:"staff_id"`
	StaffName    string    `json:"staff_name"`
	GarmentsDone int64     `json:"garments_done"`
}

type serviceMixRow struct {
	ServiceType  string `json:"service_type"`
	OrderCount   int64  `json:"order_count"`
	TotalRevenue string `json:"total_revenue"`
}

type branchComparisonRow struct {
	BranchID     uuid.UUID `json:"branch_id"`
	BranchCode   string    `json:"branch_code"`
	BranchName   string    `json:"branch_name"`
	OrderCount   int64     `json:"order_count"`
	TotalRevenue string    `json:"total_revenue"`
	AvgRating    *string   `json:"avg_rating"`
}

type feedbackSummaryRow struct {
	Rating int32 `json:"rating"`
	Count  int64 `json:"count"`
}

// --- Handlers ---

// DailyRevenue handles GET /branches/{bid}/reports/daily-revenue.
func (h *ReportHandler) DailyRevenue(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	start, end, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetDailyRevenue(r.Context(), database.GetDailyRevenueParams{
		BranchID:  branchID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		log.Printf("ERROR: daily revenue report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]dailyRevenueRow, len(rows))
	for i, row := range rows {
		resp[i] = dailyRevenueRow{
			Day:          row.Day.Time.Format("2006-01-02"),
			OrderCount:   row.OrderCount,
			TotalRevenue: numericToString(row.TotalRevenue),
			TotalPaid:    numericToString(row.TotalPaid),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"daily_revenue": resp})
}

// StatusBreakdown handles GET /branches/{bid}/reports/status-breakdown.
func (h *ReportHandler) StatusBreakdown(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	rows, err := h.store.GetStatusBreakdown(r.Context(), branchID)
	if err != nil {
		log.Printf("ERROR: status breakdown report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]statusBreakdownRow, len(rows))
	for i, row := range rows {
		resp[i] = statusBreakdownRow{Status: row.Status, OrderCount: row.OrderCount}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status_breakdown": resp})
}

// StageThroughput handles GET /branches/{bid}/reports/stage-throughput.
func (h *ReportHandler) StageThroughput(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	start, end, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetStageThroughput(r.Context(), database.GetStageThroughputParams{
		BranchID:  branchID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		log.Printf("ERROR: stage throughput report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]stageThroughputRow, len(rows))
	for i, row := range rows {
		resp[i] = stageThroughputRow{
			Stage:        row.Stage,
			StaffID:      row.StaffID,
			StaffName:    row.StaffName,
			GarmentsDone: row.GarmentsDone,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"stage_throughput": resp})
}

// ServiceMix handles GET /branches/{bid}/reports/service-mix.
func (h *ReportHandler) ServiceMix(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	rows, err := h.store.GetServiceTypeMix(r.Context(), branchID)
	if err != nil {
		log.Printf("ERROR: service mix report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]serviceMixRow, len(rows))
	for i, row := range rows {
		resp[i] = serviceMixRow{
			ServiceType:  row.ServiceType,
			OrderCount:   row.OrderCount,
			TotalRevenue: numericToString(row.TotalRevenue),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"service_mix": resp})
}

// FeedbackSummary handles GET /branches/{bid}/reports/feedback-summary.
func (h *ReportHandler) FeedbackSummary(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	rows, err := h.store.GetFeedbackSummary(r.Context(), branchID)
	if err != nil {
		log.Printf("ERROR: feedback summary report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]feedbackSummaryRow, len(rows))
	for i, row := range rows {
		resp[i] = feedbackSummaryRow{Rating: row.Rating, Count: row.Count}
	}
	writeJSON(w, http.StatusOK, map[string]any{"feedback_summary": resp})
}

// BranchComparison handles GET /reports/branch-comparison.
func (h *ReportHandler) BranchComparison(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetBranchComparison(r.Context(), database.GetBranchComparisonParams{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		log.Printf("ERROR: branch comparison report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]branchComparisonRow, len(rows))
	for i, row := range rows {
		resp[i] = branchComparisonRow{
			BranchID:     row.BranchID,
			BranchCode:   row.BranchCode,
			BranchName:   row.BranchName,
			OrderCount:   row.OrderCount,
			TotalRevenue: numericToString(row.TotalRevenue),
		}
		if row.AvgRating.Valid {
			s := numericToString(row.AvgRating)
			resp[i].AvgRating = &s
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"branch_comparison": resp})
}

// --- Helpers ---

func parseDateRange(w http.ResponseWriter, r *http.Request) (start, end pgtype.Timestamptz, ok bool) {
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return start, end, false
		}
		start = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return start, end, false
		}
		end = pgtype.Timestamptz{Time: t.AddDate(0, 0, 1), Valid: true}
	}
	return start, end, true
}
