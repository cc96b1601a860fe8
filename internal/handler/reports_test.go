package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cleanline-pos/api/internal/auth"
	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/enum"
	"github.com/cleanline-pos/api/internal/handler"
	"github.com/cleanline-pos/api/internal/middleware"
)

type mockReportStore struct {
	dailyRevenueFn     func(ctx context.Context, arg database.GetDailyRevenueParams) ([]database.GetDailyRevenueRow, error)
	statusBreakdownFn  func(ctx context.Context, branchID uuid.UUID) ([]database.GetStatusBreakdownRow, error)
	stageThroughputFn  func(ctx context.Context, arg database.GetStageThroughputParams) ([]database.GetStageThroughputRow, error)
	serviceTypeMixFn   func(ctx context.Context, branchID uuid.UUID) ([]database.GetServiceTypeMixRow, error)
	branchComparisonFn func(ctx context.Context, arg database.GetBranchComparisonParams) ([]database.GetBranchComparisonRow, error)
	feedbackSummaryFn  func(ctx context.Context, branchID uuid.UUID) ([]database.GetFeedbackSummaryRow, error)
}

func (m *mockReportStore) GetDailyRevenue(ctx context.Context, arg database.GetDailyRevenueParams) ([]database.GetDailyRevenueRow, error) {
	if m.dailyRevenueFn != nil {
		return m.dailyRevenueFn(ctx, arg)
	}
	return []database.GetDailyRevenueRow{}, nil
}

func (m *mockReportStore) GetStatusBreakdown(ctx context.Context, branchID uuid.UUID) ([]database.GetStatusBreakdownRow, error) {
	if m.statusBreakdownFn != nil {
		return m.statusBreakdownFn(ctx, branchID)
	}
	return []database.GetStatusBreakdownRow{}, nil
}

func (m *mockReportStore) GetStageThroughput(ctx context.Context, arg database.GetStageThroughputParams) ([]database.GetStageThroughputRow, error) {
	if m.stageThroughputFn != nil {
		return m.stageThroughputFn(ctx, arg)
	}
	return []database.GetStageThroughputRow{}, nil
}

func (m *mockReportStore) GetServiceTypeMix(ctx context.Context, branchID uuid.UUID) ([]database.GetServiceTypeMixRow, error) {
	if m.serviceTypeMixFn != nil {
		return m.serviceTypeMixFn(ctx, branchID)
	}
	return []database.GetServiceTypeMixRow{}, nil
}

func (m *mockReportStore) GetBranchComparison(ctx context.Context, arg database.GetBranchComparisonParams) ([]database.GetBranchComparisonRow, error) {
	if m.branchComparisonFn != nil {
		return m.branchComparisonFn(ctx, arg)
	}
	return []database.GetBranchComparisonRow{}, nil
}

func (m *mockReportStore) GetFeedbackSummary(ctx context.Context, branchID uuid.UUID) ([]database.GetFeedbackSummaryRow, error) {
	if m.feedbackSummaryFn != nil {
		return m.feedbackSummaryFn(ctx, branchID)
	}
	return []database.GetFeedbackSummaryRow{}, nil
}

// setupReportRouter mirrors production: branch reports behind view_reports,
// the cross-branch comparison behind view_all_branches.
func setupReportRouter(store *mockReportStore) *chi.Mux {
	h := handler.NewReportHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCapability(enum.CapViewAllBranches))
		r.Route("/reports", h.RegisterDirectorRoutes)
	})
	r.Route("/branches/{bid}", func(r chi.Router) {
		r.Use(middleware.RequireBranch)
		r.Route("/reports", func(r chi.Router) {
			r.Use(middleware.RequireCapability(enum.CapViewReports))
			h.RegisterRoutes(r)
		})
	})
	return r
}

func directorClaims() *auth.Claims {
	return &auth.Claims{
		UserID:   uuid.New(),
		BranchID: uuid.New(),
		Name:     "The Director",
		Role:     enum.UserRoleDirector,
	}
}

func TestDailyRevenue(t *testing.T) {
	branchID := uuid.New()
	claims := managerClaims(branchID)

	var captured database.GetDailyRevenueParams
	store := &mockReportStore{
		dailyRevenueFn: func(ctx context.Context, arg database.GetDailyRevenueParams) ([]database.GetDailyRevenueRow, error) {
			captured = arg
			return []database.GetDailyRevenueRow{
				{
					Day:          pgtype.Date{Time: time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), Valid: true},
					OrderCount:   12,
					TotalRevenue: testNumeric("5400.00"),
					TotalPaid:    testNumeric("4200.00"),
				},
			}, nil
		},
	}
	router := setupReportRouter(store)

	rr := doAuthRequest(t, router, "GET",
		"/branches/"+branchID.String()+"/reports/daily-revenue?start_date=2026-08-01&end_date=2026-08-25", nil, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	if !captured.StartDate.Valid {
		t.Error("expected start_date to be set")
	}
	// end_date is exclusive, so the filter covers the whole requested day.
	wantEnd := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	if !captured.EndDate.Valid || !captured.EndDate.Time.Equal(wantEnd) {
		t.Errorf("end_date: got %+v, want %v", captured.EndDate, wantEnd)
	}

	resp := decodeResponse(t, rr)
	rows, ok := resp["daily_revenue"].([]interface{})
	if !ok || len(rows) != 1 {
		t.Fatalf("daily_revenue: got %v, want 1 row", resp["daily_revenue"])
	}
	row := rows[0].(map[string]interface{})
	if row["day"] != "2026-08-25" {
		t.Errorf("day: got %v, want 2026-08-25", row["day"])
	}
	if row["total_revenue"] != "5400.00" {
		t.Errorf("total_revenue: got %v, want 5400.00", row["total_revenue"])
	}
}

func TestDailyRevenue_BadDate(t *testing.T) {
	branchID := uuid.New()
	router := setupReportRouter(&mockReportStore{})

	rr := doAuthRequest(t, router, "GET",
		"/branches/"+branchID.String()+"/reports/daily-revenue?start_date=yesterday", nil, managerClaims(branchID))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestStatusBreakdown(t *testing.T) {
	branchID := uuid.New()

	store := &mockReportStore{
		statusBreakdownFn: func(ctx context.Context, bid uuid.UUID) ([]database.GetStatusBreakdownRow, error) {
			return []database.GetStatusBreakdownRow{
				{Status: enum.OrderStatusWashing, OrderCount: 4},
				{Status: enum.OrderStatusIroning, OrderCount: 7},
			}, nil
		},
	}
	router := setupReportRouter(store)

	rr := doAuthRequest(t, router, "GET", "/branches/"+branchID.String()+"/reports/status-breakdown", nil, managerClaims(branchID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	rows, ok := resp["status_breakdown"].([]interface{})
	if !ok || len(rows) != 2 {
		t.Fatalf("status_breakdown: got %v, want 2 rows", resp["status_breakdown"])
	}
}

func TestReports_WorkstationForbidden(t *testing.T) {
	branchID := uuid.New()
	router := setupReportRouter(&mockReportStore{})

	rr := doAuthRequest(t, router, "GET", "/branches/"+branchID.String()+"/reports/status-breakdown", nil, workstationClaims(branchID))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestBranchComparison_DirectorOnly(t *testing.T) {
	store := &mockReportStore{
		branchComparisonFn: func(ctx context.Context, arg database.GetBranchComparisonParams) ([]database.GetBranchComparisonRow, error) {
			return []database.GetBranchComparisonRow{
				{
					BranchID: uuid.New(), BranchCode: "HQ", BranchName: "Head Office",
					OrderCount: 40, TotalRevenue: testNumeric("18000.00"),
					AvgRating: testNumeric("4.50"),
				},
				{
					BranchID: uuid.New(), BranchCode: "WSTL", BranchName: "Westlands",
					OrderCount: 25, TotalRevenue: testNumeric("9500.00"),
				},
			}, nil
		},
	}
	router := setupReportRouter(store)

	rr := doAuthRequest(t, router, "GET", "/reports/branch-comparison", nil, directorClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	rows, ok := resp["branch_comparison"].([]interface{})
	if !ok || len(rows) != 2 {
		t.Fatalf("branch_comparison: got %v, want 2 rows", resp["branch_comparison"])
	}
	first := rows[0].(map[string]interface{})
	if first["avg_rating"] != "4.50" {
		t.Errorf("avg_rating: got %v, want 4.50", first["avg_rating"])
	}
	second := rows[1].(map[string]interface{})
	if second["avg_rating"] != nil {
		t.Errorf("avg_rating: got %v, want null for branch with no feedback", second["avg_rating"])
	}

	// A general manager lacks the cross-branch capability.
	rr = doAuthRequest(t, router, "GET", "/reports/branch-comparison", nil, managerClaims(uuid.New()))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status for manager: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestFeedbackSummary(t *testing.T) {
	branchID := uuid.New()

	store := &mockReportStore{
		feedbackSummaryFn: func(ctx context.Context, bid uuid.UUID) ([]database.GetFeedbackSummaryRow, error) {
			return []database.GetFeedbackSummaryRow{
				{Rating: 4, Count: 10},
				{Rating: 5, Count: 22},
			}, nil
		},
	}
	router := setupReportRouter(store)

	rr := doAuthRequest(t, router, "GET", "/branches/"+branchID.String()+"/reports/feedback-summary", nil, managerClaims(branchID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	rows, ok := resp["feedback_summary"].([]interface{})
	if !ok || len(rows) != 2 {
		t.Fatalf("feedback_summary: got %v, want 2 rows", resp["feedback_summary"])
	}
}
