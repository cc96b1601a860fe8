package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type GetDailyRevenueParams struct {
	BranchID  uuid.UUID
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
}

type GetDailyRevenueRow struct {
	Day          pgtype.Date
	OrderCount   int64
	TotalRevenue pgtype.Numeric
	TotalPaid    pgtype.Numeric
}

const getDailyRevenue = `
SELECT date_trunc('day', created_at)::date AS day,
	count(*) AS order_count,
	COALESCE(sum(total_amount), 0) AS total_revenue,
	COALESCE(sum(paid_amount), 0) AS total_paid
FROM orders
WHERE branch_id = $1 AND status <> 'CANCELLED'
  AND ($2::timestamptz IS NULL OR created_at >= $2)
  AND ($3::timestamptz IS NULL OR created_at < $3)
GROUP BY 1
ORDER BY 1`

func (q *Queries) GetDailyRevenue(ctx context.Context, arg GetDailyRevenueParams) ([]GetDailyRevenueRow, error) {
	rows, err := q.db.Query(ctx, getDailyRevenue, arg.BranchID, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GetDailyRevenueRow
	for rows.Next() {
		var r GetDailyRevenueRow
		if err := rows.Scan(&r.Day, &r.OrderCount, &r.TotalRevenue, &r.TotalPaid); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type GetStatusBreakdownRow struct {
	Status     string
	OrderCount int64
}

const getStatusBreakdown = `
SELECT status, count(*) AS order_count
FROM orders WHERE branch_id = $1
GROUP BY status
ORDER BY status`

func (q *Queries) GetStatusBreakdown(ctx context.Context, branchID uuid.UUID) ([]GetStatusBreakdownRow, error) {
	rows, err := q.db.Query(ctx, getStatusBreakdown, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GetStatusBreakdownRow
	for rows.Next() {
		var r GetStatusBreakdownRow
		if err := rows.Scan(&r.Status, &r.OrderCount); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type GetStageThroughputParams struct {
	BranchID  uuid.UUID
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
}

type GetStageThroughputRow struct {
	Stage        string
	StaffID      uuid.UUID
	StaffName    string
	GarmentsDone int64
}

const getStageThroughput = `
SELECT sc.stage, sc.staff_id, sc.staff_name, count(*) AS garments_done
FROM stage_completions sc
JOIN orders o ON o.id = sc.order_id
WHERE o.branch_id = $1
  AND ($2::timestamptz IS NULL OR sc.completed_at >= $2)
  AND ($3::timestamptz IS NULL OR sc.completed_at < $3)
GROUP BY sc.stage, sc.staff_id, sc.staff_name
ORDER BY sc.stage, garments_done DESC`

func (q *Queries) GetStageThroughput(ctx context.Context, arg GetStageThroughputParams) ([]GetStageThroughputRow, error) {
	rows, err := q.db.Query(ctx, getStageThroughput, arg.BranchID, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GetStageThroughputRow
	for rows.Next() {
		var r GetStageThroughputRow
		if err := rows.Scan(&r.Stage, &r.StaffID, &r.StaffName, &r.GarmentsDone); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type GetServiceTypeMixRow struct {
	ServiceType  string
	OrderCount   int64
	TotalRevenue pgtype.Numeric
}

const getServiceTypeMix = `
SELECT service_type, count(*) AS order_count, COALESCE(sum(total_amount), 0) AS total_revenue
FROM orders WHERE branch_id = $1 AND status <> 'CANCELLED'
GROUP BY service_type
ORDER BY service_type`

func (q *Queries) GetServiceTypeMix(ctx context.Context, branchID uuid.UUID) ([]GetServiceTypeMixRow, error) {
	rows, err := q.db.Query(ctx, getServiceTypeMix, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GetServiceTypeMixRow
	for rows.Next() {
		var r GetServiceTypeMixRow
		if err := rows.Scan(&r.ServiceType, &r.OrderCount, &r.TotalRevenue); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type GetBranchComparisonParams struct {
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
}

type GetBranchComparisonRow struct {
	BranchID     uuid.UUID
	BranchCode   string
	BranchName   string
	OrderCount   int64
	TotalRevenue pgtype.Numeric
	AvgRating    pgtype.Numeric
}

const getBranchComparison = `
SELECT b.id, b.code, b.name,
	count(o.id) AS order_count,
	COALESCE(sum(o.total_amount), 0) AS total_revenue,
	(SELECT avg(f.rating)::numeric(3,2) FROM feedback f
	 JOIN orders fo ON fo.id = f.order_id WHERE fo.branch_id = b.id) AS avg_rating
FROM branches b
LEFT JOIN orders o ON o.branch_id = b.id AND o.status <> 'CANCELLED'
  AND ($1::timestamptz IS NULL OR o.created_at >= $1)
  AND ($2::timestamptz IS NULL OR o.created_at < $2)
GROUP BY b.id, b.code, b.name
ORDER BY b.code`

func (q *Queries) GetBranchComparison(ctx context.Context, arg GetBranchComparisonParams) ([]GetBranchComparisonRow, error) {
	rows, err := q.db.Query(ctx, getBranchComparison, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GetBranchComparisonRow
	for rows.Next() {
		var r GetBranchComparisonRow
		if err := rows.Scan(&r.BranchID, &r.BranchCode, &r.BranchName, &r.OrderCount, &r.TotalRevenue, &r.AvgRating); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type GetFeedbackSummaryRow struct {
	Rating int32
	Count  int64
}

const getFeedbackSummary = `
SELECT f.rating, count(*) FROM feedback f
JOIN orders o ON o.id = f.order_id
WHERE o.branch_id = $1
GROUP BY f.rating
ORDER BY f.rating`

func (q *Queries) GetFeedbackSummary(ctx context.Context, branchID uuid.UUID) ([]GetFeedbackSummaryRow, error) {
	rows, err := q.db.Query(ctx, getFeedbackSummary, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GetFeedbackSummaryRow
	for rows.Next() {
		var r GetFeedbackSummaryRow
		if err := rows.Scan(&r.Rating, &r.Count); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
