package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_no, branch_id, customer_id, status, service_type,
	collection_method, collection_address, return_method, return_address,
	total_amount, paid_amount, payment_status, estimated_ready_at, completed_at,
	feedback_eligible, parent_redo_item_id, created_by, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNo, &o.BranchID, &o.CustomerID, &o.Status, &o.ServiceType,
		&o.CollectionMethod, &o.CollectionAddress, &o.ReturnMethod, &o.ReturnAddress,
		&o.TotalAmount, &o.PaidAmount, &o.PaymentStatus, &o.EstimatedReadyAt, &o.CompletedAt,
		&o.FeedbackEligible, &o.ParentRedoItemID, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

const nextDailySequence = `
INSERT INTO daily_sequences (scope, day, seq)
VALUES ($1, $2, 1)
ON CONFLICT (scope, day) DO UPDATE SET seq = daily_sequences.seq + 1
RETURNING seq`

// NextDailySequence atomically increments and returns the per-scope,
// per-day counter used for human-readable order/quotation numbers.
func (q *Queries) NextDailySequence(ctx context.Context, scope string, day time.Time) (int32, error) {
	var seq int32
	err := q.db.QueryRow(ctx, nextDailySequence, scope, day).Scan(&seq)
	return seq, err
}

type CreateOrderParams struct {
	OrderNo           string
	BranchID          uuid.UUID
	CustomerID        uuid.UUID
	Status            string
	ServiceType       string
	CollectionMethod  string
	CollectionAddress pgtype.Text
	ReturnMethod      string
	ReturnAddress     pgtype.Text
	TotalAmount       pgtype.Numeric
	PaidAmount        pgtype.Numeric
	PaymentStatus     string
	EstimatedReadyAt  pgtype.Timestamptz
	ParentRedoItemID  pgtype.UUID
	CreatedBy         uuid.UUID
}

const createOrder = `
INSERT INTO orders (
	order_no, branch_id, customer_id, status, service_type,
	collection_method, collection_address, return_method, return_address,
	total_amount, paid_amount, payment_status, estimated_ready_at,
	parent_redo_item_id, created_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderNo, arg.BranchID, arg.CustomerID, arg.Status, arg.ServiceType,
		arg.CollectionMethod, arg.CollectionAddress, arg.ReturnMethod, arg.ReturnAddress,
		arg.TotalAmount, arg.PaidAmount, arg.PaymentStatus, arg.EstimatedReadyAt,
		arg.ParentRedoItemID, arg.CreatedBy,
	)
	return scanOrder(row)
}

type GetOrderParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND branch_id = $2`

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, arg.ID, arg.BranchID))
}

const getOrderByID = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrderByID(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByID, id))
}

// GetOrderForUpdate locks the order row, serializing concurrent stage
// completions and status transitions per order.
const getOrderForUpdate = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

type ListOrdersParams struct {
	BranchID   uuid.UUID
	Status     pgtype.Text
	CustomerID pgtype.UUID
	StartDate  pgtype.Timestamptz
	EndDate    pgtype.Timestamptz
	Limit      int32
	Offset     int32
}

const listOrders = `
SELECT ` + orderColumns + ` FROM orders
WHERE branch_id = $1
  AND ($2::text IS NULL OR status = $2)
  AND ($3::uuid IS NULL OR customer_id = $3)
  AND ($4::timestamptz IS NULL OR created_at >= $4)
  AND ($5::timestamptz IS NULL OR created_at < $5)
ORDER BY created_at DESC
LIMIT $6 OFFSET $7`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.BranchID, arg.Status, arg.CustomerID, arg.StartDate, arg.EndDate,
		arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID               uuid.UUID
	Status           string
	FeedbackEligible bool
	Completed        bool
}

const updateOrderStatus = `
UPDATE orders SET
	status = $2,
	feedback_eligible = feedback_eligible OR $3,
	completed_at = CASE WHEN $4 THEN now() ELSE completed_at END,
	updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.FeedbackEligible, arg.Completed)
	return scanOrder(row)
}

type AppendStatusHistoryParams struct {
	OrderID   uuid.UUID
	Status    string
	ActorID   uuid.UUID
	ActorName string
}

const appendStatusHistory = `
INSERT INTO status_history (order_id, status, actor_id, actor_name)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, status, actor_id, actor_name, created_at`

func (q *Queries) AppendStatusHistory(ctx context.Context, arg AppendStatusHistoryParams) (StatusHistory, error) {
	var h StatusHistory
	err := q.db.QueryRow(ctx, appendStatusHistory, arg.OrderID, arg.Status, arg.ActorID, arg.ActorName).
		Scan(&h.ID, &h.OrderID, &h.Status, &h.ActorID, &h.ActorName, &h.CreatedAt)
	return h, err
}

const listStatusHistory = `
SELECT id, order_id, status, actor_id, actor_name, created_at
FROM status_history WHERE order_id = $1 ORDER BY created_at, id`

func (q *Queries) ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]StatusHistory, error) {
	rows, err := q.db.Query(ctx, listStatusHistory, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []StatusHistory
	for rows.Next() {
		var h StatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.ActorID, &h.ActorName, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// --- Garments ---

type CreateGarmentParams struct {
	OrderID   uuid.UUID
	GarmentNo int32
	Type      string
	Color     pgtype.Text
	Brand     pgtype.Text
	Services  []string
	Price     pgtype.Numeric
}

const createGarment = `
INSERT INTO garments (order_id, garment_no, type, color, brand, services, price)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, garment_no, type, color, brand, services, price`

func (q *Queries) CreateGarment(ctx context.Context, arg CreateGarmentParams) (Garment, error) {
	var g Garment
	err := q.db.QueryRow(ctx, createGarment,
		arg.OrderID, arg.GarmentNo, arg.Type, arg.Color, arg.Brand, arg.Services, arg.Price,
	).Scan(&g.ID, &g.OrderID, &g.GarmentNo, &g.Type, &g.Color, &g.Brand, &g.Services, &g.Price)
	return g, err
}

const listGarmentsByOrder = `
SELECT id, order_id, garment_no, type, color, brand, services, price
FROM garments WHERE order_id = $1 ORDER BY garment_no`

func (q *Queries) ListGarmentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Garment, error) {
	rows, err := q.db.Query(ctx, listGarmentsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var garments []Garment
	for rows.Next() {
		var g Garment
		if err := rows.Scan(&g.ID, &g.OrderID, &g.GarmentNo, &g.Type, &g.Color, &g.Brand, &g.Services, &g.Price); err != nil {
			return nil, err
		}
		garments = append(garments, g)
	}
	return garments, rows.Err()
}

type GetGarmentParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

const getGarment = `
SELECT id, order_id, garment_no, type, color, brand, services, price
FROM garments WHERE id = $1 AND order_id = $2`

func (q *Queries) GetGarment(ctx context.Context, arg GetGarmentParams) (Garment, error) {
	var g Garment
	err := q.db.QueryRow(ctx, getGarment, arg.ID, arg.OrderID).
		Scan(&g.ID, &g.OrderID, &g.GarmentNo, &g.Type, &g.Color, &g.Brand, &g.Services, &g.Price)
	return g, err
}

const countGarmentsByOrder = `SELECT count(*) FROM garments WHERE order_id = $1`

func (q *Queries) CountGarmentsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countGarmentsByOrder, orderID).Scan(&n)
	return n, err
}

// --- Stage completions ---

type CreateStageCompletionParams struct {
	OrderID   uuid.UUID
	GarmentID uuid.UUID
	Stage     string
	StaffID   uuid.UUID
	StaffName string
	StartedAt pgtype.Timestamptz
}

const createStageCompletion = `
INSERT INTO stage_completions (order_id, garment_id, stage, staff_id, staff_name, started_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, garment_id, stage, staff_id, staff_name, started_at, completed_at`

func (q *Queries) CreateStageCompletion(ctx context.Context, arg CreateStageCompletionParams) (StageCompletion, error) {
	var sc StageCompletion
	err := q.db.QueryRow(ctx, createStageCompletion,
		arg.OrderID, arg.GarmentID, arg.Stage, arg.StaffID, arg.StaffName, arg.StartedAt,
	).Scan(&sc.ID, &sc.OrderID, &sc.GarmentID, &sc.Stage, &sc.StaffID, &sc.StaffName, &sc.StartedAt, &sc.CompletedAt)
	return sc, err
}

type CountStageCompletionsParams struct {
	OrderID uuid.UUID
	Stage   string
}

const countStageCompletions = `
SELECT count(DISTINCT garment_id) FROM stage_completions
WHERE order_id = $1 AND stage = $2`

func (q *Queries) CountStageCompletions(ctx context.Context, arg CountStageCompletionsParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countStageCompletions, arg.OrderID, arg.Stage).Scan(&n)
	return n, err
}

const listStageCompletionsByOrder = `
SELECT id, order_id, garment_id, stage, staff_id, staff_name, started_at, completed_at
FROM stage_completions WHERE order_id = $1 ORDER BY completed_at, id`

func (q *Queries) ListStageCompletionsByOrder(ctx context.Context, orderID uuid.UUID) ([]StageCompletion, error) {
	rows, err := q.db.Query(ctx, listStageCompletionsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completions []StageCompletion
	for rows.Next() {
		var sc StageCompletion
		if err := rows.Scan(&sc.ID, &sc.OrderID, &sc.GarmentID, &sc.Stage, &sc.StaffID, &sc.StaffName, &sc.StartedAt, &sc.CompletedAt); err != nil {
			return nil, err
		}
		completions = append(completions, sc)
	}
	return completions, rows.Err()
}
