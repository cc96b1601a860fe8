package database

import (
	"context"

	"github.com/google/uuid"
)

const batchColumns = `id, branch_id, stage, status, garment_count, assigned_staff,
	started_at, completed_at, created_by`

func scanBatch(row interface{ Scan(dest ...any) error }) (Batch, error) {
	var b Batch
	err := row.Scan(
		&b.ID, &b.BranchID, &b.Stage, &b.Status, &b.GarmentCount, &b.AssignedStaff,
		&b.StartedAt, &b.CompletedAt, &b.CreatedBy,
	)
	return b, err
}

type CreateBatchParams struct {
	BranchID      uuid.UUID
	Stage         string
	Status        string
	GarmentCount  int32
	AssignedStaff []uuid.UUID
	CreatedBy     uuid.UUID
}

const createBatch = `
INSERT INTO batches (branch_id, stage, status, garment_count, assigned_staff, created_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + batchColumns

func (q *Queries) CreateBatch(ctx context.Context, arg CreateBatchParams) (Batch, error) {
	row := q.db.QueryRow(ctx, createBatch,
		arg.BranchID, arg.Stage, arg.Status, arg.GarmentCount, arg.AssignedStaff, arg.CreatedBy,
	)
	return scanBatch(row)
}

type AddOrderToBatchParams struct {
	BatchID uuid.UUID
	OrderID uuid.UUID
}

const addOrderToBatch = `INSERT INTO batch_orders (batch_id, order_id) VALUES ($1, $2)`

func (q *Queries) AddOrderToBatch(ctx context.Context, arg AddOrderToBatchParams) error {
	_, err := q.db.Exec(ctx, addOrderToBatch, arg.BatchID, arg.OrderID)
	return err
}

const getBatch = `SELECT ` + batchColumns + ` FROM batches WHERE id = $1`

func (q *Queries) GetBatch(ctx context.Context, id uuid.UUID) (Batch, error) {
	return scanBatch(q.db.QueryRow(ctx, getBatch, id))
}

const listBatchOrderIDs = `
SELECT order_id FROM batch_orders WHERE batch_id = $1 ORDER BY order_id`

func (q *Queries) ListBatchOrderIDs(ctx context.Context, batchID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listBatchOrderIDs, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type ListBatchesByStaffParams struct {
	BranchID uuid.UUID
	StaffID  uuid.UUID
	Status   string
}

const listBatchesByStaff = `
SELECT ` + batchColumns + ` FROM batches
WHERE branch_id = $1 AND $2 = ANY(assigned_staff) AND status = $3
ORDER BY started_at DESC`

func (q *Queries) ListBatchesByStaff(ctx context.Context, arg ListBatchesByStaffParams) ([]Batch, error) {
	rows, err := q.db.Query(ctx, listBatchesByStaff, arg.BranchID, arg.StaffID, arg.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

type CountOpenBatchMembershipParams struct {
	OrderID uuid.UUID
	Stage   string
}

// CountOpenBatchMembership counts open batches for the same stage already
// containing the order. An order may not be in two open batches per stage.
const countOpenBatchMembership = `
SELECT count(*) FROM batch_orders bo
JOIN batches b ON b.id = bo.batch_id
WHERE bo.order_id = $1 AND b.stage = $2 AND b.status = 'IN_PROGRESS'`

func (q *Queries) CountOpenBatchMembership(ctx context.Context, arg CountOpenBatchMembershipParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOpenBatchMembership, arg.OrderID, arg.Stage).Scan(&n)
	return n, err
}

type HasCompleteBatchParams struct {
	OrderID uuid.UUID
	Stage   string
}

const hasCompleteBatch = `
SELECT EXISTS (
	SELECT 1 FROM batch_orders bo
	JOIN batches b ON b.id = bo.batch_id
	WHERE bo.order_id = $1 AND b.stage = $2 AND b.status = 'COMPLETE'
)`

func (q *Queries) HasCompleteBatch(ctx context.Context, arg HasCompleteBatchParams) (bool, error) {
	var ok bool
	err := q.db.QueryRow(ctx, hasCompleteBatch, arg.OrderID, arg.Stage).Scan(&ok)
	return ok, err
}

const completeBatch = `
UPDATE batches SET status = 'COMPLETE', completed_at = now()
WHERE id = $1 AND status = 'IN_PROGRESS'
RETURNING ` + batchColumns

func (q *Queries) CompleteBatch(ctx context.Context, id uuid.UUID) (Batch, error) {
	return scanBatch(q.db.QueryRow(ctx, completeBatch, id))
}
