package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const redoItemColumns = `id, order_id, garment_id, reason, status, redo_order_id,
	requested_by, approved_by, created_at, updated_at`

func scanRedoItem(row interface{ Scan(dest ...any) error }) (RedoItem, error) {
	var ri RedoItem
	err := row.Scan(
		&ri.ID, &ri.OrderID, &ri.GarmentID, &ri.Reason, &ri.Status, &ri.RedoOrderID,
		&ri.RequestedBy, &ri.ApprovedBy, &ri.CreatedAt, &ri.UpdatedAt,
	)
	return ri, err
}

type CreateRedoItemParams struct {
	OrderID     uuid.UUID
	GarmentID   uuid.UUID
	Reason      string
	RequestedBy uuid.UUID
}

const createRedoItem = `
INSERT INTO redo_items (order_id, garment_id, reason, status, requested_by)
VALUES ($1, $2, $3, 'PENDING', $4)
RETURNING ` + redoItemColumns

func (q *Queries) CreateRedoItem(ctx context.Context, arg CreateRedoItemParams) (RedoItem, error) {
	row := q.db.QueryRow(ctx, createRedoItem, arg.OrderID, arg.GarmentID, arg.Reason, arg.RequestedBy)
	return scanRedoItem(row)
}

const getRedoItem = `SELECT ` + redoItemColumns + ` FROM redo_items WHERE id = $1`

func (q *Queries) GetRedoItem(ctx context.Context, id uuid.UUID) (RedoItem, error) {
	return scanRedoItem(q.db.QueryRow(ctx, getRedoItem, id))
}

type UpdateRedoItemStatusParams struct {
	ID          uuid.UUID
	Status      string
	PrevStatus  string
	RedoOrderID pgtype.UUID
	ApprovedBy  pgtype.UUID
}

// UpdateRedoItemStatus is guarded on the previous status; only PENDING items
// can be approved or rejected.
const updateRedoItemStatus = `
UPDATE redo_items SET
	status = $2,
	redo_order_id = COALESCE($4, redo_order_id),
	approved_by = COALESCE($5, approved_by),
	updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + redoItemColumns

func (q *Queries) UpdateRedoItemStatus(ctx context.Context, arg UpdateRedoItemStatusParams) (RedoItem, error) {
	row := q.db.QueryRow(ctx, updateRedoItemStatus, arg.ID, arg.Status, arg.PrevStatus, arg.RedoOrderID, arg.ApprovedBy)
	return scanRedoItem(row)
}

type ListRedoItemsParams struct {
	BranchID uuid.UUID
	Status   pgtype.Text
	Limit    int32
	Offset   int32
}

const listRedoItems = `
SELECT ` + redoItemColumns + ` FROM redo_items ri
WHERE EXISTS (SELECT 1 FROM orders o WHERE o.id = ri.order_id AND o.branch_id = $1)
  AND ($2::text IS NULL OR ri.status = $2)
ORDER BY ri.created_at DESC
LIMIT $3 OFFSET $4`

func (q *Queries) ListRedoItems(ctx context.Context, arg ListRedoItemsParams) ([]RedoItem, error) {
	rows, err := q.db.Query(ctx, listRedoItems, arg.BranchID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RedoItem
	for rows.Next() {
		ri, err := scanRedoItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, ri)
	}
	return items, rows.Err()
}
