package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const quotationColumns = `id, quotation_no, branch_id, customer_id, status, items,
	total_amount, valid_until, converted_order_id, created_by, created_at, updated_at`

func scanQuotation(row interface{ Scan(dest ...any) error }) (Quotation, error) {
	var qt Quotation
	err := row.Scan(
		&qt.ID, &qt.QuotationNo, &qt.BranchID, &qt.CustomerID, &qt.Status, &qt.Items,
		&qt.TotalAmount, &qt.ValidUntil, &qt.ConvertedOrderID, &qt.CreatedBy,
		&qt.CreatedAt, &qt.UpdatedAt,
	)
	return qt, err
}

type CreateQuotationParams struct {
	QuotationNo string
	BranchID    uuid.UUID
	CustomerID  uuid.UUID
	Status      string
	Items       []QuotationItem
	TotalAmount pgtype.Numeric
	ValidUntil  pgtype.Timestamptz
	CreatedBy   uuid.UUID
}

const createQuotation = `
INSERT INTO quotations (quotation_no, branch_id, customer_id, status, items, total_amount, valid_until, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + quotationColumns

func (q *Queries) CreateQuotation(ctx context.Context, arg CreateQuotationParams) (Quotation, error) {
	row := q.db.QueryRow(ctx, createQuotation,
		arg.QuotationNo, arg.BranchID, arg.CustomerID, arg.Status, arg.Items,
		arg.TotalAmount, arg.ValidUntil, arg.CreatedBy,
	)
	return scanQuotation(row)
}

type GetQuotationParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

const getQuotation = `SELECT ` + quotationColumns + ` FROM quotations WHERE id = $1 AND branch_id = $2`

func (q *Queries) GetQuotation(ctx context.Context, arg GetQuotationParams) (Quotation, error) {
	return scanQuotation(q.db.QueryRow(ctx, getQuotation, arg.ID, arg.BranchID))
}

type UpdateQuotationStatusParams struct {
	ID               uuid.UUID
	Status           string
	PrevStatus       string
	ConvertedOrderID pgtype.UUID
}

// UpdateQuotationStatus is guarded on the previous status so a concurrent
// transition loses instead of double-applying (no rows updated).
const updateQuotationStatus = `
UPDATE quotations SET
	status = $2,
	converted_order_id = COALESCE($4, converted_order_id),
	updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + quotationColumns

func (q *Queries) UpdateQuotationStatus(ctx context.Context, arg UpdateQuotationStatusParams) (Quotation, error) {
	row := q.db.QueryRow(ctx, updateQuotationStatus, arg.ID, arg.Status, arg.PrevStatus, arg.ConvertedOrderID)
	return scanQuotation(row)
}

type ListQuotationsParams struct {
	BranchID uuid.UUID
	Status   pgtype.Text
	Limit    int32
	Offset   int32
}

const listQuotations = `
SELECT ` + quotationColumns + ` FROM quotations
WHERE branch_id = $1 AND ($2::text IS NULL OR status = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

func (q *Queries) ListQuotations(ctx context.Context, arg ListQuotationsParams) ([]Quotation, error) {
	rows, err := q.db.Query(ctx, listQuotations, arg.BranchID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotations []Quotation
	for rows.Next() {
		qt, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		quotations = append(quotations, qt)
	}
	return quotations, rows.Err()
}
