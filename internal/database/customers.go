package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const customerColumns = `id, branch_id, name, phone, email, segment, created_at, updated_at`

func scanCustomer(row interface{ Scan(dest ...any) error }) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.BranchID, &c.Name, &c.Phone, &c.Email, &c.Segment, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

type CreateCustomerParams struct {
	BranchID uuid.UUID
	Name     string
	Phone    string
	Email    pgtype.Text
	Segment  string
}

const createCustomer = `
INSERT INTO customers (branch_id, name, phone, email, segment)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + customerColumns

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, createCustomer, arg.BranchID, arg.Name, arg.Phone, arg.Email, arg.Segment)
	return scanCustomer(row)
}

type GetCustomerParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

const getCustomer = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 AND branch_id = $2`

func (q *Queries) GetCustomer(ctx context.Context, arg GetCustomerParams) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomer, arg.ID, arg.BranchID))
}

const getCustomerByPhone = `SELECT ` + customerColumns + ` FROM customers WHERE phone = $1 ORDER BY created_at LIMIT 1`

func (q *Queries) GetCustomerByPhone(ctx context.Context, phone string) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomerByPhone, phone))
}

type ListCustomersParams struct {
	BranchID uuid.UUID
	Search   pgtype.Text
	Limit    int32
	Offset   int32
}

const listCustomers = `
SELECT ` + customerColumns + ` FROM customers
WHERE branch_id = $1
  AND ($2::text IS NULL OR name ILIKE '%' || $2 || '%' OR phone LIKE '%' || $2 || '%')
ORDER BY name
LIMIT $3 OFFSET $4`

func (q *Queries) ListCustomers(ctx context.Context, arg ListCustomersParams) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listCustomers, arg.BranchID, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

type UpdateCustomerParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
	Name     string
	Phone    string
	Email    pgtype.Text
	Segment  string
}

const updateCustomer = `
UPDATE customers SET name = $3, phone = $4, email = $5, segment = $6, updated_at = now()
WHERE id = $1 AND branch_id = $2
RETURNING ` + customerColumns

func (q *Queries) UpdateCustomer(ctx context.Context, arg UpdateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, updateCustomer, arg.ID, arg.BranchID, arg.Name, arg.Phone, arg.Email, arg.Segment)
	return scanCustomer(row)
}

// LatestFeedbackEligibleOrder finds the customer's most recent delivered or
// collected order still awaiting feedback.
const latestFeedbackEligibleOrder = `
SELECT ` + orderColumns + ` FROM orders
WHERE customer_id = $1 AND feedback_eligible = true
  AND NOT EXISTS (SELECT 1 FROM feedback f WHERE f.order_id = orders.id)
ORDER BY updated_at DESC
LIMIT 1`

func (q *Queries) LatestFeedbackEligibleOrder(ctx context.Context, customerID uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, latestFeedbackEligibleOrder, customerID))
}
