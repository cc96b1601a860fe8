package database

import (
	"context"

	"github.com/google/uuid"
)

type CreateFeedbackParams struct {
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	Rating     int32
	Source     string
}

const createFeedback = `
INSERT INTO feedback (order_id, customer_id, rating, source)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, customer_id, rating, source, created_at`

func (q *Queries) CreateFeedback(ctx context.Context, arg CreateFeedbackParams) (Feedback, error) {
	var f Feedback
	err := q.db.QueryRow(ctx, createFeedback, arg.OrderID, arg.CustomerID, arg.Rating, arg.Source).
		Scan(&f.ID, &f.OrderID, &f.CustomerID, &f.Rating, &f.Source, &f.CreatedAt)
	return f, err
}

const feedbackExistsForOrder = `SELECT EXISTS (SELECT 1 FROM feedback WHERE order_id = $1)`

func (q *Queries) FeedbackExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var ok bool
	err := q.db.QueryRow(ctx, feedbackExistsForOrder, orderID).Scan(&ok)
	return ok, err
}
