package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/enum"
)

var (
	ErrRedoItemNotFound = errors.New("redo item not found")
	ErrRedoReasonEmpty  = errors.New("redo reason is required")
	ErrRedoConflict     = errors.New("redo item status changed concurrently")
	ErrRedoNotPending   = errors.New("redo item is not pending")
)

// redoTransitions is the redo item adjacency table.
var redoTransitions = map[string][]string{
	enum.RedoStatusPending:    {enum.RedoStatusApproved, enum.RedoStatusRejected},
	enum.RedoStatusApproved:   {enum.RedoStatusInProgress},
	enum.RedoStatusInProgress: {enum.RedoStatusCompleted},
}

// RedoStore defines the DB methods the redo service needs.
type RedoStore interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetGarment(ctx context.Context, arg database.GetGarmentParams) (database.Garment, error)
	CreateRedoItem(ctx context.Context, arg database.CreateRedoItemParams) (database.RedoItem, error)
	GetRedoItem(ctx context.Context, id uuid.UUID) (database.RedoItem, error)
	UpdateRedoItemStatus(ctx context.Context, arg database.UpdateRedoItemStatusParams) (database.RedoItem, error)
	ListRedoItems(ctx context.Context, arg database.ListRedoItemsParams) ([]database.RedoItem, error)
}

// CreateRedoRequest flags a garment for reprocessing.
type CreateRedoRequest struct {
	OrderID     uuid.UUID
	BranchID    uuid.UUID
	GarmentID   uuid.UUID
	Reason      string
	RequestedBy uuid.UUID
}

// ApproveRedoResult is the approved item with the zero-cost redo order
// created for it.
type ApproveRedoResult struct {
	Item     database.RedoItem
	Order    database.Order
	Garments []database.Garment
}

// RedoService manages redo items and their zero-cost reprocessing orders.
type RedoService struct {
	store  RedoStore
	orders OrderCreator
}

// NewRedoService creates a new RedoService.
func NewRedoService(store RedoStore, orders OrderCreator) *RedoService {
	return &RedoService{store: store, orders: orders}
}

// Create flags a garment for redo. The original order keeps its status; the
// item waits for manager approval.
func (s *RedoService) Create(ctx context.Context, req CreateRedoRequest) (database.RedoItem, error) {
	if req.Reason == "" {
		return database.RedoItem{}, ErrRedoReasonEmpty
	}

	order, err := s.store.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.RedoItem{}, ErrOrderNotFound
		}
		return database.RedoItem{}, fmt.Errorf("get order: %w", err)
	}
	if order.BranchID != req.BranchID {
		return database.RedoItem{}, ErrOrderNotFound
	}
	if _, err := s.store.GetGarment(ctx, database.GetGarmentParams{ID: req.GarmentID, OrderID: req.OrderID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.RedoItem{}, ErrGarmentNotFound
		}
		return database.RedoItem{}, fmt.Errorf("get garment: %w", err)
	}

	item, err := s.store.CreateRedoItem(ctx, database.CreateRedoItemParams{
		OrderID:     req.OrderID,
		GarmentID:   req.GarmentID,
		Reason:      req.Reason,
		RequestedBy: req.RequestedBy,
	})
	if err != nil {
		return database.RedoItem{}, fmt.Errorf("create redo item: %w", err)
	}
	return item, nil
}

// Approve creates a zero-cost order for the flagged garment, linked back
// through the item, and marks the item APPROVED.
func (s *RedoService) Approve(ctx context.Context, itemID, branchID, actorID uuid.UUID, actorName string) (*ApproveRedoResult, error) {
	item, err := s.getBranchItem(ctx, itemID, branchID)
	if err != nil {
		return nil, err
	}
	if item.Status != enum.RedoStatusPending {
		return nil, ErrRedoNotPending
	}

	original, err := s.store.GetOrderByID(ctx, item.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get original order: %w", err)
	}
	garment, err := s.store.GetGarment(ctx, database.GetGarmentParams{ID: item.GarmentID, OrderID: item.OrderID})
	if err != nil {
		return nil, fmt.Errorf("get original garment: %w", err)
	}

	orderResult, err := s.orders.CreateOrder(ctx, CreateOrderRequest{
		BranchID:         branchID,
		BranchCode:       orderBranchCode(original.OrderNo),
		CustomerID:       original.CustomerID,
		ServiceType:      original.ServiceType,
		CollectionMethod: enum.CollectionMethodDropOff,
		ReturnMethod:     original.ReturnMethod,
		ParentRedoItemID: item.ID,
		CreatedBy:        actorID,
		CreatedByName:    actorName,
		Garments: []CreateGarmentRequest{{
			Type:     garment.Type,
			Color:    garment.Color.String,
			Brand:    garment.Brand.String,
			Services: garment.Services,
			Price:    "0.00",
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("create redo order: %w", err)
	}

	updated, err := s.store.UpdateRedoItemStatus(ctx, database.UpdateRedoItemStatusParams{
		ID:          item.ID,
		Status:      enum.RedoStatusApproved,
		PrevStatus:  enum.RedoStatusPending,
		RedoOrderID: pgtype.UUID{Bytes: orderResult.Order.ID, Valid: true},
		ApprovedBy:  pgtype.UUID{Bytes: actorID, Valid: true},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %s was created", ErrRedoConflict, orderResult.Order.OrderNo)
		}
		return nil, fmt.Errorf("update redo item: %w", err)
	}

	return &ApproveRedoResult{Item: updated, Order: orderResult.Order, Garments: orderResult.Garments}, nil
}

// Reject marks a pending item REJECTED.
func (s *RedoService) Reject(ctx context.Context, itemID, branchID, actorID uuid.UUID) (database.RedoItem, error) {
	return s.transition(ctx, itemID, branchID, enum.RedoStatusRejected, pgtype.UUID{Bytes: actorID, Valid: true})
}

// Start marks an approved item IN_PROGRESS.
func (s *RedoService) Start(ctx context.Context, itemID, branchID uuid.UUID) (database.RedoItem, error) {
	return s.transition(ctx, itemID, branchID, enum.RedoStatusInProgress, pgtype.UUID{})
}

// Finish marks an in-progress item COMPLETED.
func (s *RedoService) Finish(ctx context.Context, itemID, branchID uuid.UUID) (database.RedoItem, error) {
	return s.transition(ctx, itemID, branchID, enum.RedoStatusCompleted, pgtype.UUID{})
}

// List returns redo items at the branch, optionally filtered by status.
func (s *RedoService) List(ctx context.Context, branchID uuid.UUID, status string, limit, offset int32) ([]database.RedoItem, error) {
	st := pgtype.Text{}
	if status != "" {
		st = pgtype.Text{String: status, Valid: true}
	}
	return s.store.ListRedoItems(ctx, database.ListRedoItemsParams{
		BranchID: branchID,
		Status:   st,
		Limit:    limit,
		Offset:   offset,
	})
}

func (s *RedoService) transition(ctx context.Context, itemID, branchID uuid.UUID, next string, approvedBy pgtype.UUID) (database.RedoItem, error) {
	item, err := s.getBranchItem(ctx, itemID, branchID)
	if err != nil {
		return database.RedoItem{}, err
	}
	if err := validateRedoTransition(item.Status, next); err != nil {
		return database.RedoItem{}, err
	}

	updated, err := s.store.UpdateRedoItemStatus(ctx, database.UpdateRedoItemStatusParams{
		ID:         item.ID,
		Status:     next,
		PrevStatus: item.Status,
		ApprovedBy: approvedBy,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.RedoItem{}, ErrRedoConflict
		}
		return database.RedoItem{}, fmt.Errorf("update redo item: %w", err)
	}
	return updated, nil
}

// getBranchItem loads the item and checks the parent order belongs to the
// caller's branch.
func (s *RedoService) getBranchItem(ctx context.Context, itemID, branchID uuid.UUID) (database.RedoItem, error) {
	item, err := s.store.GetRedoItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.RedoItem{}, ErrRedoItemNotFound
		}
		return database.RedoItem{}, fmt.Errorf("get redo item: %w", err)
	}
	order, err := s.store.GetOrderByID(ctx, item.OrderID)
	if err != nil {
		return database.RedoItem{}, fmt.Errorf("get parent order: %w", err)
	}
	if order.BranchID != branchID {
		return database.RedoItem{}, ErrRedoItemNotFound
	}
	return item, nil
}

func validateRedoTransition(current, next string) error {
	allowed, ok := redoTransitions[current]
	if !ok {
		return fmt.Errorf("%w: %s is terminal", ErrRedoConflict, current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot move redo item from %s to %s", ErrRedoConflict, current, next)
}

// orderBranchCode extracts the branch code from an order number like
// ORD-NBO-20250102-001.
func orderBranchCode(orderNo string) string {
	parts := strings.Split(orderNo, "-")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
