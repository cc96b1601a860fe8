package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/enum"
)

var (
	ErrEmptyBatch          = errors.New("batch requires at least one order")
	ErrInvalidBatchStage   = errors.New("batching only supported for WASHING and DRYING")
	ErrOrderAlreadyBatched = errors.New("order is already in an open batch for this stage")
	ErrBatchNotFound       = errors.New("batch not found")
	ErrBatchNotOpen        = errors.New("batch is not in progress")
)

// BatchStore defines the DB methods the batch service needs.
type BatchStore interface {
	CreateBatch(ctx context.Context, arg database.CreateBatchParams) (database.Batch, error)
	AddOrderToBatch(ctx context.Context, arg database.AddOrderToBatchParams) error
	GetBatch(ctx context.Context, id uuid.UUID) (database.Batch, error)
	ListBatchOrderIDs(ctx context.Context, batchID uuid.UUID) ([]uuid.UUID, error)
	ListBatchesByStaff(ctx context.Context, arg database.ListBatchesByStaffParams) ([]database.Batch, error)
	CountOpenBatchMembership(ctx context.Context, arg database.CountOpenBatchMembershipParams) (int64, error)
	CompleteBatch(ctx context.Context, id uuid.UUID) (database.Batch, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (database.Order, error)
	CountGarmentsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

// NewBatchStore creates a BatchStore from a DBTX.
type NewBatchStore func(db database.DBTX) BatchStore

// OrderAdvancer advances an order past a batch stage. Implemented by
// *OrderService.
type OrderAdvancer interface {
	AdvanceForBatch(ctx context.Context, orderID uuid.UUID, stage string, actorID uuid.UUID, actorName string) (database.Order, error)
}

// CreateBatchRequest groups orders into a processing batch.
type CreateBatchRequest struct {
	BranchID      uuid.UUID
	Stage         string
	OrderIDs      []uuid.UUID
	AssignedStaff []uuid.UUID
	CreatedBy     uuid.UUID
}

// CompleteBatchResult is the saga outcome of completing a batch. The batch
// row is only marked COMPLETE when every contained order advanced.
type CompleteBatchResult struct {
	Batch    database.Batch
	Advanced []uuid.UUID
	Failed   []BatchOrderFailure
}

// BatchOrderFailure names one order that could not advance and why.
type BatchOrderFailure struct {
	OrderID uuid.UUID `json:"order_id"`
	Reason  string    `json:"reason"`
}

// BatchService manages processing batches for collective stages.
type BatchService struct {
	pool     TxBeginner
	store    BatchStore
	newStore NewBatchStore
	orders   OrderAdvancer
}

// NewBatchService creates a new BatchService.
func NewBatchService(pool TxBeginner, store BatchStore, newStore NewBatchStore, orders OrderAdvancer) *BatchService {
	return &BatchService{pool: pool, store: store, newStore: newStore, orders: orders}
}

// Create validates membership and creates the batch with its order links in
// one transaction.
func (s *BatchService) Create(ctx context.Context, req CreateBatchRequest) (database.Batch, error) {
	if req.Stage != enum.StageWashing && req.Stage != enum.StageDrying {
		return database.Batch{}, ErrInvalidBatchStage
	}
	if len(req.OrderIDs) == 0 {
		return database.Batch{}, ErrEmptyBatch
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Batch{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	var garmentCount int64
	for _, orderID := range req.OrderIDs {
		order, err := store.GetOrderByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.Batch{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
			}
			return database.Batch{}, fmt.Errorf("get order: %w", err)
		}
		if order.BranchID != req.BranchID {
			return database.Batch{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		open, err := store.CountOpenBatchMembership(ctx, database.CountOpenBatchMembershipParams{
			OrderID: orderID,
			Stage:   req.Stage,
		})
		if err != nil {
			return database.Batch{}, fmt.Errorf("check batch membership: %w", err)
		}
		if open > 0 {
			return database.Batch{}, fmt.Errorf("%w: %s", ErrOrderAlreadyBatched, order.OrderNo)
		}
		n, err := store.CountGarmentsByOrder(ctx, orderID)
		if err != nil {
			return database.Batch{}, fmt.Errorf("count garments: %w", err)
		}
		garmentCount += n
	}

	batch, err := store.CreateBatch(ctx, database.CreateBatchParams{
		BranchID:      req.BranchID,
		Stage:         req.Stage,
		Status:        enum.BatchStatusInProgress,
		GarmentCount:  int32(garmentCount),
		AssignedStaff: req.AssignedStaff,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		return database.Batch{}, fmt.Errorf("create batch: %w", err)
	}

	for _, orderID := range req.OrderIDs {
		if err := store.AddOrderToBatch(ctx, database.AddOrderToBatchParams{
			BatchID: batch.ID,
			OrderID: orderID,
		}); err != nil {
			return database.Batch{}, fmt.Errorf("add order to batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Batch{}, fmt.Errorf("commit tx: %w", err)
	}
	return batch, nil
}

// ListMine returns the caller's open batches at their branch.
func (s *BatchService) ListMine(ctx context.Context, branchID, staffID uuid.UUID) ([]database.Batch, error) {
	return s.store.ListBatchesByStaff(ctx, database.ListBatchesByStaffParams{
		BranchID: branchID,
		StaffID:  staffID,
		Status:   enum.BatchStatusInProgress,
	})
}

// Get returns a batch with its order ids.
func (s *BatchService) Get(ctx context.Context, branchID, batchID uuid.UUID) (database.Batch, []uuid.UUID, error) {
	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Batch{}, nil, ErrBatchNotFound
		}
		return database.Batch{}, nil, fmt.Errorf("get batch: %w", err)
	}
	if batch.BranchID != branchID {
		return database.Batch{}, nil, ErrBatchNotFound
	}
	orderIDs, err := s.store.ListBatchOrderIDs(ctx, batchID)
	if err != nil {
		return database.Batch{}, nil, fmt.Errorf("list batch orders: %w", err)
	}
	return batch, orderIDs, nil
}

// Complete advances every contained order past the batch's stage, each in
// its own transaction, then marks the batch complete. When any order fails
// to advance the batch stays IN_PROGRESS and the result names the failures
// so the caller can retry after fixing them.
func (s *BatchService) Complete(ctx context.Context, branchID, batchID, actorID uuid.UUID, actorName string) (*CompleteBatchResult, error) {
	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	if batch.BranchID != branchID {
		return nil, ErrBatchNotFound
	}
	if batch.Status != enum.BatchStatusInProgress {
		return nil, ErrBatchNotOpen
	}

	orderIDs, err := s.store.ListBatchOrderIDs(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch orders: %w", err)
	}

	result := &CompleteBatchResult{Batch: batch}
	for _, orderID := range orderIDs {
		order, err := s.store.GetOrderByID(ctx, orderID)
		if err != nil {
			result.Failed = append(result.Failed, BatchOrderFailure{OrderID: orderID, Reason: "order not found"})
			continue
		}
		// Orders that already moved past the stage (or were cancelled)
		// are fine to skip, the work is accounted for elsewhere.
		if order.Status != statusForStage[batch.Stage] {
			if orderPastStage(order.Status, batch.Stage) {
				result.Advanced = append(result.Advanced, orderID)
				continue
			}
			result.Failed = append(result.Failed, BatchOrderFailure{
				OrderID: orderID,
				Reason:  fmt.Sprintf("order is %s, expected %s", order.Status, statusForStage[batch.Stage]),
			})
			continue
		}
		if _, err := s.orders.AdvanceForBatch(ctx, orderID, batch.Stage, actorID, actorName); err != nil {
			result.Failed = append(result.Failed, BatchOrderFailure{OrderID: orderID, Reason: err.Error()})
			continue
		}
		result.Advanced = append(result.Advanced, orderID)
	}

	if len(result.Failed) > 0 {
		return result, nil
	}

	completed, err := s.store.CompleteBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Someone else completed it between our check and update.
			return nil, ErrBatchNotOpen
		}
		return nil, fmt.Errorf("complete batch: %w", err)
	}
	result.Batch = completed
	return result, nil
}

// orderPastStage reports whether the status is downstream of the stage's
// status in the linear pipeline, or terminal.
func orderPastStage(status, stage string) bool {
	if isTerminalStatus(status) {
		return true
	}
	cur := statusForStage[stage]
	for {
		next, ok := nextLinearStatus[cur]
		if !ok {
			// Ran off the pipeline; compare against the delivery tail.
			switch status {
			case enum.OrderStatusQueuedForDelivery, enum.OrderStatusOutForDelivery:
				return true
			}
			return false
		}
		if next == status {
			return true
		}
		cur = next
	}
}
