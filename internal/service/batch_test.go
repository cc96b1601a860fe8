package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/enum"
)

type mockBatchStore struct {
	createBatchFn              func(ctx context.Context, arg database.CreateBatchParams) (database.Batch, error)
	addOrderToBatchFn          func(ctx context.Context, arg database.AddOrderToBatchParams) error
	getBatchFn                 func(ctx context.Context, id uuid.UUID) (database.Batch, error)
	listBatchOrderIDsFn        func(ctx context.Context, batchID uuid.UUID) ([]uuid.UUID, error)
	listBatchesByStaffFn       func(ctx context.Context, arg database.ListBatchesByStaffParams) ([]database.Batch, error)
	countOpenBatchMembershipFn func(ctx context.Context, arg database.CountOpenBatchMembershipParams) (int64, error)
	completeBatchFn            func(ctx context.Context, id uuid.UUID) (database.Batch, error)
	getOrderByIDFn             func(ctx context.Context, id uuid.UUID) (database.Order, error)
	countGarmentsByOrderFn     func(ctx context.Context, orderID uuid.UUID) (int64, error)
}

func (m *mockBatchStore) CreateBatch(ctx context.Context, arg database.CreateBatchParams) (database.Batch, error) {
	return m.createBatchFn(ctx, arg)
}
func (m *mockBatchStore) AddOrderToBatch(ctx context.Context, arg database.AddOrderToBatchParams) error {
	return m.addOrderToBatchFn(ctx, arg)
}
func (m *mockBatchStore) GetBatch(ctx context.Context, id uuid.UUID) (database.Batch, error) {
	return m.getBatchFn(ctx, id)
}
func (m *mockBatchStore) ListBatchOrderIDs(ctx context.Context, batchID uuid.UUID) ([]uuid.UUID, error) {
	return m.listBatchOrderIDsFn(ctx, batchID)
}
func (m *mockBatchStore) ListBatchesByStaff(ctx context.Context, arg database.ListBatchesByStaffParams) ([]database.Batch, error) {
	return m.listBatchesByStaffFn(ctx, arg)
}
func (m *mockBatchStore) CountOpenBatchMembership(ctx context.Context, arg database.CountOpenBatchMembershipParams) (int64, error) {
	return m.countOpenBatchMembershipFn(ctx, arg)
}
func (m *mockBatchStore) CompleteBatch(ctx context.Context, id uuid.UUID) (database.Batch, error) {
	return m.completeBatchFn(ctx, id)
}
func (m *mockBatchStore) GetOrderByID(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderByIDFn(ctx, id)
}
func (m *mockBatchStore) CountGarmentsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return m.countGarmentsByOrderFn(ctx, orderID)
}

// mockOrderAdvancer records which orders it was asked to advance.
type mockOrderAdvancer struct {
	advanced []uuid.UUID
	errFor   map[uuid.UUID]error
}

func (m *mockOrderAdvancer) AdvanceForBatch(ctx context.Context, orderID uuid.UUID, stage string, actorID uuid.UUID, actorName string) (database.Order, error) {
	if err, ok := m.errFor[orderID]; ok {
		return database.Order{}, err
	}
	m.advanced = append(m.advanced, orderID)
	return database.Order{ID: orderID, Status: nextLinearStatus[statusForStage[stage]]}, nil
}

// defaultBatchStore wires a WASHING batch at branchID holding the given
// orders, all sitting at WASHING with 3 garments each.
func defaultBatchStore(batchID, branchID uuid.UUID, orderIDs []uuid.UUID) *mockBatchStore {
	orders := make(map[uuid.UUID]database.Order, len(orderIDs))
	for _, id := range orderIDs {
		orders[id] = database.Order{ID: id, BranchID: branchID, Status: enum.OrderStatusWashing}
	}
	return &mockBatchStore{
		createBatchFn: func(ctx context.Context, arg database.CreateBatchParams) (database.Batch, error) {
			return database.Batch{
				ID:            batchID,
				BranchID:      arg.BranchID,
				Stage:         arg.Stage,
				Status:        arg.Status,
				GarmentCount:  arg.GarmentCount,
				AssignedStaff: arg.AssignedStaff,
				CreatedBy:     arg.CreatedBy,
			}, nil
		},
		addOrderToBatchFn: func(ctx context.Context, arg database.AddOrderToBatchParams) error {
			return nil
		},
		getBatchFn: func(ctx context.Context, id uuid.UUID) (database.Batch, error) {
			if id != batchID {
				return database.Batch{}, pgx.ErrNoRows
			}
			return database.Batch{ID: batchID, BranchID: branchID, Stage: enum.StageWashing, Status: enum.BatchStatusInProgress}, nil
		},
		listBatchOrderIDsFn: func(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
			return orderIDs, nil
		},
		listBatchesByStaffFn: func(ctx context.Context, arg database.ListBatchesByStaffParams) ([]database.Batch, error) {
			return nil, nil
		},
		countOpenBatchMembershipFn: func(ctx context.Context, arg database.CountOpenBatchMembershipParams) (int64, error) {
			return 0, nil
		},
		completeBatchFn: func(ctx context.Context, id uuid.UUID) (database.Batch, error) {
			return database.Batch{ID: batchID, BranchID: branchID, Stage: enum.StageWashing, Status: enum.BatchStatusComplete}, nil
		},
		getOrderByIDFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			order, ok := orders[id]
			if !ok {
				return database.Order{}, pgx.ErrNoRows
			}
			return order, nil
		},
		countGarmentsByOrderFn: func(ctx context.Context, orderID uuid.UUID) (int64, error) {
			return 3, nil
		},
	}
}

func newTestBatchService(store *mockBatchStore, orders OrderAdvancer) *BatchService {
	pool := &mockTxBeginner{}
	newStore := func(db database.DBTX) BatchStore { return store }
	return NewBatchService(pool, store, newStore, orders)
}

func createBatchReq(branchID uuid.UUID, stage string, orderIDs []uuid.UUID) CreateBatchRequest {
	return CreateBatchRequest{
		BranchID:      branchID,
		Stage:         stage,
		OrderIDs:      orderIDs,
		AssignedStaff: []uuid.UUID{uuid.New()},
		CreatedBy:     uuid.New(),
	}
}

// ===== Create tests =====

func TestCreateBatch_InvalidStage(t *testing.T) {
	branchID := uuid.New()
	store := defaultBatchStore(uuid.New(), branchID, nil)
	svc := newTestBatchService(store, &mockOrderAdvancer{})

	_, err := svc.Create(context.Background(), createBatchReq(branchID, enum.StageIroning, []uuid.UUID{uuid.New()}))
	if !errors.Is(err, ErrInvalidBatchStage) {
		t.Fatalf("expected ErrInvalidBatchStage, got: %v", err)
	}
}

func TestCreateBatch_EmptyOrders(t *testing.T) {
	branchID := uuid.New()
	store := defaultBatchStore(uuid.New(), branchID, nil)
	svc := newTestBatchService(store, &mockOrderAdvancer{})

	_, err := svc.Create(context.Background(), createBatchReq(branchID, enum.StageWashing, nil))
	if !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got: %v", err)
	}
}

func TestCreateBatch_SumsGarmentCounts(t *testing.T) {
	branchID := uuid.New()
	orderIDs := []uuid.UUID{uuid.New(), uuid.New()}
	store := defaultBatchStore(uuid.New(), branchID, orderIDs)

	var captured database.CreateBatchParams
	store.createBatchFn = func(ctx context.Context, arg database.CreateBatchParams) (database.Batch, error) {
		captured = arg
		return database.Batch{ID: uuid.New(), BranchID: arg.BranchID, Stage: arg.Stage, Status: arg.Status, GarmentCount: arg.GarmentCount}, nil
	}

	svc := newTestBatchService(store, &mockOrderAdvancer{})
	batch, err := svc.Create(context.Background(), createBatchReq(branchID, enum.StageWashing, orderIDs))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.GarmentCount != 6 {
		t.Errorf("garment count: got %d, want 6", captured.GarmentCount)
	}
	if captured.Status != enum.BatchStatusInProgress {
		t.Errorf("status: got %s, want IN_PROGRESS", captured.Status)
	}
	if batch.GarmentCount != 6 {
		t.Errorf("returned garment count: got %d, want 6", batch.GarmentCount)
	}
}

func TestCreateBatch_LinksEveryOrder(t *testing.T) {
	branchID := uuid.New()
	orderIDs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	store := defaultBatchStore(uuid.New(), branchID, orderIDs)

	var linked []uuid.UUID
	store.addOrderToBatchFn = func(ctx context.Context, arg database.AddOrderToBatchParams) error {
		linked = append(linked, arg.OrderID)
		return nil
	}

	svc := newTestBatchService(store, &mockOrderAdvancer{})
	if _, err := svc.Create(context.Background(), createBatchReq(branchID, enum.StageWashing, orderIDs)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(linked) != 3 {
		t.Errorf("linked orders: got %d, want 3", len(linked))
	}
}

func TestCreateBatch_ForeignBranchOrderRejected(t *testing.T) {
	branchID := uuid.New()
	orderID := uuid.New()
	store := defaultBatchStore(uuid.New(), branchID, []uuid.UUID{orderID})
	store.getOrderByIDFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: id, BranchID: uuid.New(), Status: enum.OrderStatusWashing}, nil
	}

	svc := newTestBatchService(store, &mockOrderAdvancer{})
	_, err := svc.Create(context.Background(), createBatchReq(branchID, enum.StageWashing, []uuid.UUID{orderID}))
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestCreateBatch_AlreadyBatchedRejected(t *testing.T) {
	branchID := uuid.New()
	orderID := uuid.New()
	store := defaultBatchStore(uuid.New(), branchID, []uuid.UUID{orderID})
	store.countOpenBatchMembershipFn = func(ctx context.Context, arg database.CountOpenBatchMembershipParams) (int64, error) {
		return 1, nil
	}

	svc := newTestBatchService(store, &mockOrderAdvancer{})
	_, err := svc.Create(context.Background(), createBatchReq(branchID, enum.StageWashing, []uuid.UUID{orderID}))
	if !errors.Is(err, ErrOrderAlreadyBatched) {
		t.Fatalf("expected ErrOrderAlreadyBatched, got: %v", err)
	}
}

// ===== Complete tests =====

func TestCompleteBatch_AdvancesEveryOrder(t *testing.T) {
	batchID := uuid.New()
	branchID := uuid.New()
	orderIDs := []uuid.UUID{uuid.New(), uuid.New()}
	store := defaultBatchStore(batchID, branchID, orderIDs)
	advancer := &mockOrderAdvancer{}

	svc := newTestBatchService(store, advancer)
	result, err := svc.Complete(context.Background(), branchID, batchID, uuid.New(), "Washer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(advancer.advanced) != 2 {
		t.Errorf("advanced orders: got %d, want 2", len(advancer.advanced))
	}
	if len(result.Failed) != 0 {
		t.Errorf("failed orders: got %v, want none", result.Failed)
	}
	if result.Batch.Status != enum.BatchStatusComplete {
		t.Errorf("batch status: got %s, want COMPLETE", result.Batch.Status)
	}
}

func TestCompleteBatch_PartialFailureKeepsBatchOpen(t *testing.T) {
	batchID := uuid.New()
	branchID := uuid.New()
	good := uuid.New()
	bad := uuid.New()
	store := defaultBatchStore(batchID, branchID, []uuid.UUID{good, bad})
	advancer := &mockOrderAdvancer{errFor: map[uuid.UUID]error{bad: ErrIllegalTransition}}

	completeCalled := false
	store.completeBatchFn = func(ctx context.Context, id uuid.UUID) (database.Batch, error) {
		completeCalled = true
		return database.Batch{}, nil
	}

	svc := newTestBatchService(store, advancer)
	result, err := svc.Complete(context.Background(), branchID, batchID, uuid.New(), "Washer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if completeCalled {
		t.Error("batch must stay open when an order fails to advance")
	}
	if len(result.Advanced) != 1 || result.Advanced[0] != good {
		t.Errorf("advanced: got %v, want [%s]", result.Advanced, good)
	}
	if len(result.Failed) != 1 || result.Failed[0].OrderID != bad {
		t.Errorf("failed: got %v, want [%s]", result.Failed, bad)
	}
}

func TestCompleteBatch_SkipsOrdersPastStage(t *testing.T) {
	batchID := uuid.New()
	branchID := uuid.New()
	orderID := uuid.New()
	store := defaultBatchStore(batchID, branchID, []uuid.UUID{orderID})
	// Order already moved on (a retry after a partial earlier completion).
	store.getOrderByIDFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: id, BranchID: branchID, Status: enum.OrderStatusIroning}, nil
	}
	advancer := &mockOrderAdvancer{}

	svc := newTestBatchService(store, advancer)
	result, err := svc.Complete(context.Background(), branchID, batchID, uuid.New(), "Washer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(advancer.advanced) != 0 {
		t.Error("order past the stage should not be advanced again")
	}
	if len(result.Advanced) != 1 {
		t.Errorf("advanced: got %v, want the skipped order counted", result.Advanced)
	}
	if result.Batch.Status != enum.BatchStatusComplete {
		t.Errorf("batch status: got %s, want COMPLETE", result.Batch.Status)
	}
}

func TestCompleteBatch_OrderBehindStageFails(t *testing.T) {
	batchID := uuid.New()
	branchID := uuid.New()
	orderID := uuid.New()
	store := defaultBatchStore(batchID, branchID, []uuid.UUID{orderID})
	store.getOrderByIDFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: id, BranchID: branchID, Status: enum.OrderStatusQueued}, nil
	}

	svc := newTestBatchService(store, &mockOrderAdvancer{})
	result, err := svc.Complete(context.Background(), branchID, batchID, uuid.New(), "Washer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("failed: got %v, want 1 entry", result.Failed)
	}
}

func TestCompleteBatch_NotFound(t *testing.T) {
	branchID := uuid.New()
	store := defaultBatchStore(uuid.New(), branchID, nil)
	svc := newTestBatchService(store, &mockOrderAdvancer{})

	_, err := svc.Complete(context.Background(), branchID, uuid.New(), uuid.New(), "Washer")
	if !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got: %v", err)
	}
}

func TestCompleteBatch_WrongBranchIsNotFound(t *testing.T) {
	batchID := uuid.New()
	store := defaultBatchStore(batchID, uuid.New(), nil)
	svc := newTestBatchService(store, &mockOrderAdvancer{})

	_, err := svc.Complete(context.Background(), uuid.New(), batchID, uuid.New(), "Washer")
	if !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got: %v", err)
	}
}

func TestCompleteBatch_AlreadyComplete(t *testing.T) {
	batchID := uuid.New()
	branchID := uuid.New()
	store := defaultBatchStore(batchID, branchID, nil)
	store.getBatchFn = func(ctx context.Context, id uuid.UUID) (database.Batch, error) {
		return database.Batch{ID: batchID, BranchID: branchID, Stage: enum.StageWashing, Status: enum.BatchStatusComplete}, nil
	}

	svc := newTestBatchService(store, &mockOrderAdvancer{})
	_, err := svc.Complete(context.Background(), branchID, batchID, uuid.New(), "Washer")
	if !errors.Is(err, ErrBatchNotOpen) {
		t.Fatalf("expected ErrBatchNotOpen, got: %v", err)
	}
}

// ===== orderPastStage tests =====

func TestOrderPastStage(t *testing.T) {
	cases := []struct {
		status string
		stage  string
		want   bool
	}{
		{enum.OrderStatusDrying, enum.StageWashing, true},
		{enum.OrderStatusIroning, enum.StageWashing, true},
		{enum.OrderStatusDelivered, enum.StageWashing, true},
		{enum.OrderStatusCancelled, enum.StageDrying, true},
		{enum.OrderStatusQueuedForDelivery, enum.StageDrying, true},
		{enum.OrderStatusQueued, enum.StageWashing, false},
		{enum.OrderStatusWashing, enum.StageDrying, false},
	}
	for _, c := range cases {
		if got := orderPastStage(c.status, c.stage); got != c.want {
			t.Errorf("orderPastStage(%s, %s): got %v, want %v", c.status, c.stage, got, c.want)
		}
	}
}
