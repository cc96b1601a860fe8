package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/enum"
	"github.com/cleanline-pos/api/internal/notify"
)

// Errors returned by the order service.
var (
	ErrEmptyGarments           = errors.New("garments are required")
	ErrInvalidServiceType      = errors.New("invalid service_type")
	ErrInvalidCollectionMethod = errors.New("invalid collection_method")
	ErrInvalidReturnMethod     = errors.New("invalid return_method")
	ErrInvalidPrice            = errors.New("invalid garment price")
	ErrInvalidPaidAmount       = errors.New("invalid paid_amount")
	ErrInvalidReadyAt          = errors.New("invalid estimated_ready_at")
	ErrInvalidStatus           = errors.New("invalid status")
	ErrInvalidStage            = errors.New("invalid stage")
	ErrOrderNotFound           = errors.New("order not found")
	ErrGarmentNotFound         = errors.New("garment not found on order")
	ErrIllegalTransition       = errors.New("illegal status transition")
	ErrStageIncomplete         = errors.New("stage not complete for all garments")
	ErrStageAlreadyDone        = errors.New("stage already completed for garment")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the order service needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	NextDailySequence(ctx context.Context, scope string, day time.Time) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateGarment(ctx context.Context, arg database.CreateGarmentParams) (database.Garment, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	AppendStatusHistory(ctx context.Context, arg database.AppendStatusHistoryParams) (database.StatusHistory, error)
	GetGarment(ctx context.Context, arg database.GetGarmentParams) (database.Garment, error)
	CountGarmentsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	CountStageCompletions(ctx context.Context, arg database.CountStageCompletionsParams) (int64, error)
	CreateStageCompletion(ctx context.Context, arg database.CreateStageCompletionParams) (database.StageCompletion, error)
	HasCompleteBatch(ctx context.Context, arg database.HasCompleteBatchParams) (bool, error)
	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// allowedTransitions is the order status adjacency table. Terminal states
// (DELIVERED, COLLECTED, CANCELLED) have no entry.
var allowedTransitions = map[string][]string{
	enum.OrderStatusReceived:          {enum.OrderStatusQueued, enum.OrderStatusCancelled},
	enum.OrderStatusQueued:            {enum.OrderStatusWashing, enum.OrderStatusCancelled},
	enum.OrderStatusWashing:           {enum.OrderStatusDrying, enum.OrderStatusRedo, enum.OrderStatusCancelled},
	enum.OrderStatusDrying:            {enum.OrderStatusIroning, enum.OrderStatusRedo, enum.OrderStatusCancelled},
	enum.OrderStatusIroning:           {enum.OrderStatusQualityCheck, enum.OrderStatusRedo, enum.OrderStatusCancelled},
	enum.OrderStatusQualityCheck:      {enum.OrderStatusPackaging, enum.OrderStatusRedo, enum.OrderStatusCancelled},
	enum.OrderStatusPackaging:         {enum.OrderStatusQueuedForDelivery, enum.OrderStatusRedo, enum.OrderStatusCancelled},
	enum.OrderStatusQueuedForDelivery: {enum.OrderStatusOutForDelivery, enum.OrderStatusCollected, enum.OrderStatusCancelled},
	enum.OrderStatusOutForDelivery:    {enum.OrderStatusDelivered, enum.OrderStatusCancelled},
	enum.OrderStatusRedo:              {enum.OrderStatusQueued, enum.OrderStatusCancelled},
}

// stageForStatus maps an in-stage order status to the garment stage that
// must be complete before the order can move forward.
var stageForStatus = map[string]string{
	enum.OrderStatusWashing:      enum.StageWashing,
	enum.OrderStatusDrying:       enum.StageDrying,
	enum.OrderStatusIroning:      enum.StageIroning,
	enum.OrderStatusQualityCheck: enum.StageQualityCheck,
	enum.OrderStatusPackaging:    enum.StagePackaging,
}

// statusForStage is the inverse of stageForStatus.
var statusForStage = map[string]string{
	enum.StageWashing:      enum.OrderStatusWashing,
	enum.StageDrying:       enum.OrderStatusDrying,
	enum.StageIroning:      enum.OrderStatusIroning,
	enum.StageQualityCheck: enum.OrderStatusQualityCheck,
	enum.StagePackaging:    enum.OrderStatusPackaging,
}

// nextLinearStatus is the forward step out of each in-stage status.
var nextLinearStatus = map[string]string{
	enum.OrderStatusWashing:      enum.OrderStatusDrying,
	enum.OrderStatusDrying:       enum.OrderStatusIroning,
	enum.OrderStatusIroning:      enum.OrderStatusQualityCheck,
	enum.OrderStatusQualityCheck: enum.OrderStatusPackaging,
	enum.OrderStatusPackaging:    enum.OrderStatusQueuedForDelivery,
}

// batchStages are performed collectively; a completed batch also satisfies
// the stage requirement for every contained order.
var batchStages = map[string]bool{
	enum.StageWashing: true,
	enum.StageDrying:  true,
}

// CreateGarmentRequest is a single garment on a new order.
type CreateGarmentRequest struct {
	Type     string
	Color    string
	Brand    string
	Services []string
	Price    string
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	BranchID          uuid.UUID
	BranchCode        string
	CustomerID        uuid.UUID
	ServiceType       string
	CollectionMethod  string
	CollectionAddress string
	ReturnMethod      string
	ReturnAddress     string
	PaidAmount        string
	EstimatedReadyAt  string // RFC3339
	ParentRedoItemID  uuid.UUID
	CreatedBy         uuid.UUID
	CreatedByName     string
	Garments          []CreateGarmentRequest
}

// CreateOrderResult is the created order with its garments.
type CreateOrderResult struct {
	Order    database.Order
	Garments []database.Garment
}

// TransitionRequest moves an order to a new status.
type TransitionRequest struct {
	OrderID   uuid.UUID
	BranchID  uuid.UUID
	Status    string
	ActorID   uuid.UUID
	ActorName string
}

// CompleteStageRequest records one garment finishing one stage.
type CompleteStageRequest struct {
	OrderID   uuid.UUID
	BranchID  uuid.UUID
	GarmentID uuid.UUID
	Stage     string
	ActorID   uuid.UUID
	ActorName string
	StartedAt string // RFC3339, optional
}

// CompleteStageResult reports the recorded completion and whether the order
// auto-advanced because every garment is now done for the stage.
type CompleteStageResult struct {
	Completion  database.StageCompletion
	AllComplete bool
	Order       database.Order
	Advanced    bool
}

// OrderService handles order lifecycle business logic.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore // pool-bound, for reads outside transactions
	newStore NewOrderStore
	notifier notify.Notifier
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore, notifier notify.Notifier) *OrderService {
	return &OrderService{pool: pool, store: store, newStore: newStore, notifier: notifier}
}

// CreateOrder validates garments, generates the daily order number, and
// creates the order, its garments, and the initial status history entry in
// one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := validateServiceType(req.ServiceType); err != nil {
		return nil, err
	}
	if err := validateCollectionMethod(req.CollectionMethod); err != nil {
		return nil, err
	}
	if err := validateReturnMethod(req.ReturnMethod); err != nil {
		return nil, err
	}
	if len(req.Garments) == 0 {
		return nil, ErrEmptyGarments
	}

	total := decimal.Zero
	prices := make([]decimal.Decimal, len(req.Garments))
	for i, g := range req.Garments {
		p, err := decimal.NewFromString(g.Price)
		if err != nil || p.IsNegative() {
			return nil, fmt.Errorf("garments[%d]: %w", i, ErrInvalidPrice)
		}
		prices[i] = p
		total = total.Add(p)
	}

	paid := decimal.Zero
	if req.PaidAmount != "" {
		p, err := decimal.NewFromString(req.PaidAmount)
		if err != nil || p.IsNegative() {
			return nil, ErrInvalidPaidAmount
		}
		paid = p
	}

	estimatedReadyAt := pgtype.Timestamptz{}
	if req.EstimatedReadyAt != "" {
		t, err := time.Parse(time.RFC3339, req.EstimatedReadyAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidReadyAt, err)
		}
		estimatedReadyAt = pgtype.Timestamptz{Time: t, Valid: true}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	now := time.Now()
	seq, err := store.NextDailySequence(ctx, "ORD-"+req.BranchCode, now)
	if err != nil {
		return nil, fmt.Errorf("next order sequence: %w", err)
	}
	orderNo := fmt.Sprintf("ORD-%s-%s-%03d", req.BranchCode, now.Format("20060102"), seq)

	parentRedoItemID := pgtype.UUID{}
	if req.ParentRedoItemID != uuid.Nil {
		parentRedoItemID = pgtype.UUID{Bytes: req.ParentRedoItemID, Valid: true}
	}

	collectionAddress := pgtype.Text{}
	if req.CollectionAddress != "" {
		collectionAddress = pgtype.Text{String: req.CollectionAddress, Valid: true}
	}
	returnAddress := pgtype.Text{}
	if req.ReturnAddress != "" {
		returnAddress = pgtype.Text{String: req.ReturnAddress, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNo:           orderNo,
		BranchID:          req.BranchID,
		CustomerID:        req.CustomerID,
		Status:            enum.OrderStatusReceived,
		ServiceType:       req.ServiceType,
		CollectionMethod:  req.CollectionMethod,
		CollectionAddress: collectionAddress,
		ReturnMethod:      req.ReturnMethod,
		ReturnAddress:     returnAddress,
		TotalAmount:       decimalToNumeric(total),
		PaidAmount:        decimalToNumeric(paid),
		PaymentStatus:     paymentStatus(total, paid),
		EstimatedReadyAt:  estimatedReadyAt,
		ParentRedoItemID:  parentRedoItemID,
		CreatedBy:         req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	garments := make([]database.Garment, len(req.Garments))
	for i, g := range req.Garments {
		color := pgtype.Text{}
		if g.Color != "" {
			color = pgtype.Text{String: g.Color, Valid: true}
		}
		brand := pgtype.Text{}
		if g.Brand != "" {
			brand = pgtype.Text{String: g.Brand, Valid: true}
		}
		garment, err := store.CreateGarment(ctx, database.CreateGarmentParams{
			OrderID:   order.ID,
			GarmentNo: int32(i + 1),
			Type:      g.Type,
			Color:     color,
			Brand:     brand,
			Services:  g.Services,
			Price:     decimalToNumeric(prices[i]),
		})
		if err != nil {
			return nil, fmt.Errorf("create garment: %w", err)
		}
		garments[i] = garment
	}

	// Status history starts with the initial status; the invariant that
	// orders.status matches the last history entry holds from creation.
	if _, err := store.AppendStatusHistory(ctx, database.AppendStatusHistoryParams{
		OrderID:   order.ID,
		Status:    enum.OrderStatusReceived,
		ActorID:   req.CreatedBy,
		ActorName: req.CreatedByName,
	}); err != nil {
		return nil, fmt.Errorf("append status history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Garments: garments}, nil
}

// Transition moves an order to a new status, enforcing the adjacency table
// and per-stage completion requirements, and appends exactly one status
// history entry in the same transaction.
func (s *OrderService) Transition(ctx context.Context, req TransitionRequest) (database.Order, error) {
	if _, known := allowedTransitions[req.Status]; !known && !isTerminalStatus(req.Status) {
		return database.Order{}, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order.BranchID != req.BranchID {
		return database.Order{}, ErrOrderNotFound
	}

	updated, err := s.transitionTx(ctx, store, order, req.Status, req.ActorID, req.ActorName, false)
	if err != nil {
		return database.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.dispatchSideEffects(updated)
	return updated, nil
}

// AdvanceForBatch advances one order past a batch stage on behalf of batch
// completion. The stage-completion requirement is skipped: the completed
// batch is the evidence that the stage work happened.
func (s *OrderService) AdvanceForBatch(ctx context.Context, orderID uuid.UUID, stage string, actorID uuid.UUID, actorName string) (database.Order, error) {
	fromStatus, ok := statusForStage[stage]
	if !ok {
		return database.Order{}, ErrInvalidStage
	}
	next := nextLinearStatus[fromStatus]

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order.Status != fromStatus {
		return database.Order{}, fmt.Errorf("%w: order is %s, not %s", ErrIllegalTransition, order.Status, fromStatus)
	}

	updated, err := s.transitionTx(ctx, store, order, next, actorID, actorName, true)
	if err != nil {
		return database.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.dispatchSideEffects(updated)
	return updated, nil
}

// CompleteStage records a garment's stage completion and, when every
// garment on the order is now done for that stage, advances the order in
// the same transaction. Recording and evaluating are one atomic
// read-modify-write: the order row lock serializes concurrent completions.
func (s *OrderService) CompleteStage(ctx context.Context, req CompleteStageRequest) (*CompleteStageResult, error) {
	if _, ok := statusForStage[req.Stage]; !ok {
		return nil, ErrInvalidStage
	}

	startedAt := pgtype.Timestamptz{}
	if req.StartedAt != "" {
		t, err := time.Parse(time.RFC3339, req.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid started_at", ErrInvalidStage)
		}
		startedAt = pgtype.Timestamptz{Time: t, Valid: true}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.BranchID != req.BranchID {
		return nil, ErrOrderNotFound
	}

	if _, err := store.GetGarment(ctx, database.GetGarmentParams{ID: req.GarmentID, OrderID: req.OrderID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGarmentNotFound
		}
		return nil, fmt.Errorf("get garment: %w", err)
	}

	completion, err := store.CreateStageCompletion(ctx, database.CreateStageCompletionParams{
		OrderID:   req.OrderID,
		GarmentID: req.GarmentID,
		Stage:     req.Stage,
		StaffID:   req.ActorID,
		StaffName: req.ActorName,
		StartedAt: startedAt,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrStageAlreadyDone
		}
		return nil, fmt.Errorf("create stage completion: %w", err)
	}

	garmentCount, err := store.CountGarmentsByOrder(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("count garments: %w", err)
	}
	doneCount, err := store.CountStageCompletions(ctx, database.CountStageCompletionsParams{
		OrderID: req.OrderID,
		Stage:   req.Stage,
	})
	if err != nil {
		return nil, fmt.Errorf("count stage completions: %w", err)
	}

	result := &CompleteStageResult{
		Completion:  completion,
		AllComplete: doneCount >= garmentCount,
		Order:       order,
	}

	// Auto-advance when the order is sitting in this stage and the last
	// garment just finished.
	if result.AllComplete && order.Status == statusForStage[req.Stage] {
		next := nextLinearStatus[order.Status]
		updated, err := s.transitionTx(ctx, store, order, next, req.ActorID, req.ActorName, true)
		if err != nil {
			return nil, err
		}
		result.Order = updated
		result.Advanced = true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if result.Advanced {
		s.dispatchSideEffects(result.Order)
	}
	return result, nil
}

// transitionTx validates and applies one status transition inside the
// caller's transaction. stageSatisfied skips the per-garment completion
// check (batch completion and auto-advance already proved it).
func (s *OrderService) transitionTx(ctx context.Context, store OrderStore, order database.Order, next string, actorID uuid.UUID, actorName string, stageSatisfied bool) (database.Order, error) {
	if err := validateStatusTransition(order.Status, next); err != nil {
		return database.Order{}, err
	}

	// Forward moves out of an in-stage status require the stage done for
	// every garment, or a complete batch for batch stages.
	if !stageSatisfied && next != enum.OrderStatusCancelled && next != enum.OrderStatusRedo {
		if stage, inStage := stageForStatus[order.Status]; inStage {
			ok, err := s.stageSatisfied(ctx, store, order.ID, stage)
			if err != nil {
				return database.Order{}, err
			}
			if !ok {
				return database.Order{}, fmt.Errorf("%w: %s", ErrStageIncomplete, stage)
			}
		}
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:               order.ID,
		Status:           next,
		FeedbackEligible: next == enum.OrderStatusDelivered || next == enum.OrderStatusCollected,
		Completed:        next == enum.OrderStatusDelivered || next == enum.OrderStatusCollected,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	if _, err := store.AppendStatusHistory(ctx, database.AppendStatusHistoryParams{
		OrderID:   order.ID,
		Status:    next,
		ActorID:   actorID,
		ActorName: actorName,
	}); err != nil {
		return database.Order{}, fmt.Errorf("append status history: %w", err)
	}

	return updated, nil
}

// stageSatisfied reports whether every garment has a completion record for
// the stage, or (for batch stages) a containing batch completed.
func (s *OrderService) stageSatisfied(ctx context.Context, store OrderStore, orderID uuid.UUID, stage string) (bool, error) {
	garmentCount, err := store.CountGarmentsByOrder(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("count garments: %w", err)
	}
	doneCount, err := store.CountStageCompletions(ctx, database.CountStageCompletionsParams{
		OrderID: orderID,
		Stage:   stage,
	})
	if err != nil {
		return false, fmt.Errorf("count stage completions: %w", err)
	}
	if doneCount >= garmentCount {
		return true, nil
	}
	if batchStages[stage] {
		return store.HasCompleteBatch(ctx, database.HasCompleteBatchParams{OrderID: orderID, Stage: stage})
	}
	return false, nil
}

// dispatchSideEffects sends customer notifications for statuses that have
// them. Dispatch is fire-and-forget: a notification failure is logged and
// never affects the already-committed transition.
func (s *OrderService) dispatchSideEffects(order database.Order) {
	var eventType, message string
	switch order.Status {
	case enum.OrderStatusQueuedForDelivery:
		eventType = notify.EventOrderReady
		message = fmt.Sprintf("Your order %s is ready.", order.OrderNo)
	case enum.OrderStatusDelivered:
		eventType = notify.EventOrderDelivered
		message = fmt.Sprintf("Your order %s has been delivered. We'd love your feedback!", order.OrderNo)
	case enum.OrderStatusCollected:
		eventType = notify.EventOrderCollected
		message = fmt.Sprintf("Thanks for collecting order %s. We'd love your feedback!", order.OrderNo)
	default:
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		phone := ""
		customer, err := s.store.GetCustomer(ctx, database.GetCustomerParams{ID: order.CustomerID, BranchID: order.BranchID})
		if err != nil {
			log.Printf("WARN: notify %s: lookup customer for order %s: %v", eventType, order.OrderNo, err)
		} else {
			phone = customer.Phone
		}

		if err := s.notifier.Send(ctx, notify.Event{
			Type:    eventType,
			OrderNo: order.OrderNo,
			Phone:   phone,
			Message: message,
		}); err != nil {
			log.Printf("WARN: notify %s for order %s: %v", eventType, order.OrderNo, err)
		}
	}()
}

// --- Helpers ---

func validateStatusTransition(current, next string) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("%w: cannot transition from %s", ErrIllegalTransition, current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrIllegalTransition, current, next)
}

func isTerminalStatus(s string) bool {
	switch s {
	case enum.OrderStatusDelivered, enum.OrderStatusCollected, enum.OrderStatusCancelled:
		return true
	}
	return false
}

func validateServiceType(s string) error {
	switch s {
	case enum.ServiceTypeNormal, enum.ServiceTypeExpress:
		return nil
	}
	return ErrInvalidServiceType
}

func validateCollectionMethod(s string) error {
	switch s {
	case enum.CollectionMethodDropOff, enum.CollectionMethodPickup:
		return nil
	}
	return ErrInvalidCollectionMethod
}

func validateReturnMethod(s string) error {
	switch s {
	case enum.ReturnMethodCollect, enum.ReturnMethodDelivery:
		return nil
	}
	return ErrInvalidReturnMethod
}

func paymentStatus(total, paid decimal.Decimal) string {
	switch {
	case paid.GreaterThanOrEqual(total) && total.IsPositive():
		return enum.PaymentStatusPaid
	case paid.IsPositive():
		return enum.PaymentStatusPartial
	default:
		return enum.PaymentStatusUnpaid
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
