package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/enum"
)

var (
	ErrNoActiveProgram          = errors.New("no active loyalty program")
	ErrAlreadyEnrolled          = errors.New("customer already enrolled")
	ErrNotEnrolled              = errors.New("customer is not enrolled")
	ErrInvalidPoints            = errors.New("points must be positive")
	ErrInsufficientBalance      = errors.New("insufficient points balance")
	ErrBelowMinimumRedemption   = errors.New("points below program minimum redemption")
	ErrRedemptionValueUndefined = errors.New("program points ratio is not configured")
)

// LoyaltyStore defines the DB methods the loyalty service needs.
type LoyaltyStore interface {
	GetActiveLoyaltyProgram(ctx context.Context) (database.LoyaltyProgram, error)
	GetLoyaltyProgram(ctx context.Context, id uuid.UUID) (database.LoyaltyProgram, error)
	CreateLoyaltyAccount(ctx context.Context, arg database.CreateLoyaltyAccountParams) (database.LoyaltyAccount, error)
	GetLoyaltyAccountByCustomer(ctx context.Context, customerID uuid.UUID) (database.LoyaltyAccount, error)
	GetLoyaltyAccountForUpdate(ctx context.Context, customerID uuid.UUID) (database.LoyaltyAccount, error)
	UpdateLoyaltyAccount(ctx context.Context, arg database.UpdateLoyaltyAccountParams) (database.LoyaltyAccount, error)
	CreateLoyaltyTransaction(ctx context.Context, arg database.CreateLoyaltyTransactionParams) (database.LoyaltyTransaction, error)
	AppendTierHistory(ctx context.Context, arg database.AppendTierHistoryParams) (database.LoyaltyTierChange, error)
}

// NewLoyaltyStore creates a LoyaltyStore from a DBTX.
type NewLoyaltyStore func(db database.DBTX) LoyaltyStore

// RedeemResult is the outcome of a points redemption.
type RedeemResult struct {
	Account     database.LoyaltyAccount
	Transaction database.LoyaltyTransaction
	DiscountKES decimal.Decimal
}

// AwardResult is the outcome of a points award.
type AwardResult struct {
	Account     database.LoyaltyAccount
	Transaction database.LoyaltyTransaction
	TierChanged bool
}

// LoyaltyService manages accounts, the points ledger, and tiers.
type LoyaltyService struct {
	pool     TxBeginner
	store    LoyaltyStore
	newStore NewLoyaltyStore
}

// NewLoyaltyService creates a new LoyaltyService.
func NewLoyaltyService(pool TxBeginner, store LoyaltyStore, newStore NewLoyaltyStore) *LoyaltyService {
	return &LoyaltyService{pool: pool, store: store, newStore: newStore}
}

// Enroll creates an account in the active program for the customer.
func (s *LoyaltyService) Enroll(ctx context.Context, customerID uuid.UUID) (database.LoyaltyAccount, error) {
	program, err := s.store.GetActiveLoyaltyProgram(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.LoyaltyAccount{}, ErrNoActiveProgram
		}
		return database.LoyaltyAccount{}, fmt.Errorf("get active program: %w", err)
	}

	account, err := s.store.CreateLoyaltyAccount(ctx, database.CreateLoyaltyAccountParams{
		AccountNo:  businessID("LOY"),
		ProgramID:  program.ID,
		CustomerID: customerID,
		Tier:       tierFor(program.Tiers, 0),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return database.LoyaltyAccount{}, ErrAlreadyEnrolled
		}
		return database.LoyaltyAccount{}, fmt.Errorf("create loyalty account: %w", err)
	}
	return account, nil
}

// Get returns the customer's account.
func (s *LoyaltyService) Get(ctx context.Context, customerID uuid.UUID) (database.LoyaltyAccount, error) {
	account, err := s.store.GetLoyaltyAccountByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.LoyaltyAccount{}, ErrNotEnrolled
		}
		return database.LoyaltyAccount{}, fmt.Errorf("get loyalty account: %w", err)
	}
	return account, nil
}

// Award adds earned points to the account, writes the ledger entry, and
// recomputes the tier from lifetime earned points, all in one transaction.
func (s *LoyaltyService) Award(ctx context.Context, customerID uuid.UUID, points int64) (*AwardResult, error) {
	if points <= 0 {
		return nil, ErrInvalidPoints
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	account, err := store.GetLoyaltyAccountForUpdate(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("lock loyalty account: %w", err)
	}
	program, err := store.GetLoyaltyProgram(ctx, account.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("get program: %w", err)
	}

	balance := account.Balance + points
	totalEarned := account.TotalEarned + points

	// Tiers never downgrade: they are keyed on lifetime earned points.
	tier := tierFor(program.Tiers, totalEarned)
	tierChanged := tier != account.Tier

	updated, err := store.UpdateLoyaltyAccount(ctx, database.UpdateLoyaltyAccountParams{
		ID:            account.ID,
		Balance:       balance,
		TotalEarned:   totalEarned,
		TotalRedeemed: account.TotalRedeemed,
		Tier:          tier,
	})
	if err != nil {
		return nil, fmt.Errorf("update loyalty account: %w", err)
	}

	if tierChanged {
		if _, err := store.AppendTierHistory(ctx, database.AppendTierHistoryParams{
			AccountID: account.ID,
			Tier:      tier,
		}); err != nil {
			return nil, fmt.Errorf("append tier history: %w", err)
		}
	}

	expiresAt := pgtype.Timestamptz{}
	if program.ExpiryMonths > 0 {
		expiresAt = pgtype.Timestamptz{
			Time:  time.Now().AddDate(0, int(program.ExpiryMonths), 0),
			Valid: true,
		}
	}
	ledger, err := store.CreateLoyaltyTransaction(ctx, database.CreateLoyaltyTransactionParams{
		TxNo:         businessID("LTX"),
		AccountID:    account.ID,
		Type:         enum.LoyaltyTxEarned,
		Points:       points,
		BalanceAfter: balance,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create loyalty transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &AwardResult{Account: updated, Transaction: ledger, TierChanged: tierChanged}, nil
}

// Redeem subtracts points against the program rules and reports the KES
// discount earned. Redemptions never affect the tier.
func (s *LoyaltyService) Redeem(ctx context.Context, customerID uuid.UUID, points int64) (*RedeemResult, error) {
	if points <= 0 {
		return nil, ErrInvalidPoints
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	account, err := store.GetLoyaltyAccountForUpdate(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("lock loyalty account: %w", err)
	}
	program, err := store.GetLoyaltyProgram(ctx, account.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("get program: %w", err)
	}

	if points > account.Balance {
		return nil, ErrInsufficientBalance
	}
	if points < program.MinPointsToRedeem {
		return nil, fmt.Errorf("%w: minimum is %d", ErrBelowMinimumRedemption, program.MinPointsToRedeem)
	}
	if program.PointsToKESRatio <= 0 {
		return nil, ErrRedemptionValueUndefined
	}

	balance := account.Balance - points
	updated, err := store.UpdateLoyaltyAccount(ctx, database.UpdateLoyaltyAccountParams{
		ID:            account.ID,
		Balance:       balance,
		TotalEarned:   account.TotalEarned,
		TotalRedeemed: account.TotalRedeemed + points,
		Tier:          account.Tier,
	})
	if err != nil {
		return nil, fmt.Errorf("update loyalty account: %w", err)
	}

	ledger, err := store.CreateLoyaltyTransaction(ctx, database.CreateLoyaltyTransactionParams{
		TxNo:         businessID("LTX"),
		AccountID:    account.ID,
		Type:         enum.LoyaltyTxRedeemed,
		Points:       -points,
		BalanceAfter: balance,
	})
	if err != nil {
		return nil, fmt.Errorf("create loyalty transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	// Whole units of KES 10 per full ratio block of points.
	discount := decimal.NewFromInt(points / program.PointsToKESRatio).Mul(decimal.NewFromInt(10))
	return &RedeemResult{Account: updated, Transaction: ledger, DiscountKES: discount}, nil
}

// tierFor picks the highest tier whose threshold the lifetime earned points
// meet.
func tierFor(tiers []database.LoyaltyTier, totalEarned int64) string {
	best := ""
	bestMin := int64(-1)
	for _, t := range tiers {
		if totalEarned >= t.MinPoints && t.MinPoints > bestMin {
			best = t.Name
			bestMin = t.MinPoints
		}
	}
	return best
}
