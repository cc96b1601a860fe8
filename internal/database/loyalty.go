package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const loyaltyAccountColumns = `id, account_no, program_id, customer_id, balance,
	total_earned, total_redeemed, tier, created_at, updated_at`

func scanLoyaltyAccount(row interface{ Scan(dest ...any) error }) (LoyaltyAccount, error) {
	var a LoyaltyAccount
	err := row.Scan(
		&a.ID, &a.AccountNo, &a.ProgramID, &a.CustomerID, &a.Balance,
		&a.TotalEarned, &a.TotalRedeemed, &a.Tier, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

const getLoyaltyProgram = `
SELECT id, name, tiers, min_points_to_redeem, points_to_kes_ratio, expiry_months, active
FROM loyalty_programs WHERE id = $1`

func (q *Queries) GetLoyaltyProgram(ctx context.Context, id uuid.UUID) (LoyaltyProgram, error) {
	var p LoyaltyProgram
	err := q.db.QueryRow(ctx, getLoyaltyProgram, id).
		Scan(&p.ID, &p.Name, &p.Tiers, &p.MinPointsToRedeem, &p.PointsToKESRatio, &p.ExpiryMonths, &p.Active)
	return p, err
}

const getActiveLoyaltyProgram = `
SELECT id, name, tiers, min_points_to_redeem, points_to_kes_ratio, expiry_months, active
FROM loyalty_programs WHERE active = true ORDER BY name LIMIT 1`

func (q *Queries) GetActiveLoyaltyProgram(ctx context.Context) (LoyaltyProgram, error) {
	var p LoyaltyProgram
	err := q.db.QueryRow(ctx, getActiveLoyaltyProgram).
		Scan(&p.ID, &p.Name, &p.Tiers, &p.MinPointsToRedeem, &p.PointsToKESRatio, &p.ExpiryMonths, &p.Active)
	return p, err
}

type CreateLoyaltyAccountParams struct {
	AccountNo  string
	ProgramID  uuid.UUID
	CustomerID uuid.UUID
	Tier       string
}

const createLoyaltyAccount = `
INSERT INTO loyalty_accounts (account_no, program_id, customer_id, tier)
VALUES ($1, $2, $3, $4)
RETURNING ` + loyaltyAccountColumns

func (q *Queries) CreateLoyaltyAccount(ctx context.Context, arg CreateLoyaltyAccountParams) (LoyaltyAccount, error) {
	row := q.db.QueryRow(ctx, createLoyaltyAccount, arg.AccountNo, arg.ProgramID, arg.CustomerID, arg.Tier)
	return scanLoyaltyAccount(row)
}

const getLoyaltyAccountByCustomer = `
SELECT ` + loyaltyAccountColumns + ` FROM loyalty_accounts WHERE customer_id = $1`

func (q *Queries) GetLoyaltyAccountByCustomer(ctx context.Context, customerID uuid.UUID) (LoyaltyAccount, error) {
	return scanLoyaltyAccount(q.db.QueryRow(ctx, getLoyaltyAccountByCustomer, customerID))
}

// GetLoyaltyAccountForUpdate locks the account row so concurrent awards and
// redemptions serialize.
const getLoyaltyAccountForUpdate = `
SELECT ` + loyaltyAccountColumns + ` FROM loyalty_accounts WHERE customer_id = $1 FOR UPDATE`

func (q *Queries) GetLoyaltyAccountForUpdate(ctx context.Context, customerID uuid.UUID) (LoyaltyAccount, error) {
	return scanLoyaltyAccount(q.db.QueryRow(ctx, getLoyaltyAccountForUpdate, customerID))
}

type UpdateLoyaltyAccountParams struct {
	ID            uuid.UUID
	Balance       int64
	TotalEarned   int64
	TotalRedeemed int64
	Tier          string
}

const updateLoyaltyAccount = `
UPDATE loyalty_accounts SET
	balance = $2, total_earned = $3, total_redeemed = $4, tier = $5, updated_at = now()
WHERE id = $1
RETURNING ` + loyaltyAccountColumns

func (q *Queries) UpdateLoyaltyAccount(ctx context.Context, arg UpdateLoyaltyAccountParams) (LoyaltyAccount, error) {
	row := q.db.QueryRow(ctx, updateLoyaltyAccount,
		arg.ID, arg.Balance, arg.TotalEarned, arg.TotalRedeemed, arg.Tier,
	)
	return scanLoyaltyAccount(row)
}

type CreateLoyaltyTransactionParams struct {
	TxNo         string
	AccountID    uuid.UUID
	Type         string
	Points       int64
	BalanceAfter int64
	ExpiresAt    pgtype.Timestamptz
}

const createLoyaltyTransaction = `
INSERT INTO loyalty_transactions (tx_no, account_id, type, points, balance_after, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, tx_no, account_id, type, points, balance_after, expires_at, created_at`

func (q *Queries) CreateLoyaltyTransaction(ctx context.Context, arg CreateLoyaltyTransactionParams) (LoyaltyTransaction, error) {
	var t LoyaltyTransaction
	err := q.db.QueryRow(ctx, createLoyaltyTransaction,
		arg.TxNo, arg.AccountID, arg.Type, arg.Points, arg.BalanceAfter, arg.ExpiresAt,
	).Scan(&t.ID, &t.TxNo, &t.AccountID, &t.Type, &t.Points, &t.BalanceAfter, &t.ExpiresAt, &t.CreatedAt)
	return t, err
}

const listLoyaltyTransactions = `
SELECT id, tx_no, account_id, type, points, balance_after, expires_at, created_at
FROM loyalty_transactions WHERE account_id = $1 ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListLoyaltyTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int32) ([]LoyaltyTransaction, error) {
	rows, err := q.db.Query(ctx, listLoyaltyTransactions, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []LoyaltyTransaction
	for rows.Next() {
		var t LoyaltyTransaction
		if err := rows.Scan(&t.ID, &t.TxNo, &t.AccountID, &t.Type, &t.Points, &t.BalanceAfter, &t.ExpiresAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

type AppendTierHistoryParams struct {
	AccountID uuid.UUID
	Tier      string
}

const appendTierHistory = `
INSERT INTO loyalty_tier_history (account_id, tier)
VALUES ($1, $2)
RETURNING id, account_id, tier, created_at`

func (q *Queries) AppendTierHistory(ctx context.Context, arg AppendTierHistoryParams) (LoyaltyTierChange, error) {
	var c LoyaltyTierChange
	err := q.db.QueryRow(ctx, appendTierHistory, arg.AccountID, arg.Tier).
		Scan(&c.ID, &c.AccountID, &c.Tier, &c.CreatedAt)
	return c, err
}

const listTierHistory = `
SELECT id, account_id, tier, created_at
FROM loyalty_tier_history WHERE account_id = $1 ORDER BY created_at, id`

func (q *Queries) ListTierHistory(ctx context.Context, accountID uuid.UUID) ([]LoyaltyTierChange, error) {
	rows, err := q.db.Query(ctx, listTierHistory, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []LoyaltyTierChange
	for rows.Next() {
		var c LoyaltyTierChange
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Tier, &c.CreatedAt); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
