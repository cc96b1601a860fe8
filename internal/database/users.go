package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, branch_id, name, email, password_hash, role, biometric_id, active, created_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.BranchID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.BiometricID, &u.Active, &u.CreatedAt)
	return u, err
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND active = true`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const getUserByBiometricID = `SELECT ` + userColumns + ` FROM users WHERE biometric_id = $1 AND active = true`

func (q *Queries) GetUserByBiometricID(ctx context.Context, biometricID string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByBiometricID, biometricID))
}

type CreateUserParams struct {
	BranchID     uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	BiometricID  pgtype.Text
}

const createUser = `
INSERT INTO users (branch_id, name, email, password_hash, role, biometric_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.BranchID, arg.Name, arg.Email, arg.PasswordHash, arg.Role, arg.BiometricID)
	return scanUser(row)
}

const getBranchByCode = `SELECT id, code, name, active, created_at FROM branches WHERE code = $1`

func (q *Queries) GetBranchByCode(ctx context.Context, code string) (Branch, error) {
	var b Branch
	err := q.db.QueryRow(ctx, getBranchByCode, code).Scan(&b.ID, &b.Code, &b.Name, &b.Active, &b.CreatedAt)
	return b, err
}

const getBranchByID = `SELECT id, code, name, active, created_at FROM branches WHERE id = $1`

func (q *Queries) GetBranchByID(ctx context.Context, id uuid.UUID) (Branch, error) {
	var b Branch
	err := q.db.QueryRow(ctx, getBranchByID, id).Scan(&b.ID, &b.Code, &b.Name, &b.Active, &b.CreatedAt)
	return b, err
}

type CreateBranchParams struct {
	Code string
	Name string
}

const createBranch = `
INSERT INTO branches (code, name) VALUES ($1, $2)
RETURNING id, code, name, active, created_at`

func (q *Queries) CreateBranch(ctx context.Context, arg CreateBranchParams) (Branch, error) {
	var b Branch
	err := q.db.QueryRow(ctx, createBranch, arg.Code, arg.Name).Scan(&b.ID, &b.Code, &b.Name, &b.Active, &b.CreatedAt)
	return b, err
}
