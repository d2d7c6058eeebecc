package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wochuna/Sacco/internal/errs"
	"github.com/wochuna/Sacco/internal/money"
)

// Repository persists members.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByPhone(ctx context.Context, phone string) (User, error)
	UpdatePIN(ctx context.Context, phone string, hash []byte) error
	UpdateBalances(ctx context.Context, phone string, wallet, savings money.Amount) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new member. Unique violations on phone or national ID
// surface as errs.ErrDuplicateUser.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, phone, national_id, pin_hash, wallet_balance, savings_balance, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		userID, user.Phone, user.NationalID, user.PINHash, int64(user.WalletBalance), int64(user.SavingsBalance), user.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return errs.ErrDuplicateUser
		}
		return fmt.Errorf("%w: insert user: %v", errs.ErrPersistence, err)
	}
	return nil
}

// FindByPhone fetches a member by phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, phone, national_id, pin_hash, wallet_balance, savings_balance, created_at, updated_at
        FROM users WHERE phone = $1`, phone)
	var (
		id                 uuid.UUID
		wallet, savings    int64
		createdAt, updated time.Time
		user               User
	)
	if err := row.Scan(&id, &user.Phone, &user.NationalID, &user.PINHash, &wallet, &savings, &createdAt, &updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, errs.ErrUserNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	user.WalletBalance = money.Amount(wallet)
	user.SavingsBalance = money.Amount(savings)
	user.CreatedAt = createdAt.UTC()
	user.UpdatedAt = updated.UTC()
	return user, nil
}

// UpdatePIN replaces the stored PIN hash inside a transaction so a failed
// commit leaves the previous hash in place.
func (r *PostgresRepository) UpdatePIN(ctx context.Context, phone string, hash []byte) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin: %v", errs.ErrPersistence, err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	cmd, err := tx.Exec(ctx, `UPDATE users SET pin_hash = $1, updated_at = now() WHERE phone = $2`, hash, phone)
	if err != nil {
		return fmt.Errorf("%w: update pin: %v", errs.ErrPersistence, err)
	}
	if cmd.RowsAffected() == 0 {
		return errs.ErrUserNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", errs.ErrPersistence, err)
	}
	return nil
}

// UpdateBalances overwrites both balances of a member.
func (r *PostgresRepository) UpdateBalances(ctx context.Context, phone string, wallet, savings money.Amount) error {
	if wallet < 0 || savings < 0 {
		return errs.ErrInsufficientFunds
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET wallet_balance = $1, savings_balance = $2, updated_at = now() WHERE phone = $3`,
		int64(wallet), int64(savings), phone)
	if err != nil {
		return fmt.Errorf("%w: update balances: %v", errs.ErrPersistence, err)
	}
	if cmd.RowsAffected() == 0 {
		return errs.ErrUserNotFound
	}
	return nil
}
