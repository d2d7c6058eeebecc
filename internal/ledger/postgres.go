package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wochuna/Sacco/internal/errs"
	"github.com/wochuna/Sacco/internal/money"
)

// PostgresStore persists postings in PostgreSQL. Balance rows are locked with
// SELECT ... FOR UPDATE for the duration of a posting.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Post debits and credits the member's balances and appends the transaction
// in one database transaction.
func (s *PostgresStore) Post(ctx context.Context, t Transaction) (Balances, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Balances{}, fmt.Errorf("%w: begin: %v", errs.ErrPersistence, err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var wallet, savings int64
	err = tx.QueryRow(ctx, `SELECT wallet_balance, savings_balance FROM users WHERE phone = $1 FOR UPDATE`, t.Phone).
		Scan(&wallet, &savings)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balances{}, errs.ErrUserNotFound
		}
		return Balances{}, fmt.Errorf("%w: lock balances: %v", errs.ErrPersistence, err)
	}

	before := Balances{Wallet: money.Amount(wallet), Savings: money.Amount(savings)}
	if t.Source.Internal() && before.Of(t.Source) < t.Amount {
		return before, errs.ErrInsufficientFunds
	}
	after := before.apply(t)

	if _, err := tx.Exec(ctx, `UPDATE users SET wallet_balance = $1, savings_balance = $2, updated_at = now() WHERE phone = $3`,
		int64(after.Wallet), int64(after.Savings), t.Phone); err != nil {
		return before, fmt.Errorf("%w: update balances: %v", errs.ErrPersistence, err)
	}
	if err := insertTransaction(ctx, tx, t); err != nil {
		return before, err
	}
	if err := tx.Commit(ctx); err != nil {
		return before, fmt.Errorf("%w: commit: %v", errs.ErrPersistence, err)
	}
	return after, nil
}

// Record appends a transaction without touching balances.
func (s *PostgresStore) Record(ctx context.Context, t Transaction) error {
	return insertTransaction(ctx, s.db, t)
}

func insertTransaction(ctx context.Context, db execer, t Transaction) error {
	id, err := uuid.Parse(t.ID)
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	_, err = db.Exec(ctx, `INSERT INTO transactions (id, phone, amount, kind, source, destination, provider, counterparty_phone, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9)`,
		id, t.Phone, int64(t.Amount), string(t.Kind), string(t.Source), string(t.Destination),
		t.Provider, t.CounterpartyPhone, t.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("%w: insert transaction: %v", errs.ErrPersistence, err)
	}
	return nil
}

// Recent returns the latest transactions for phone, most recent first.
func (s *PostgresStore) Recent(ctx context.Context, phone string, limit int) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `SELECT id, phone, amount, kind, source, destination,
            COALESCE(provider, ''), COALESCE(counterparty_phone, ''), created_at
        FROM transactions WHERE phone = $1
        ORDER BY created_at DESC
        LIMIT $2`, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query transactions: %v", errs.ErrPersistence, err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var (
			id                        uuid.UUID
			amount                    int64
			kind, source, destination string
			t                         Transaction
		)
		if err := rows.Scan(&id, &t.Phone, &amount, &kind, &source, &destination, &t.Provider, &t.CounterpartyPhone, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan transaction: %v", errs.ErrPersistence, err)
		}
		t.ID = id.String()
		t.Amount = money.Amount(amount)
		t.Kind = Kind(kind)
		t.Source = Account(source)
		t.Destination = Account(destination)
		t.CreatedAt = t.CreatedAt.UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate transactions: %v", errs.ErrPersistence, err)
	}
	return out, nil
}
