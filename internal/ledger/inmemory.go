package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/wochuna/Sacco/internal/errs"
	"github.com/wochuna/Sacco/internal/identity"
)

// errSimulatedCrash is returned by a store armed with SimulateFailure.
var errSimulatedCrash = errors.New("simulated crash between debit and credit")

type inMemoryStore struct {
	mu           sync.Mutex
	users        identity.Repository
	transactions []Transaction
	failNext     bool
}

// NewInMemory creates a concurrency-safe store over an identity repository,
// useful for development and unit tests.
func NewInMemory(users identity.Repository) Store {
	return &inMemoryStore{users: users}
}

func (s *inMemoryStore) Post(ctx context.Context, tx Transaction) (Balances, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.FindByPhone(ctx, tx.Phone)
	if err != nil {
		return Balances{}, err
	}
	before := Balances{Wallet: user.WalletBalance, Savings: user.SavingsBalance}
	if tx.Source.Internal() && before.Of(tx.Source) < tx.Amount {
		return before, errs.ErrInsufficientFunds
	}

	// Debit first, then credit, so an injected failure exercises rollback of
	// a half-applied posting.
	debited := before.apply(Transaction{Source: tx.Source, Amount: tx.Amount})
	if err := s.users.UpdateBalances(ctx, tx.Phone, debited.Wallet, debited.Savings); err != nil {
		return before, err
	}
	if s.failNext {
		s.failNext = false
		s.rollback(ctx, tx.Phone, before)
		return before, errSimulatedCrash
	}

	after := before.apply(tx)
	if err := s.users.UpdateBalances(ctx, tx.Phone, after.Wallet, after.Savings); err != nil {
		s.rollback(ctx, tx.Phone, before)
		return before, err
	}
	s.transactions = append(s.transactions, tx)
	return after, nil
}

func (s *inMemoryStore) rollback(ctx context.Context, phone string, before Balances) {
	_ = s.users.UpdateBalances(ctx, phone, before.Wallet, before.Savings)
}

func (s *inMemoryStore) Record(_ context.Context, tx Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return errSimulatedCrash
	}
	s.transactions = append(s.transactions, tx)
	return nil
}

func (s *inMemoryStore) Recent(_ context.Context, phone string, limit int) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].Phone == phone {
			out = append(out, s.transactions[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
