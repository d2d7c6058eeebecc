package ledger

import (
	"context"

	"github.com/wochuna/Sacco/internal/identity"
	"github.com/wochuna/Sacco/internal/money"
)

// SimulateFailure arms an in-memory store so its next write fails after the
// debit has been applied. It is a no-op for other stores.
func SimulateFailure(s Store) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.failNext = true
	}
}

// SeedBalance is a test helper that overwrites a member's balances in an
// identity repository.
func SeedBalance(ctx context.Context, users identity.Repository, phone string, wallet, savings money.Amount) error {
	return users.UpdateBalances(ctx, phone, wallet, savings)
}
