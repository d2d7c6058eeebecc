package identity

import (
	"context"
	"sync"
	"time"

	"github.com/wochuna/Sacco/internal/errs"
	"github.com/wochuna/Sacco/internal/money"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryRepository builds an in-memory member store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Phone == user.Phone || existing.NationalID == user.NationalID {
			return errs.ErrDuplicateUser
		}
	}
	user.PINHash = append([]byte(nil), user.PINHash...)
	r.users[user.Phone] = user
	return nil
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[phone]
	if !ok {
		return User{}, errs.ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) UpdatePIN(_ context.Context, phone string, hash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[phone]
	if !ok {
		return errs.ErrUserNotFound
	}
	user.PINHash = append([]byte(nil), hash...)
	user.UpdatedAt = time.Now().UTC()
	r.users[phone] = user
	return nil
}

func (r *memoryRepository) UpdateBalances(_ context.Context, phone string, wallet, savings money.Amount) error {
	if wallet < 0 || savings < 0 {
		return errs.ErrInsufficientFunds
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[phone]
	if !ok {
		return errs.ErrUserNotFound
	}
	user.WalletBalance = wallet
	user.SavingsBalance = savings
	user.UpdatedAt = time.Now().UTC()
	r.users[phone] = user
	return nil
}

// Count reports the number of stored members when repo is the in-memory
// implementation, and -1 otherwise.
func Count(repo Repository) int {
	mem, ok := repo.(*memoryRepository)
	if !ok {
		return -1
	}
	mem.mu.RLock()
	defer mem.mu.RUnlock()
	return len(mem.users)
}
