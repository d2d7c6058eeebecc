package identity

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/wochuna/Sacco/internal/errs"
	"github.com/wochuna/Sacco/internal/validation"
)

func newTestService(repo Repository) *Service {
	return NewService(repo, NewBcryptHasher(bcrypt.MinCost), nil, nil)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo)

	ctx := context.Background()
	user, err := svc.Register(ctx, Registration{Phone: "+254712345678", NationalID: "12345678", PIN: "1234"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if user.Phone != "0712345678" {
		t.Fatalf("expected normalized phone, got %s", user.Phone)
	}
	if user.WalletBalance != 0 || user.SavingsBalance != 0 {
		t.Fatalf("expected zero balances, got %d/%d", user.WalletBalance, user.SavingsBalance)
	}
	if string(user.PINHash) == "1234" {
		t.Fatalf("raw PIN stored")
	}

	authed, err := svc.Authenticate(ctx, "254712345678", "1234")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, authed.ID)
	}
}

func TestRegisterDuplicateLeavesOneUser(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, Registration{Phone: "0712345678", NationalID: "12345678", PIN: "1234"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, Registration{Phone: "0712345678", NationalID: "87654321", PIN: "4321"}); !errors.Is(err, errs.ErrDuplicateUser) {
		t.Fatalf("expected duplicate user, got %v", err)
	}
	if _, err := svc.Register(ctx, Registration{Phone: "0798765432", NationalID: "12345678", PIN: "4321"}); !errors.Is(err, errs.ErrDuplicateUser) {
		t.Fatalf("expected duplicate national id, got %v", err)
	}
	if n := Count(repo); n != 1 {
		t.Fatalf("expected exactly one user, got %d", n)
	}
}

func TestRegisterValidationOrder(t *testing.T) {
	svc := newTestService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.Register(ctx, Registration{Phone: "0712", NationalID: "1", PIN: "1"})
	var verr *validation.Error
	if !errors.As(err, &verr) || verr.Field != validation.FieldPhone {
		t.Fatalf("expected phone validation error, got %v", err)
	}

	_, err = svc.Register(ctx, Registration{Phone: "0712345678", NationalID: "12345678", PIN: "12a4"})
	if !errors.As(err, &verr) || verr.Field != validation.FieldPIN {
		t.Fatalf("expected pin validation error, got %v", err)
	}
}

func TestVerifyPIN(t *testing.T) {
	svc := newTestService(NewMemoryRepository())
	ctx := context.Background()
	user, err := svc.Register(ctx, Registration{Phone: "0712345678", NationalID: "12345678", PIN: "1234"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if !svc.VerifyPIN(user, "1234") {
		t.Fatalf("expected correct PIN to verify")
	}
	if svc.VerifyPIN(user, "9999") {
		t.Fatalf("expected wrong PIN to fail")
	}
	if svc.VerifyPIN(User{}, "1234") {
		t.Fatalf("expected absent user to fail")
	}
	if _, err := svc.Authenticate(ctx, "0799999999", "1234"); !errors.Is(err, errs.ErrInvalidCredential) {
		t.Fatalf("expected invalid credential for unknown phone, got %v", err)
	}
}

func TestChangePIN(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo)
	ctx := context.Background()
	user, _ := svc.Register(ctx, Registration{Phone: "0712345678", NationalID: "12345678", PIN: "1234"})

	if err := svc.ChangePIN(ctx, user, "5678"); err != nil {
		t.Fatalf("change pin: %v", err)
	}
	if _, err := svc.Authenticate(ctx, user.Phone, "5678"); err != nil {
		t.Fatalf("new pin rejected: %v", err)
	}
	if _, err := svc.Authenticate(ctx, user.Phone, "1234"); !errors.Is(err, errs.ErrInvalidCredential) {
		t.Fatalf("old pin still accepted")
	}
}

type failingPINRepo struct {
	Repository
}

func (failingPINRepo) UpdatePIN(context.Context, string, []byte) error {
	return errors.New("connection reset")
}

func TestChangePINPersistenceFailureKeepsOldPIN(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo)
	ctx := context.Background()
	user, _ := svc.Register(ctx, Registration{Phone: "0712345678", NationalID: "12345678", PIN: "1234"})

	failing := newTestService(failingPINRepo{Repository: repo})
	if err := failing.ChangePIN(ctx, user, "5678"); !errors.Is(err, errs.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, user.Phone, "1234"); err != nil {
		t.Fatalf("old pin should remain valid: %v", err)
	}
}
