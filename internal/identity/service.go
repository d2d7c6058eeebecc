package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wochuna/Sacco/internal/errs"
	"github.com/wochuna/Sacco/internal/logging"
	"github.com/wochuna/Sacco/internal/notification"
	"github.com/wochuna/Sacco/internal/validation"
)

// Service manages the member lifecycle: lookup, registration and PIN
// credentials.
type Service struct {
	repo     Repository
	hasher   Hasher
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService creates a new identity service. A nil hasher selects bcrypt at
// the default cost; a nil logger discards output.
func NewService(repo Repository, hasher Hasher, notifier notification.Notifier, logger *slog.Logger) *Service {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{repo: repo, hasher: hasher, notifier: notifier, logger: logger}
}

// FindByPhone returns the member registered under phone, or errs.ErrUserNotFound.
func (s *Service) FindByPhone(ctx context.Context, phone string) (User, error) {
	return s.repo.FindByPhone(ctx, validation.NormalizePhoneNumber(phone))
}

// Register validates the input (phone, national ID, PIN in that order),
// hashes the PIN and stores a member with zero balances.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	phone := validation.NormalizePhoneNumber(reg.Phone)
	if err := validation.Registration(phone, reg.NationalID, reg.PIN); err != nil {
		return User{}, err
	}

	hash, err := s.hasher.Hash(reg.PIN)
	if err != nil {
		return User{}, fmt.Errorf("hash pin: %w", err)
	}

	now := time.Now().UTC()
	user := User{
		ID:         uuid.New().String(),
		Phone:      phone,
		NationalID: reg.NationalID,
		PINHash:    hash,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, errs.ErrDuplicateUser) {
			s.logger.Warn("registration rejected: duplicate member",
				logging.Phone(phone),
				slog.String("national_id", logging.Mask(reg.NationalID)),
			)
			return User{}, errs.ErrDuplicateUser
		}
		s.logger.Error("registration failed", logging.Phone(phone), slog.Any("error", err))
		if errors.Is(err, errs.ErrPersistence) {
			return User{}, err
		}
		return User{}, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	s.logger.Info("member registered", logging.Phone(phone), slog.String("user_id", user.ID))
	s.notify(ctx, notification.Message{
		Kind:        notification.KindRegistration,
		Destination: phone,
		Body:        "Welcome to our SACCO. Your account has been registered.",
	})
	return user, nil
}

// VerifyPIN compares candidate against the stored hash. It returns false for
// a member that does not exist.
func (s *Service) VerifyPIN(user User, candidate string) bool {
	if !user.Exists() {
		return false
	}
	return s.hasher.Compare(user.PINHash, candidate) == nil
}

// Authenticate looks a member up by phone and checks the PIN. Unknown phones
// and wrong PINs both yield errs.ErrInvalidCredential.
func (s *Service) Authenticate(ctx context.Context, phone, pin string) (User, error) {
	user, err := s.FindByPhone(ctx, phone)
	if err != nil && !errors.Is(err, errs.ErrUserNotFound) {
		return User{}, err
	}
	if !s.VerifyPIN(user, pin) {
		s.logger.Info("pin verification failed", logging.Phone(validation.NormalizePhoneNumber(phone)))
		return User{}, errs.ErrInvalidCredential
	}
	return user, nil
}

// ChangePIN re-hashes and stores a new PIN. On a failed commit the previous
// PIN stays valid and errs.ErrPersistence is returned.
func (s *Service) ChangePIN(ctx context.Context, user User, newPIN string) error {
	if !user.Exists() {
		return errs.ErrUserNotFound
	}
	if !validation.PIN(newPIN) {
		return &validation.Error{Field: validation.FieldPIN}
	}
	hash, err := s.hasher.Hash(newPIN)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	if err := s.repo.UpdatePIN(ctx, user.Phone, hash); err != nil {
		s.logger.Error("pin change failed", logging.Phone(user.Phone), slog.Any("error", err))
		if errors.Is(err, errs.ErrUserNotFound) || errors.Is(err, errs.ErrPersistence) {
			return err
		}
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	s.logger.Info("pin changed", logging.Phone(user.Phone))
	s.notify(ctx, notification.Message{
		Kind:        notification.KindPINChange,
		Destination: user.Phone,
		Body:        "Your SACCO PIN was changed. If this was not you, contact support.",
	})
	return nil
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", string(msg.Kind)), slog.Any("error", err))
	}
}
