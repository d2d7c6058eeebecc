package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wochuna/Sacco/internal/errs"
	"github.com/wochuna/Sacco/internal/identity"
	"github.com/wochuna/Sacco/internal/logging"
	"github.com/wochuna/Sacco/internal/metrics"
	"github.com/wochuna/Sacco/internal/money"
	"github.com/wochuna/Sacco/internal/notification"
	"github.com/wochuna/Sacco/internal/validation"
)

// DefaultStatementSize is the number of transactions shown on a mini statement.
const DefaultStatementSize = 5

// Members is the slice of the identity service the ledger depends on.
type Members interface {
	FindByPhone(ctx context.Context, phone string) (identity.User, error)
	VerifyPIN(user identity.User, candidate string) bool
}

// WithdrawRequest moves Amount out of Source. Provider and DestPhone are
// required when Destination is mobile money.
type WithdrawRequest struct {
	Phone       string
	Amount      money.Amount
	PIN         string
	Source      Account
	Destination Account
	Provider    string
	DestPhone   string
}

// DepositRequest records money arriving from Source into Destination.
type DepositRequest struct {
	Phone       string
	Amount      money.Amount
	Source      Account
	Destination Account
	Provider    string
	SourcePhone string
}

// Service implements withdrawals, deposits and statements.
type Service struct {
	store    Store
	members  Members
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires a ledger service. notifier and m may be nil.
func NewService(store Store, members Members, notifier notification.Notifier, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		store:    store,
		members:  members,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Withdraw verifies the PIN, checks the source balance and destination
// details, then posts the movement atomically. Checks run in that order and
// a rejected request never mutates a balance.
func (s *Service) Withdraw(ctx context.Context, req WithdrawRequest) (Balances, error) {
	balances, err := s.withdraw(ctx, req)
	s.metrics.LedgerOperation("withdraw", resultLabel(err))
	return balances, err
}

func (s *Service) withdraw(ctx context.Context, req WithdrawRequest) (Balances, error) {
	if req.Amount <= 0 || req.Amount > money.MaxAmount {
		return Balances{}, errs.ErrInvalidAmount
	}

	phone := validation.NormalizePhoneNumber(req.Phone)
	user, err := s.members.FindByPhone(ctx, phone)
	if err != nil && !errors.Is(err, errs.ErrUserNotFound) {
		return Balances{}, err
	}
	if !s.members.VerifyPIN(user, req.PIN) {
		return Balances{}, errs.ErrInvalidCredential
	}

	current := Balances{Wallet: user.WalletBalance, Savings: user.SavingsBalance}
	if !req.Source.Internal() || current.Of(req.Source) < req.Amount {
		s.logger.Info("withdrawal rejected: insufficient funds",
			logging.Phone(phone),
			slog.String("source", string(req.Source)),
			slog.String("amount", req.Amount.String()),
		)
		return current, errs.ErrInsufficientFunds
	}

	destPhone := validation.NormalizePhoneNumber(req.DestPhone)
	if err := checkDestination(req.Source, req.Destination, req.Provider, destPhone); err != nil {
		return current, err
	}

	kind := KindTransfer
	if !req.Destination.Internal() {
		kind = KindWithdrawal
	}
	tx := Transaction{
		ID:                uuid.New().String(),
		Phone:             phone,
		Amount:            req.Amount,
		Kind:              kind,
		Source:            req.Source,
		Destination:       req.Destination,
		Provider:          req.Provider,
		CounterpartyPhone: destPhone,
		CreatedAt:         s.now(),
	}

	after, err := s.store.Post(ctx, tx)
	if err != nil {
		if errors.Is(err, errs.ErrInsufficientFunds) {
			return after, err
		}
		s.logger.Error("withdrawal failed", logging.Phone(phone), slog.String("transaction_id", tx.ID), slog.Any("error", err))
		return current, fmt.Errorf("%w: %v", errs.ErrWithdrawalFailed, err)
	}

	s.logger.Info("withdrawal committed",
		logging.Phone(phone),
		slog.String("transaction_id", tx.ID),
		slog.String("kind", string(tx.Kind)),
		slog.String("source", string(tx.Source)),
		slog.String("destination", string(tx.Destination)),
		slog.String("amount", tx.Amount.String()),
	)
	s.notify(ctx, notification.Message{
		Kind:        notification.KindWithdrawal,
		Destination: phone,
		Body:        fmt.Sprintf("You have moved %s from %s to %s.", tx.Amount.KES(), Label(tx.Source), Label(tx.Destination)),
	})
	return after, nil
}

func checkDestination(source, destination Account, provider, phone string) error {
	if !destination.Valid() || destination == source {
		return errs.ErrInvalidDestination
	}
	if destination.Internal() {
		return nil
	}
	if strings.TrimSpace(provider) == "" || !validation.PhoneNumber(phone) {
		return errs.ErrInvalidDestination
	}
	return nil
}

// Deposit records an incoming deposit. Balances are not credited; only the
// transaction row is written.
func (s *Service) Deposit(ctx context.Context, req DepositRequest) (Transaction, error) {
	tx, err := s.deposit(ctx, req)
	s.metrics.LedgerOperation("deposit", resultLabel(err))
	return tx, err
}

func (s *Service) deposit(ctx context.Context, req DepositRequest) (Transaction, error) {
	if req.Amount <= 0 || req.Amount > money.MaxAmount {
		return Transaction{}, errs.ErrInvalidAmount
	}
	if !req.Source.Valid() || !req.Destination.Internal() || req.Source == req.Destination {
		return Transaction{}, errs.ErrInvalidDestination
	}

	phone := validation.NormalizePhoneNumber(req.Phone)
	if _, err := s.members.FindByPhone(ctx, phone); err != nil {
		return Transaction{}, err
	}

	tx := Transaction{
		ID:                uuid.New().String(),
		Phone:             phone,
		Amount:            req.Amount,
		Kind:              KindDeposit,
		Source:            req.Source,
		Destination:       req.Destination,
		Provider:          req.Provider,
		CounterpartyPhone: validation.NormalizePhoneNumber(req.SourcePhone),
		CreatedAt:         s.now(),
	}
	if err := s.store.Record(ctx, tx); err != nil {
		s.logger.Error("deposit failed", logging.Phone(phone), slog.Any("error", err))
		if errors.Is(err, errs.ErrPersistence) {
			return Transaction{}, err
		}
		return Transaction{}, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	s.logger.Info("deposit recorded",
		logging.Phone(phone),
		slog.String("transaction_id", tx.ID),
		slog.String("destination", string(tx.Destination)),
		slog.String("amount", tx.Amount.String()),
	)
	s.notify(ctx, notification.Message{
		Kind:        notification.KindDeposit,
		Destination: phone,
		Body:        fmt.Sprintf("Your deposit of %s to %s has been received.", tx.Amount.KES(), Label(tx.Destination)),
	})
	return tx, nil
}

// RecentTransactions returns up to limit transactions, most recent first.
// A non-positive limit selects DefaultStatementSize.
func (s *Service) RecentTransactions(ctx context.Context, phone string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = DefaultStatementSize
	}
	return s.store.Recent(ctx, validation.NormalizePhoneNumber(phone), limit)
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", string(msg.Kind)), slog.Any("error", err))
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, errs.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, errs.ErrInvalidDestination):
		return "invalid_destination"
	case errors.Is(err, errs.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, errs.ErrUserNotFound):
		return "user_not_found"
	default:
		return "failed"
	}
}

// Label renders an account for member-facing text.
func Label(a Account) string {
	switch a {
	case AccountSaccoWallet:
		return "Sacco Wallet"
	case AccountSavings:
		return "Savings"
	case AccountMobileMoney:
		return "Mobile Money"
	default:
		return string(a)
	}
}
