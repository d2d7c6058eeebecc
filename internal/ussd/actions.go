package ussd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/wochuna/Sacco/internal/errs"
	"github.com/wochuna/Sacco/internal/identity"
	"github.com/wochuna/Sacco/internal/ledger"
	"github.com/wochuna/Sacco/internal/logging"
	"github.com/wochuna/Sacco/internal/money"
	"github.com/wochuna/Sacco/internal/session"
	"github.com/wochuna/Sacco/internal/validation"
)

func loginStep(ctx context.Context, m *Machine, sess *session.Session, token string) Response {
	user, err := m.members.Authenticate(ctx, sess.Phone, token)
	if err != nil {
		return m.failure(sess, "login", err)
	}
	sess.Login(user.Phone)
	m.logger.Info("member logged in", logging.Phone(user.Phone), slog.String("session_id", sess.ID))
	return m.enter(sess, nodeLoggedIn)
}

func registerPhoneStep(_ context.Context, m *Machine, sess *session.Session, token string) Response {
	phone := validation.NormalizePhoneNumber(token)
	if !validation.PhoneNumber(phone) {
		return end(validationMessage(validation.FieldPhone))
	}
	sess.Set(keyRegPhone, phone)
	return m.enter(sess, nodeRegisterNationalID)
}

func registerNationalIDStep(_ context.Context, m *Machine, sess *session.Session, token string) Response {
	if !validation.NationalID(token) {
		return end(validationMessage(validation.FieldNationalID))
	}
	sess.Set(keyRegNationalID, token)
	return m.enter(sess, nodeRegisterPIN)
}

func registerStep(ctx context.Context, m *Machine, sess *session.Session, token string) Response {
	_, err := m.members.Register(ctx, identity.Registration{
		Phone:      sess.Get(keyRegPhone),
		NationalID: sess.Get(keyRegNationalID),
		PIN:        token,
	})
	if err != nil {
		return m.failure(sess, "register", err)
	}
	return end("User registered successfully!")
}

// phoneStep stores a validated phone number under key and moves to next.
func phoneStep(key, next string) step {
	return func(_ context.Context, m *Machine, sess *session.Session, token string) Response {
		phone := validation.NormalizePhoneNumber(token)
		if !validation.PhoneNumber(phone) {
			return end(validationMessage(validation.FieldPhone))
		}
		sess.Set(key, phone)
		return m.enter(sess, next)
	}
}

// amountStep stores a validated amount in minor units and moves to next.
func amountStep(next string) step {
	return func(_ context.Context, m *Machine, sess *session.Session, token string) Response {
		amount, err := validation.Amount(token)
		if err != nil {
			return end(msgInvalidAmount)
		}
		sess.Set(keyAmount, strconv.FormatInt(int64(amount), 10))
		return m.enter(sess, next)
	}
}

func withdrawStep(ctx context.Context, m *Machine, sess *session.Session, token string) Response {
	amount, err := scratchAmount(sess)
	if err != nil {
		return end(msgInvalidAmount)
	}
	req := ledger.WithdrawRequest{
		Phone:       sess.UserPhone,
		Amount:      amount,
		PIN:         token,
		Source:      ledger.Account(sess.Get(keySource)),
		Destination: ledger.Account(sess.Get(keyDestination)),
		Provider:    sess.Get(keyProvider),
		DestPhone:   sess.Get(keyCounterparty),
	}
	if _, err := m.ledger.Withdraw(ctx, req); err != nil {
		return m.failure(sess, "withdraw", err)
	}

	dest := ledger.Label(req.Destination)
	if req.Destination == ledger.AccountMobileMoney {
		dest = req.Provider + " " + req.DestPhone
	}
	return end(fmt.Sprintf("You have successfully withdrawn %s from your %s to %s.", amount.KES(), ledger.Label(req.Source), dest))
}

func depositStep(ctx context.Context, m *Machine, sess *session.Session, token string) Response {
	amount, err := validation.Amount(token)
	if err != nil {
		return end(msgInvalidAmount)
	}
	tx, err := m.ledger.Deposit(ctx, ledger.DepositRequest{
		Phone:       sess.UserPhone,
		Amount:      amount,
		Source:      ledger.Account(sess.Get(keySource)),
		Destination: ledger.Account(sess.Get(keyDestination)),
		Provider:    sess.Get(keyProvider),
		SourcePhone: sess.Get(keyCounterparty),
	})
	if err != nil {
		return m.failure(sess, "deposit", err)
	}
	return end(fmt.Sprintf("You have successfully deposited %s to %s.", tx.Amount.KES(), ledger.Label(tx.Destination)))
}

func currentPINStep(ctx context.Context, m *Machine, sess *session.Session, token string) Response {
	if _, err := m.members.Authenticate(ctx, sess.UserPhone, token); err != nil {
		if errors.Is(err, errs.ErrInvalidCredential) {
			return end("Invalid current PIN.")
		}
		return m.failure(sess, "verify current pin", err)
	}
	return m.enter(sess, nodePINNew)
}

// newPINStep keeps only a hash of the new PIN between prompts.
func newPINStep(_ context.Context, m *Machine, sess *session.Session, token string) Response {
	if !validation.PIN(token) {
		return end(validationMessage(validation.FieldPIN))
	}
	hash, err := m.hasher.Hash(token)
	if err != nil {
		return m.failure(sess, "hash new pin", err)
	}
	sess.Set(keyNewPINHash, string(hash))
	return m.enter(sess, nodePINConfirm)
}

func confirmPINStep(ctx context.Context, m *Machine, sess *session.Session, token string) Response {
	if m.hasher.Compare([]byte(sess.Get(keyNewPINHash)), token) != nil {
		return end("PINs do not match. Try again.")
	}
	user, err := m.members.FindByPhone(ctx, sess.UserPhone)
	if err != nil {
		return m.failure(sess, "change pin", err)
	}
	if err := m.members.ChangePIN(ctx, user, token); err != nil {
		return m.failure(sess, "change pin", err)
	}
	return end("PIN changed successfully!")
}

func accountDetailsStep(ctx context.Context, m *Machine, sess *session.Session, token string) Response {
	user, err := m.members.Authenticate(ctx, sess.UserPhone, token)
	if err != nil {
		return m.failure(sess, "account details", err)
	}
	return end(fmt.Sprintf("Account Details:\nPhone: %s\nNational ID: %s\nSacco Wallet: %s\nSavings: %s",
		logging.Mask(user.Phone),
		logging.Mask(user.NationalID),
		user.WalletBalance.KES(),
		user.SavingsBalance.KES(),
	))
}

func statementStep(ctx context.Context, m *Machine, sess *session.Session, token string) Response {
	if _, err := m.members.Authenticate(ctx, sess.UserPhone, token); err != nil {
		return m.failure(sess, "statement", err)
	}
	txs, err := m.ledger.RecentTransactions(ctx, sess.UserPhone, ledger.DefaultStatementSize)
	if err != nil {
		return m.failure(sess, "statement", err)
	}
	if len(txs) == 0 {
		return end("No recent transactions found.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Last %d Transactions:", len(txs))
	for _, tx := range txs {
		fmt.Fprintf(&b, "\n%s %s %s", tx.CreatedAt.Format("02/01/06"), kindLabel(tx.Kind), tx.Amount.KES())
	}
	return end(b.String())
}

func kindLabel(k ledger.Kind) string {
	switch k {
	case ledger.KindDeposit:
		return "Deposit"
	case ledger.KindWithdrawal:
		return "Withdrawal"
	case ledger.KindTransfer:
		return "Transfer"
	default:
		return string(k)
	}
}

func scratchAmount(sess *session.Session) (money.Amount, error) {
	v, err := strconv.ParseInt(sess.Get(keyAmount), 10, 64)
	if err != nil || v <= 0 {
		return 0, errs.ErrInvalidAmount
	}
	return money.Amount(v), nil
}

func validationMessage(field validation.Field) string {
	switch field {
	case validation.FieldPhone:
		return "Invalid phone number."
	case validation.FieldNationalID:
		return "Invalid national ID."
	case validation.FieldPIN:
		return "Invalid PIN. PIN must be 4 digits."
	case validation.FieldAmount:
		return msgInvalidAmount
	default:
		return "Invalid input."
	}
}

// failure maps a domain error to its member-facing END message. Internal
// error text is logged, never rendered.
func (m *Machine) failure(sess *session.Session, op string, err error) Response {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return end(validationMessage(verr.Field))
	case errors.Is(err, errs.ErrDuplicateUser):
		return end("User with this phone number or national ID already exists.")
	case errors.Is(err, errs.ErrInvalidCredential):
		return end(msgInvalidPIN)
	case errors.Is(err, errs.ErrInsufficientFunds):
		return end("Insufficient funds.")
	case errors.Is(err, errs.ErrInvalidDestination):
		return end("Invalid transaction details. Please try again.")
	case errors.Is(err, errs.ErrInvalidAmount):
		return end(msgInvalidAmount)
	case errors.Is(err, errs.ErrUserNotFound):
		return end("Account not found. Please register first.")
	}

	m.logger.Error("ussd operation failed",
		slog.String("operation", op),
		slog.String("session_id", sess.ID),
		logging.Phone(sess.Phone),
		slog.Any("error", err),
	)
	return end(msgTryAgainLater)
}
