package ledger

import (
	"context"
	"time"

	"github.com/wochuna/Sacco/internal/money"
)

// Account names one side of a posting.
type Account string

const (
	// AccountMobileMoney is the external mobile money wallet. Funds sent there
	// leave the system and are never credited to a member balance.
	AccountMobileMoney Account = "mobile_money"
	// AccountSaccoWallet is the member's primary SACCO balance.
	AccountSaccoWallet Account = "sacco_wallet"
	// AccountSavings is the member's savings sub-account.
	AccountSavings Account = "savings"
)

// Internal reports whether the account carries a member balance.
func (a Account) Internal() bool {
	return a == AccountSaccoWallet || a == AccountSavings
}

// Valid reports whether a is one of the known accounts.
func (a Account) Valid() bool {
	return a.Internal() || a == AccountMobileMoney
}

// Kind classifies a transaction.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindTransfer   Kind = "transfer"
)

// Transaction is an immutable ledger record, written only after the balance
// mutation it describes has committed.
type Transaction struct {
	ID                string
	Phone             string
	Amount            money.Amount
	Kind              Kind
	Source            Account
	Destination       Account
	Provider          string
	CounterpartyPhone string
	CreatedAt         time.Time
}

// Balances is a snapshot of a member's two internal accounts.
type Balances struct {
	Wallet  money.Amount
	Savings money.Amount
}

// Of returns the balance of account, zero for external accounts.
func (b Balances) Of(account Account) money.Amount {
	switch account {
	case AccountSaccoWallet:
		return b.Wallet
	case AccountSavings:
		return b.Savings
	default:
		return 0
	}
}

// apply debits the internal source and credits the internal destination.
func (b Balances) apply(tx Transaction) Balances {
	switch tx.Source {
	case AccountSaccoWallet:
		b.Wallet -= tx.Amount
	case AccountSavings:
		b.Savings -= tx.Amount
	}
	switch tx.Destination {
	case AccountSaccoWallet:
		b.Wallet += tx.Amount
	case AccountSavings:
		b.Savings += tx.Amount
	}
	return b
}

// Store persists balance postings and the transaction history.
type Store interface {
	// Post atomically debits tx.Source, credits tx.Destination when it is
	// internal and appends tx. Either every effect commits or none does.
	Post(ctx context.Context, tx Transaction) (Balances, error)
	// Record appends tx without touching balances.
	Record(ctx context.Context, tx Transaction) error
	// Recent returns up to limit transactions for phone, most recent first.
	Recent(ctx context.Context, phone string, limit int) ([]Transaction, error)
}
