// Package errs holds the domain error taxonomy shared by the identity,
// ledger and USSD layers.
package errs

import "errors"

var (
	ErrDuplicateUser      = errors.New("user with this phone number or national id already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidDestination = errors.New("invalid destination")
	ErrInvalidAmount      = errors.New("invalid amount")

	// ErrPersistence marks a storage commit failure. The mutation it guarded
	// has been rolled back.
	ErrPersistence = errors.New("persistence failure")

	// ErrWithdrawalFailed reports a withdrawal whose ledger mutation could not
	// be committed; balances are unchanged.
	ErrWithdrawalFailed = errors.New("withdrawal failed")
)
