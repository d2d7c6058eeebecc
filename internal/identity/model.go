package identity

import (
	"time"

	"github.com/wochuna/Sacco/internal/money"
)

// User represents a registered SACCO member.
type User struct {
	ID             string
	Phone          string
	NationalID     string
	PINHash        []byte
	WalletBalance  money.Amount
	SavingsBalance money.Amount
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Exists reports whether u refers to a stored member rather than the zero value.
func (u User) Exists() bool {
	return u.Phone != "" && len(u.PINHash) > 0
}

// Registration carries the values collected by the registration menu.
type Registration struct {
	Phone      string
	NationalID string
	PIN        string
}
