package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value in minor units (cents).
type Amount int64

// MaxAmount caps a single user-entered amount.
const MaxAmount Amount = 1_000_000_00

var (
	ErrInvalidMoney = errors.New("invalid money amount")

	hundred = decimal.NewFromInt(100)
)

// Parse converts a user-entered decimal string such as "150" or "99.50" into
// minor units. Only positive values with at most two decimal places up to
// MaxAmount are accepted.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidMoney
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, ErrInvalidMoney
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidMoney
	}
	if !d.IsPositive() {
		return 0, ErrInvalidMoney
	}
	if d.Exponent() < -2 && !d.Equal(d.Truncate(2)) {
		return 0, fmt.Errorf("%w: more than two decimal places", ErrInvalidMoney)
	}
	cents := d.Mul(hundred)
	if cents.GreaterThan(decimal.NewFromInt(int64(MaxAmount))) {
		return 0, fmt.Errorf("%w: too large", ErrInvalidMoney)
	}
	return Amount(cents.IntPart()), nil
}

// String renders the amount in major units, e.g. "1500.00".
func (a Amount) String() string {
	return decimal.New(int64(a), -2).StringFixed(2)
}

// KES renders the amount with the currency code, e.g. "KES 1500.00".
func (a Amount) KES() string {
	return "KES " + a.String()
}
