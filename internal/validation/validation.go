// Package validation implements the syntax checks applied to every value a
// caller types into the USSD menu. None of the functions panic or return an
// error for malformed input; they report false or leave the value unchanged.
package validation

import (
	"strings"

	"github.com/wochuna/Sacco/internal/money"
)

// Field names a validated input.
type Field string

const (
	FieldPhone      Field = "phone number"
	FieldNationalID Field = "national ID"
	FieldPIN        Field = "PIN"
	FieldAmount     Field = "amount"
)

// Error reports which field failed validation. It is always user-correctable.
type Error struct {
	Field Field
}

func (e *Error) Error() string {
	return "invalid " + string(e.Field)
}

// PhoneNumber reports whether s is a local mobile number: ten digits starting with 07.
func PhoneNumber(s string) bool {
	return len(s) == 10 && strings.HasPrefix(s, "07") && digits(s)
}

// NationalID reports whether s is an 8 or 9 digit national ID.
func NationalID(s string) bool {
	return (len(s) == 8 || len(s) == 9) && digits(s)
}

// PIN reports whether s is exactly four digits.
func PIN(s string) bool {
	return len(s) == 4 && digits(s)
}

// NormalizePhoneNumber rewrites a leading +254 or 254 country code to the
// local 0 prefix. Other input is returned unchanged, so the function is
// idempotent.
func NormalizePhoneNumber(s string) string {
	switch {
	case strings.HasPrefix(s, "+254"):
		return "0" + s[4:]
	case strings.HasPrefix(s, "254"):
		return "0" + s[3:]
	default:
		return s
	}
}

// InternationalPhoneNumber converts a local 07... number into +2547... form
// for outbound gateways.
func InternationalPhoneNumber(s string) string {
	s = NormalizePhoneNumber(s)
	if strings.HasPrefix(s, "0") {
		return "+254" + s[1:]
	}
	return s
}

// Amount parses a user-entered amount.
func Amount(s string) (money.Amount, error) {
	a, err := money.Parse(s)
	if err != nil {
		return 0, &Error{Field: FieldAmount}
	}
	return a, nil
}

// Registration validates registration input in order: phone, national ID,
// PIN. The first failing field is reported.
func Registration(phone, nationalID, pin string) error {
	switch {
	case !PhoneNumber(phone):
		return &Error{Field: FieldPhone}
	case !NationalID(nationalID):
		return &Error{Field: FieldNationalID}
	case !PIN(pin):
		return &Error{Field: FieldPIN}
	}
	return nil
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
