package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPhoneNumber(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"0712345678", true},
		{"0798765432", true},
		{"0112345678", false},
		{"071234567", false},
		{"07123456789", false},
		{"07123a5678", false},
		{"+254712345678", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, PhoneNumber(tt.input))
		})
	}
}

func TestNationalID(t *testing.T) {
	require.True(t, NationalID("12345678"))
	require.True(t, NationalID("123456789"))
	require.False(t, NationalID("1234567"))
	require.False(t, NationalID("1234567890"))
	require.False(t, NationalID("1234567a"))
}

func TestPIN(t *testing.T) {
	require.True(t, PIN("1234"))
	require.False(t, PIN("12a4"))
	require.False(t, PIN("123"))
	require.False(t, PIN("12345"))
	require.False(t, PIN(""))
}

func TestNormalizePhoneNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"+254712345678", "0712345678"},
		{"254712345678", "0712345678"},
		{"0712345678", "0712345678"},
		{"", ""},
		{"12345", "12345"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizePhoneNumber(tt.input)
			require.Equal(t, tt.want, got)
			require.Equal(t, got, NormalizePhoneNumber(got), "normalization must be idempotent")
		})
	}
}

func TestNormalizeKeepsRemainingDigits(t *testing.T) {
	for _, rest := range []string{"712345678", "798000111", "700000000"} {
		for _, prefix := range []string{"+254", "254"} {
			got := NormalizePhoneNumber(prefix + rest)
			require.True(t, strings.HasPrefix(got, "0"))
			require.Equal(t, rest, got[1:])
			require.Equal(t, got, NormalizePhoneNumber(got))
		}
	}
}

func TestInternationalPhoneNumber(t *testing.T) {
	require.Equal(t, "+254712345678", InternationalPhoneNumber("0712345678"))
	require.Equal(t, "+254712345678", InternationalPhoneNumber("254712345678"))
}

func TestRegistrationReportsFirstFailingField(t *testing.T) {
	tests := []struct {
		name                 string
		phone, nationalID, p string
		want                 Field
	}{
		{name: "all bad", phone: "1", nationalID: "1", p: "1", want: FieldPhone},
		{name: "id and pin bad", phone: "0712345678", nationalID: "1", p: "1", want: FieldNationalID},
		{name: "pin bad", phone: "0712345678", nationalID: "12345678", p: "12", want: FieldPIN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Registration(tt.phone, tt.nationalID, tt.p)
			var verr *Error
			require.True(t, errors.As(err, &verr))
			require.Equal(t, tt.want, verr.Field)
		})
	}

	require.NoError(t, Registration("0712345678", "12345678", "1234"))
}

func TestAmount(t *testing.T) {
	a, err := Amount("250")
	require.NoError(t, err)
	require.EqualValues(t, 25000, a)

	_, err = Amount("abc")
	var verr *Error
	require.True(t, errors.As(err, &verr))
	require.Equal(t, FieldAmount, verr.Field)
}
