package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Amount
		wantErr bool
	}{
		{name: "whole", input: "150", want: 15000},
		{name: "cents", input: "99.50", want: 9950},
		{name: "single decimal", input: "0.5", want: 50},
		{name: "trailing zeros", input: "10.000", want: 1000},
		{name: "max", input: "1000000", want: MaxAmount},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-5", wantErr: true},
		{name: "three decimals", input: "1.005", wantErr: true},
		{name: "letters", input: "12a", wantErr: true},
		{name: "exponent", input: "1e3", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "too large", input: "1000000.01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidMoney)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestAmountString(t *testing.T) {
	require.Equal(t, "1500.00", Amount(150000).String())
	require.Equal(t, "0.05", Amount(5).String())
	require.Equal(t, "KES 12.30", Amount(1230).KES())
}
