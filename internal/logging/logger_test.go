package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMask(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "phone", value: "0712345678", want: "0712xxxx78"},
		{name: "national id", value: "12345678", want: "1234xx78"},
		{name: "short", value: "1234", want: "****"},
		{name: "boundary", value: "123456", want: "******"},
		{name: "empty", value: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Mask(tt.value))
		})
	}
}
