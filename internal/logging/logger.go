package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a JSON slog logger configured at the provided level. If the
// level string is invalid it defaults to info.
func New(level string) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

const (
	maskVisibleStart = 4
	maskVisibleEnd   = 2
)

// Mask hides the middle of a sensitive value such as a phone number or
// national ID, keeping the first four and last two characters. Values too
// short to keep anything meaningful hidden are replaced entirely.
func Mask(value string) string {
	if len(value) <= maskVisibleStart+maskVisibleEnd {
		return strings.Repeat("*", len(value))
	}
	hidden := len(value) - maskVisibleStart - maskVisibleEnd
	return value[:maskVisibleStart] + strings.Repeat("x", hidden) + value[len(value)-maskVisibleEnd:]
}

// Phone returns a masked phone attribute.
func Phone(phone string) slog.Attr {
	return slog.String("phone", Mask(phone))
}
