// Package notification delivers member-facing messages after committed
// account events.
package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wochuna/Sacco/internal/logging"
)

// Kind names the account event a message reports.
type Kind string

const (
	KindRegistration Kind = "registration"
	KindWithdrawal   Kind = "withdrawal"
	KindDeposit      Kind = "deposit"
	KindPINChange    Kind = "pin_change"
)

// Message is addressed to a member phone number.
type Message struct {
	Kind        Kind
	Destination string
	Body        string
}

// Notifier sends a message. Callers treat delivery as best effort.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier records messages in the structured log instead of sending
// them. Used when no SMS gateway is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("member notification",
		slog.String("kind", string(message.Kind)),
		logging.Phone(message.Destination),
		slog.Int("length", len(message.Body)),
	)
	return nil
}

type fallback struct {
	primary   Notifier
	secondary Notifier
}

// WithFallback hands a message to secondary when primary fails. The primary
// error is still returned so callers can log the delivery failure.
func WithFallback(primary, secondary Notifier) Notifier {
	return fallback{primary: primary, secondary: secondary}
}

func (f fallback) Send(ctx context.Context, message Message) error {
	err := f.primary.Send(ctx, message)
	if err == nil {
		return nil
	}
	if serr := f.secondary.Send(ctx, message); serr != nil {
		return errors.Join(err, serr)
	}
	return err
}
