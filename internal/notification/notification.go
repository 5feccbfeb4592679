package notification

import (
	"context"
	"log/slog"
)

const (
	// KindWalletRequired tells the user a wallet capability must be installed.
	KindWalletRequired = "wallet_required"
	// KindTransferReceived informs a recipient that funds arrived.
	KindTransferReceived = "transfer_received"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to the user or to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}

// Func adapts a plain function into a Notifier, e.g. a CLI printing notices.
type Func func(ctx context.Context, message Message) error

// Send calls f.
func (f Func) Send(ctx context.Context, message Message) error {
	return f(ctx, message)
}
