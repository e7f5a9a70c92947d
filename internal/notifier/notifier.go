package notifier

import (
	"context"

	"go.uber.org/zap"
)

// Notifier delivers buyer/seller notifications and emails. Delivery is
// always best effort: settlement code logs failures and moves on, it never
// lets a notification outcome change a financial state.
type Notifier interface {
	Notify(ctx context.Context, userID, kind string, payload map[string]interface{}) error
	SendEmail(ctx context.Context, to, subject, body string) error
}

// LogNotifier is the default implementation: it records the intent in the
// service log. The real transport (email service, push) lives in a separate
// service and is swapped in through the interface.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, userID, kind string, payload map[string]interface{}) error {
	n.logger.Info("notification dispatched",
		zap.String("user_id", userID),
		zap.String("kind", kind),
		zap.Any("payload", payload))
	return nil
}

func (n *LogNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	n.logger.Info("email dispatched",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}
