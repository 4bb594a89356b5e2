package notifier

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"reward-payments/internal/domain"
)

// Dispatcher notifies a user after a settlement commits. Best effort: callers
// log and drop errors, and no dispatcher failure may affect transaction or
// balance state.
type Dispatcher interface {
	Notify(ctx context.Context, userID uuid.UUID, kind domain.TransactionKind, amount decimal.Decimal) error
}

// LogDispatcher records settlements in the log. Outbound email delivery lives
// behind this boundary, outside this service.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Notify(ctx context.Context, userID uuid.UUID, kind domain.TransactionKind, amount decimal.Decimal) error {
	d.logger.Info("Settlement notification",
		"user_id", userID,
		"kind", kind,
		"amount", amount)
	return nil
}
