package notifier

import (
	"context"
	"log/slog"

	"tg_escrow/internal/domain/entity"
	"tg_escrow/pkg/logx"
)

// LogSender пишет уведомления в лог. Используется, когда BOT_TOKEN не задан.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, n entity.Notification) error {
	logger(ctx).Info("notification",
		slog.String("kind", string(n.Kind)),
		slog.Int64("recipient", n.RecipientID),
		slog.Int64(logx.FieldDealID, n.DealID),
		slog.String("text", Render(n)),
	)

	return nil
}
