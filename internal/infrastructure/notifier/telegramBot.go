package notifier

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/metrics"
	"tg_escrow/pkg/logx"
)

type messageSender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

type TelegramBot struct {
	bot         messageSender
	adminChatID int64
}

// NewTelegramBot создаёт бота поверх httpClient (nil — клиент telego по умолчанию).
func NewTelegramBot(token string, adminChatID int64, httpClient *http.Client) (*TelegramBot, error) {
	var opts []telego.BotOption
	if httpClient != nil {
		opts = append(opts, telego.WithHTTPClient(httpClient))
	}

	bot, err := telego.NewBot(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return NewTelegramBotWithSender(bot, adminChatID), nil
}

func NewTelegramBotWithSender(sender messageSender, adminChatID int64) *TelegramBot {
	return &TelegramBot{
		bot:         sender,
		adminChatID: adminChatID,
	}
}

// Run отправляет уведомления из канала, пока он не закрыт или не отменён ctx.
func (b *TelegramBot) Run(ctx context.Context, notifications <-chan entity.Notification) error {
	return Consume(ctx, b, notifications)
}

// Consume передаёт уведомления из канала в s. Ошибки отправки только логируются.
func Consume(ctx context.Context, s sender, notifications <-chan entity.Notification) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-notifications:
			if !ok {
				return nil
			}

			if err := s.Send(ctx, n); err != nil {
				logger(ctx).Error("failed to send notification",
					slog.String("kind", string(n.Kind)), logx.Error(err))
			}
		}
	}
}

func (b *TelegramBot) Send(ctx context.Context, n entity.Notification) error {
	chatID := n.RecipientID
	if chatID == 0 {
		chatID = b.adminChatID
	}

	msg := tu.Message(
		tu.ID(chatID),
		Render(n),
	).WithParseMode(telego.ModeHTML)

	if _, err := b.bot.SendMessage(ctx, msg); err != nil {
		metrics.NotificationsSent.WithLabelValues("error").Inc()
		return fmt.Errorf("send message: %w", err)
	}

	metrics.NotificationsSent.WithLabelValues("ok").Inc()

	return nil
}

func Render(n entity.Notification) string {
	switch n.Kind {
	case entity.NotificationDealPaid:
		return fmt.Sprintf(
			"💰 <b>Deal #%d paid</b>\n\n"+
				"<b>Amount:</b> %s held in escrow.\n"+
				"Deliver the goods and mark the deal as delivered.",
			n.DealID, n.Amount,
		)
	case entity.NotificationDealDelivered:
		return fmt.Sprintf(
			"📦 <b>Deal #%d delivered</b>\n\nCheck the goods and confirm receipt to release the funds.",
			n.DealID,
		)
	case entity.NotificationFundsReleased:
		return fmt.Sprintf(
			"✅ <b>Deal #%d completed</b>\n\n"+
				"<b>Credited:</b> %s\n"+
				"<b>Fee:</b> %s",
			n.DealID, n.Amount-n.Fee, n.Fee,
		)
	case entity.NotificationDisputeOpened:
		return fmt.Sprintf(
			"⚠️ <b>Dispute opened on deal #%d</b>\n\n<b>Amount:</b> %s",
			n.DealID, n.Amount,
		)
	case entity.NotificationDisputeResolved:
		return fmt.Sprintf(
			"⚖️ <b>Dispute on deal #%d resolved</b>\n\n"+
				"<b>Winner:</b> %s\n"+
				"<b>Paid out:</b> %s",
			n.DealID, n.Winner, n.Amount-n.Fee,
		)
	case entity.NotificationDeposit:
		return fmt.Sprintf("✅ <b>Deposit received</b>\n\n%s added to your balance.", n.Amount)
	case entity.NotificationDealMessage:
		return fmt.Sprintf("💬 <b>Deal #%d</b>\n\n%s", n.DealID, html.EscapeString(n.Text))
	default:
		return html.EscapeString(n.Text)
	}
}
