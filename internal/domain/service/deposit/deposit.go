// Package deposit зачисляет внешние пополнения. Повтор одного и того же подтверждения
// платежа не зачисляет деньги второй раз.
package deposit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/repository"
	"tg_escrow/internal/domain/service/ledger"
	"tg_escrow/internal/domain/service/notify"
	"tg_escrow/internal/domain/value"
	"tg_escrow/internal/metrics"
	"tg_escrow/pkg/errcodes"
	"tg_escrow/pkg/logx"
)

type authorizer interface {
	Authorize(ctx context.Context, actorID int64, pin string, required value.AdminRole) (*entity.AdminGrant, error)
}

// Confirmation — подтверждение оплаты счёта от платёжного шлюза.
type Confirmation struct {
	ExternalRef string
	PayerID     int64
	Amount      value.Cents
}

type Result struct {
	Account *entity.Account
	// Applied == false означает повтор уже зачисленного подтверждения.
	Applied bool
}

type Service struct {
	txm      repository.TxManager
	ledger   *ledger.Ledger
	auth     authorizer
	notifier notify.Notifier
}

func NewService(txm repository.TxManager, l *ledger.Ledger, auth authorizer) *Service {
	return &Service{
		txm:      txm,
		ledger:   l,
		auth:     auth,
		notifier: notify.Nop{},
	}
}

func (s *Service) WithNotifier(n notify.Notifier) *Service {
	s.notifier = n
	return s
}

// ApplyConfirmation зачисляет сумму плательщику не более одного раза на внешнюю ссылку.
func (s *Service) ApplyConfirmation(ctx context.Context, c Confirmation) (Result, error) {
	if c.ExternalRef == "" {
		return Result{}, domain.NewError(errcodes.InvalidWebhookPayload, "external reference is empty")
	}

	var result Result

	err := s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		account, applied, err := s.ledger.CreditOnce(ctx, tx, c.PayerID, c.Amount, ledger.Posting{
			ActorID: c.PayerID,
			Action:  value.AuditActionWebhookDeposit,
			Details: ExternalDetails(c.ExternalRef),
		})
		if err != nil {
			return fmt.Errorf("ledger.CreditOnce: %w", err)
		}

		result = Result{Account: account, Applied: applied}

		return nil
	})
	if err != nil {
		metrics.WebhookDeposits.WithLabelValues("rejected").Inc()
		return Result{}, err
	}

	if !result.Applied {
		metrics.WebhookDeposits.WithLabelValues("duplicate").Inc()
		logger(ctx).Info("duplicate payment confirmation ignored", slog.String("external-ref", c.ExternalRef))

		return result, nil
	}

	metrics.WebhookDeposits.WithLabelValues("applied").Inc()
	logger(ctx).Info("payment confirmation applied",
		slog.String("external-ref", c.ExternalRef),
		slog.Int64("payer-id", c.PayerID),
		slog.String(logx.FieldAmount, c.Amount.String()),
	)

	s.notifier.Notify(ctx, entity.Notification{
		Kind:        entity.NotificationDeposit,
		RecipientID: c.PayerID,
		Amount:      c.Amount,
	})

	return result, nil
}

type ManualCommand struct {
	AccountID int64
	Amount    value.Cents
	AdminID   int64
	Pin       string
	Note      string
}

// Manual — ручное пополнение администратором (super_admin).
func (s *Service) Manual(ctx context.Context, cmd ManualCommand) (*entity.Account, error) {
	if _, err := s.auth.Authorize(ctx, cmd.AdminID, cmd.Pin, value.AdminRoleSuperAdmin); err != nil {
		return nil, fmt.Errorf("auth.Authorize: %w", err)
	}

	var account *entity.Account

	err := s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error

		account, err = s.ledger.Credit(ctx, tx, cmd.AccountID, cmd.Amount, ledger.Posting{
			ActorID: cmd.AdminID,
			Action:  value.AuditActionDeposit,
			Details: strings.TrimSpace(fmt.Sprintf("account=%d %s", cmd.AccountID, cmd.Note)),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ledger.Credit: %w", err)
	}

	s.notifier.Notify(ctx, entity.Notification{
		Kind:        entity.NotificationDeposit,
		RecipientID: cmd.AccountID,
		Amount:      cmd.Amount,
	})

	return account, nil
}

// ExternalDetails — details записи аудита, по которым ищется повтор подтверждения.
func ExternalDetails(externalRef string) string {
	return "invoice:" + externalRef
}
