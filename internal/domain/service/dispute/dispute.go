// Package dispute — арбитраж: администратор завершает спорную сделку в пользу одной из сторон.
package dispute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

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

type ResolveCommand struct {
	DealID  int64
	Winner  string
	AdminID int64
	Pin     string
}

type Resolution struct {
	Deal   *entity.Deal
	Winner value.Winner
	Amount value.Cents
	Fee    value.Cents
	Net    value.Cents
}

type Resolver struct {
	txm             repository.TxManager
	ledger          *ledger.Ledger
	auth            authorizer
	notifier        notify.Notifier
	feeRate         decimal.Decimal
	escrowAccountID int64
}

func NewResolver(
	txm repository.TxManager,
	l *ledger.Ledger,
	auth authorizer,
	feeRate decimal.Decimal,
	escrowAccountID int64,
) *Resolver {
	return &Resolver{
		txm:             txm,
		ledger:          l,
		auth:            auth,
		notifier:        notify.Nop{},
		feeRate:         feeRate,
		escrowAccountID: escrowAccountID,
	}
}

func (r *Resolver) WithNotifier(n notify.Notifier) *Resolver {
	r.notifier = n
	return r
}

// Resolve переводит удержанную сумму победителю одной проводкой.
// Продавец получает сумму за вычетом комиссии (completed), покупатель — полный возврат без комиссии (canceled).
func (r *Resolver) Resolve(ctx context.Context, cmd ResolveCommand) (Resolution, error) {
	if _, err := r.auth.Authorize(ctx, cmd.AdminID, cmd.Pin, value.AdminRoleDisputeAgent); err != nil {
		return Resolution{}, fmt.Errorf("auth.Authorize: %w", err)
	}

	winner, err := value.ParseWinner(cmd.Winner)
	if err != nil {
		return Resolution{}, domain.WrapError(err, errcodes.InvalidWinner, "invalid winner")
	}

	var resolution Resolution

	err = r.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		deal, err := tx.Deals().GetForUpdate(ctx, cmd.DealID)
		if err != nil {
			return fmt.Errorf("deals.GetForUpdate: %w", err)
		}

		if deal.Status != value.DealStatusDispute {
			return domain.NewError(errcodes.NotDispute, fmt.Sprintf("deal %d is %s", deal.ID, deal.Status))
		}

		if deal.BuyerID == nil {
			return domain.WrapError(errors.New("disputed deal without buyer"), errcodes.InternalServerError, "corrupted deal")
		}

		to, feeRate, action, status := deal.SellerID, r.feeRate, value.AuditActionDisputeResolution, value.DealStatusCompleted
		if winner == value.WinnerBuyer {
			to, feeRate, action, status = *deal.BuyerID, decimal.Zero, value.AuditActionRefund, value.DealStatusCanceled
		}

		transfer, err := r.ledger.Transfer(ctx, tx, r.escrowAccountID, to, deal.Amount, feeRate, ledger.Posting{
			ActorID: cmd.AdminID,
			Action:  action,
			Details: fmt.Sprintf("deal=%d winner=%s", deal.ID, winner),
		})
		if err != nil {
			return fmt.Errorf("ledger.Transfer: %w", err)
		}

		if !deal.Status.CanTransitionTo(status) {
			return domain.NewError(errcodes.WrongStatus, fmt.Sprintf("deal %d is %s", deal.ID, deal.Status))
		}

		deal.Status = status

		if err = tx.Deals().Update(ctx, deal); err != nil {
			return fmt.Errorf("deals.Update: %w", err)
		}

		resolution = Resolution{
			Deal:   deal,
			Winner: winner,
			Amount: transfer.Amount,
			Fee:    transfer.Fee,
			Net:    transfer.Net,
		}

		return nil
	})
	if err != nil {
		return Resolution{}, err
	}

	metrics.DealTransitions.WithLabelValues(resolution.Deal.Status.String()).Inc()
	logger(ctx).Info("dispute resolved",
		slog.Int64(logx.FieldDealID, resolution.Deal.ID),
		slog.Int64("admin-id", cmd.AdminID),
		slog.String("winner", winner.String()),
		slog.String("net", resolution.Net.String()),
	)

	for _, recipient := range []int64{resolution.Deal.SellerID, resolution.Deal.Buyer()} {
		r.notifier.Notify(ctx, entity.Notification{
			Kind:        entity.NotificationDisputeResolved,
			RecipientID: recipient,
			DealID:      resolution.Deal.ID,
			Amount:      resolution.Net,
			Fee:         resolution.Fee,
			Winner:      winner,
		})
	}

	return resolution, nil
}

type EvidenceQuery struct {
	DealID  int64
	AdminID int64
	Pin     string
}

// Evidence возвращает переписку сторон по сделке для арбитра.
func (r *Resolver) Evidence(ctx context.Context, q EvidenceQuery) ([]entity.DealMessage, error) {
	if _, err := r.auth.Authorize(ctx, q.AdminID, q.Pin, value.AdminRoleDisputeAgent); err != nil {
		return nil, fmt.Errorf("auth.Authorize: %w", err)
	}

	var messages []entity.DealMessage

	err := r.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Deals().Get(ctx, q.DealID); err != nil {
			return fmt.Errorf("deals.Get: %w", err)
		}

		var err error
		messages, err = tx.DealMessages().ListByDeal(ctx, q.DealID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return messages, nil
}
