// Package deal — конечный автомат сделки. Только он меняет статус сделки.
package deal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/repository"
	"tg_escrow/internal/domain/service/audit"
	"tg_escrow/internal/domain/service/ledger"
	"tg_escrow/internal/domain/service/notify"
	"tg_escrow/internal/domain/value"
	"tg_escrow/internal/metrics"
	"tg_escrow/pkg/errcodes"
	"tg_escrow/pkg/logx"
)

// Действия для ограничителя частоты.
const (
	ActionCreate  = "deal_create"
	ActionPay     = "deal_pay"
	ActionConfirm = "deal_confirm"
	ActionDispute = "deal_dispute"
	ActionMessage = "deal_message"
)

type limiter interface {
	Allow(ctx context.Context, actorID int64, action string) error
}

type noLimit struct{}

func (noLimit) Allow(context.Context, int64, string) error { return nil }

type Config struct {
	FeeRate           decimal.Decimal
	EscrowAccountID   int64
	DescriptionMaxLen int
	MessageMaxLen     int
}

// Release — результат подтверждения получения.
type Release struct {
	Deal   *entity.Deal
	Amount value.Cents
	Fee    value.Cents
	Net    value.Cents
}

type Service struct {
	txm          repository.TxManager
	ledger       *ledger.Ledger
	chain        *audit.Chain
	limiter      limiter
	notifier     notify.Notifier
	cfg          Config
	readAttempts uint64
}

func NewService(txm repository.TxManager, l *ledger.Ledger, chain *audit.Chain, cfg Config) *Service {
	return &Service{
		txm:          txm,
		ledger:       l,
		chain:        chain,
		limiter:      noLimit{},
		notifier:     notify.Nop{},
		cfg:          cfg,
		readAttempts: 3, //nolint:mnd
	}
}

func (s *Service) WithLimiter(l limiter) *Service {
	s.limiter = l
	return s
}

func (s *Service) WithNotifier(n notify.Notifier) *Service {
	s.notifier = n
	return s
}

func (s *Service) WithReadAttempts(attempts uint64) *Service {
	s.readAttempts = attempts
	return s
}

// Create открывает сделку от имени продавца в статусе pending.
func (s *Service) Create(ctx context.Context, sellerID int64, amount value.Cents, description string) (*entity.Deal, error) {
	if amount <= 0 {
		return nil, domain.NewError(errcodes.InvalidAmount, "amount must be positive")
	}

	description = strings.TrimSpace(description)
	if description == "" || utf8.RuneCountInString(description) > s.cfg.DescriptionMaxLen {
		return nil, domain.NewError(errcodes.InvalidDescription,
			fmt.Sprintf("description must be 1..%d characters", s.cfg.DescriptionMaxLen))
	}

	if err := s.limiter.Allow(ctx, sellerID, ActionCreate); err != nil {
		return nil, err
	}

	deal := &entity.Deal{
		SellerID:    sellerID,
		Amount:      amount,
		Description: description,
		Status:      value.DealStatusPending,
	}

	err := s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		seller, err := tx.Accounts().Get(ctx, sellerID)
		if err != nil {
			return fmt.Errorf("accounts.Get: %w", err)
		}

		if seller.IsBanned {
			return domain.NewError(errcodes.AccountBanned, "seller account is banned")
		}

		return tx.Deals().Create(ctx, deal)
	})
	if err != nil {
		return nil, err
	}

	metrics.DealTransitions.WithLabelValues(deal.Status.String()).Inc()
	logger(ctx).Info("deal created",
		slog.Int64(logx.FieldDealID, deal.ID),
		slog.Int64("seller-id", sellerID),
		slog.String(logx.FieldAmount, amount.String()),
	)

	return deal, nil
}

// Pay блокирует сумму сделки: покупатель переводит её на эскроу-счёт.
func (s *Service) Pay(ctx context.Context, dealID, buyerID int64) (*entity.Deal, error) {
	if buyerID <= 0 || buyerID == s.cfg.EscrowAccountID {
		return nil, domain.NewError(errcodes.InvalidUserID, "invalid buyer id")
	}

	if err := s.limiter.Allow(ctx, buyerID, ActionPay); err != nil {
		return nil, err
	}

	var deal *entity.Deal

	err := s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error

		deal, err = tx.Deals().GetForUpdate(ctx, dealID)
		if err != nil {
			return fmt.Errorf("deals.GetForUpdate: %w", err)
		}

		if deal.Status != value.DealStatusPending {
			return domain.NewError(errcodes.DealNotPending, fmt.Sprintf("deal %d is %s", deal.ID, deal.Status))
		}

		if deal.IsSeller(buyerID) {
			return domain.NewError(errcodes.SelfTradeForbidden, "seller cannot pay own deal")
		}

		buyer, err := tx.Accounts().Get(ctx, buyerID)
		if err != nil {
			return fmt.Errorf("accounts.Get: %w", err)
		}

		if buyer.IsBanned {
			return domain.NewError(errcodes.AccountBanned, "buyer account is banned")
		}

		_, err = s.ledger.Transfer(ctx, tx, buyerID, s.cfg.EscrowAccountID, deal.Amount, decimal.Zero, ledger.Posting{
			ActorID: buyerID,
			Action:  value.AuditActionEscrowLock,
			Details: dealRef(deal.ID),
		})
		if err != nil {
			return fmt.Errorf("ledger.Transfer: %w", err)
		}

		deal.BuyerID = &buyerID

		return s.transition(ctx, tx, deal, value.DealStatusActive)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, entity.Notification{
		Kind:        entity.NotificationDealPaid,
		RecipientID: deal.SellerID,
		DealID:      deal.ID,
		Amount:      deal.Amount,
	})

	return deal, nil
}

// MarkDelivered — продавец сообщает, что товар передан.
func (s *Service) MarkDelivered(ctx context.Context, dealID, sellerID int64) (*entity.Deal, error) {
	var deal *entity.Deal

	err := s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error

		deal, err = tx.Deals().GetForUpdate(ctx, dealID)
		if err != nil {
			return fmt.Errorf("deals.GetForUpdate: %w", err)
		}

		if !deal.IsSeller(sellerID) {
			return notAuthorized(deal.ID)
		}

		if deal.Status != value.DealStatusActive {
			return wrongStatus(deal)
		}

		_, err = s.chain.Append(ctx, tx.AuditLog(), audit.Record{
			ActorID: sellerID,
			Action:  value.AuditActionDelivery,
			Details: dealRef(deal.ID),
		})
		if err != nil {
			return fmt.Errorf("chain.Append: %w", err)
		}

		return s.transition(ctx, tx, deal, value.DealStatusDelivered)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, entity.Notification{
		Kind:        entity.NotificationDealDelivered,
		RecipientID: deal.Buyer(),
		DealID:      deal.ID,
		Amount:      deal.Amount,
	})

	return deal, nil
}

// ConfirmReceipt — единственный путь, которым удержанные деньги попадают к продавцу (кроме арбитража).
func (s *Service) ConfirmReceipt(ctx context.Context, dealID, buyerID int64) (Release, error) {
	if err := s.limiter.Allow(ctx, buyerID, ActionConfirm); err != nil {
		return Release{}, err
	}

	var release Release

	err := s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		deal, err := tx.Deals().GetForUpdate(ctx, dealID)
		if err != nil {
			return fmt.Errorf("deals.GetForUpdate: %w", err)
		}

		if !deal.IsBuyer(buyerID) {
			return notAuthorized(deal.ID)
		}

		if deal.Status != value.DealStatusActive && deal.Status != value.DealStatusDelivered {
			return wrongStatus(deal)
		}

		transfer, err := s.ledger.Transfer(ctx, tx, s.cfg.EscrowAccountID, deal.SellerID, deal.Amount, s.cfg.FeeRate,
			ledger.Posting{
				ActorID: buyerID,
				Action:  value.AuditActionRelease,
				Details: dealRef(deal.ID),
			},
		)
		if err != nil {
			return fmt.Errorf("ledger.Transfer: %w", err)
		}

		if err = s.transition(ctx, tx, deal, value.DealStatusCompleted); err != nil {
			return err
		}

		release = Release{
			Deal:   deal,
			Amount: transfer.Amount,
			Fee:    transfer.Fee,
			Net:    transfer.Net,
		}

		return nil
	})
	if err != nil {
		return Release{}, err
	}

	s.notifier.Notify(ctx, entity.Notification{
		Kind:        entity.NotificationFundsReleased,
		RecipientID: release.Deal.SellerID,
		DealID:      release.Deal.ID,
		Amount:      release.Net,
		Fee:         release.Fee,
	})

	return release, nil
}

// OpenDispute замораживает сделку до решения арбитра.
func (s *Service) OpenDispute(ctx context.Context, dealID, actorID int64) (*entity.Deal, error) {
	if err := s.limiter.Allow(ctx, actorID, ActionDispute); err != nil {
		return nil, err
	}

	var deal *entity.Deal

	err := s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error

		deal, err = tx.Deals().GetForUpdate(ctx, dealID)
		if err != nil {
			return fmt.Errorf("deals.GetForUpdate: %w", err)
		}

		if !deal.IsParty(actorID) {
			return notAuthorized(deal.ID)
		}

		if deal.Status != value.DealStatusActive && deal.Status != value.DealStatusDelivered {
			return wrongStatus(deal)
		}

		return s.transition(ctx, tx, deal, value.DealStatusDispute)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx,
		entity.Notification{Kind: entity.NotificationDisputeOpened, DealID: deal.ID, Amount: deal.Amount},
		entity.Notification{
			Kind:        entity.NotificationDisputeOpened,
			RecipientID: deal.Counterparty(actorID),
			DealID:      deal.ID,
			Amount:      deal.Amount,
		},
	)

	return deal, nil
}

func (s *Service) Get(ctx context.Context, dealID int64) (*entity.Deal, error) {
	var deal *entity.Deal

	err := repository.Read(ctx, s.txm, s.readAttempts, func(ctx context.Context, tx repository.Tx) error {
		var err error
		deal, err = tx.Deals().Get(ctx, dealID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("deals.Get: %w", err)
	}

	return deal, nil
}

// ListActive возвращает незавершённые сделки, где счёт — продавец или покупатель.
func (s *Service) ListActive(ctx context.Context, accountID int64) ([]entity.Deal, error) {
	var deals []entity.Deal

	err := repository.Read(ctx, s.txm, s.readAttempts, func(ctx context.Context, tx repository.Tx) error {
		var err error
		deals, err = tx.Deals().ListActiveByAccount(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("deals.ListActiveByAccount: %w", err)
	}

	return deals, nil
}

// PostMessage сохраняет сообщение стороны сделки в журнал переписки и пересылает его второй стороне.
func (s *Service) PostMessage(ctx context.Context, dealID, senderID int64, text string) (*entity.DealMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > s.cfg.MessageMaxLen {
		return nil, domain.NewError(errcodes.InvalidDescription,
			fmt.Sprintf("message must be 1..%d characters", s.cfg.MessageMaxLen))
	}

	if err := s.limiter.Allow(ctx, senderID, ActionMessage); err != nil {
		return nil, err
	}

	var (
		deal *entity.Deal
		msg  *entity.DealMessage
	)

	err := s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error

		deal, err = tx.Deals().Get(ctx, dealID)
		if err != nil {
			return fmt.Errorf("deals.Get: %w", err)
		}

		if !deal.IsParty(senderID) {
			return notAuthorized(deal.ID)
		}

		if deal.Status == value.DealStatusPending {
			return wrongStatus(deal)
		}

		msg = &entity.DealMessage{DealID: deal.ID, SenderID: senderID, Text: text}

		return tx.DealMessages().Create(ctx, msg)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, entity.Notification{
		Kind:        entity.NotificationDealMessage,
		RecipientID: deal.Counterparty(senderID),
		DealID:      deal.ID,
		Text:        text,
	})

	return msg, nil
}

func (s *Service) transition(ctx context.Context, tx repository.Tx, deal *entity.Deal, to value.DealStatus) error {
	if !deal.Status.CanTransitionTo(to) {
		return wrongStatus(deal)
	}

	from := deal.Status
	deal.Status = to

	if err := tx.Deals().Update(ctx, deal); err != nil {
		return fmt.Errorf("deals.Update: %w", err)
	}

	metrics.DealTransitions.WithLabelValues(to.String()).Inc()
	logger(ctx).Info("deal status changed",
		slog.Int64(logx.FieldDealID, deal.ID),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)

	return nil
}

func dealRef(id int64) string {
	return fmt.Sprintf("deal=%d", id)
}

func notAuthorized(dealID int64) *domain.AppError {
	return domain.NewError(errcodes.NotAuthorized, fmt.Sprintf("not a permitted party of deal %d", dealID))
}

func wrongStatus(deal *entity.Deal) *domain.AppError {
	return domain.NewError(errcodes.WrongStatus, fmt.Sprintf("deal %d is %s", deal.ID, deal.Status))
}
