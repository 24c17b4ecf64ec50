// Package ledger — единственное место, где меняются балансы. Каждый вызов
// блокирует затронутые счета, меняет их и добавляет ровно одну запись в журнал
// аудита в той же транзакции.
package ledger

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/repository"
	"tg_escrow/internal/domain/service/audit"
	"tg_escrow/internal/domain/value"
	"tg_escrow/internal/metrics"
	"tg_escrow/pkg/errcodes"
)

// Posting описывает запись журнала, которая сопровождает операцию.
type Posting struct {
	ActorID int64
	Action  value.AuditAction
	Details string
}

type Transfer struct {
	From   *entity.Account
	To     *entity.Account
	Amount value.Cents
	Fee    value.Cents
	Net    value.Cents
	Entry  *entity.AuditEntry
}

type Ledger struct {
	chain *audit.Chain
}

func NewLedger(chain *audit.Chain) *Ledger {
	return &Ledger{chain: chain}
}

// Credit зачисляет amount на счёт.
func (l *Ledger) Credit(
	ctx context.Context,
	tx repository.Tx,
	accountID int64,
	amount value.Cents,
	p Posting,
) (*entity.Account, error) {
	if err := l.precheck(amount); err != nil {
		return nil, err
	}

	account, err := tx.Accounts().GetForUpdate(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("accounts.GetForUpdate: %w", err)
	}

	return l.credit(ctx, tx, account, amount, p)
}

// CreditOnce зачисляет amount, только если в журнале ещё нет записи с тем же action и details.
// details должен содержать уникальную внешнюю ссылку (номер счёта платёжного шлюза).
func (l *Ledger) CreditOnce(
	ctx context.Context,
	tx repository.Tx,
	accountID int64,
	amount value.Cents,
	p Posting,
) (*entity.Account, bool, error) {
	if err := l.precheck(amount); err != nil {
		return nil, false, err
	}

	account, err := tx.Accounts().GetForUpdate(ctx, accountID)
	if err != nil {
		return nil, false, fmt.Errorf("accounts.GetForUpdate: %w", err)
	}

	exists, err := tx.AuditLog().ExistsByDetails(ctx, p.Action, p.Details)
	if err != nil {
		return nil, false, fmt.Errorf("auditLog.ExistsByDetails: %w", err)
	}

	if exists {
		return account, false, nil
	}

	account, err = l.credit(ctx, tx, account, amount, p)
	if err != nil {
		return nil, false, err
	}

	return account, true, nil
}

// Debit списывает amount. Баланс не может стать отрицательным.
func (l *Ledger) Debit(
	ctx context.Context,
	tx repository.Tx,
	accountID int64,
	amount value.Cents,
	p Posting,
) (*entity.Account, error) {
	if err := l.precheck(amount); err != nil {
		return nil, err
	}

	account, err := tx.Accounts().GetForUpdate(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("accounts.GetForUpdate: %w", err)
	}

	if account.Balance < amount {
		return nil, insufficientFunds(account.ID)
	}

	account.Balance -= amount

	if err = tx.Accounts().UpdateBalance(ctx, account.ID, account.Balance); err != nil {
		return nil, fmt.Errorf("accounts.UpdateBalance: %w", err)
	}

	if _, err = l.append(ctx, tx, amount, p); err != nil {
		return nil, err
	}

	return account, nil
}

// Transfer списывает amount с from и зачисляет amount - fee на to,
// где fee = round_half_up(amount * feeRate). Комиссия остаётся у платформы.
func (l *Ledger) Transfer(
	ctx context.Context,
	tx repository.Tx,
	fromID, toID int64,
	amount value.Cents,
	feeRate decimal.Decimal,
	p Posting,
) (Transfer, error) {
	if err := l.precheck(amount); err != nil {
		return Transfer{}, err
	}

	if fromID == toID {
		return Transfer{}, domain.NewError(errcodes.SelfTradeForbidden, "transfer to the same account")
	}

	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Transfer{}, domain.NewError(errcodes.InvalidAmount, fmt.Sprintf("fee rate %s out of range", feeRate))
	}

	locked, err := lockAscending(ctx, tx.Accounts(), fromID, toID)
	if err != nil {
		return Transfer{}, err
	}

	from, to := locked[fromID], locked[toID]

	if from.Balance < amount {
		return Transfer{}, insufficientFunds(from.ID)
	}

	fee := amount.Fee(feeRate)
	net := amount - fee

	if err = checkHeadroom(to, net); err != nil {
		return Transfer{}, err
	}

	from.Balance -= amount
	to.Balance += net

	if err = tx.Accounts().UpdateBalance(ctx, from.ID, from.Balance); err != nil {
		return Transfer{}, fmt.Errorf("accounts.UpdateBalance(from): %w", err)
	}

	if err = tx.Accounts().UpdateBalance(ctx, to.ID, to.Balance); err != nil {
		return Transfer{}, fmt.Errorf("accounts.UpdateBalance(to): %w", err)
	}

	p.Details = joinDetails(p.Details, fmt.Sprintf("from=%d to=%d fee=%d", from.ID, to.ID, fee.Int64()))

	entry, err := l.append(ctx, tx, amount, p)
	if err != nil {
		return Transfer{}, err
	}

	if fee > 0 {
		metrics.FeesCollected.Add(float64(fee))
	}

	return Transfer{
		From:   from,
		To:     to,
		Amount: amount,
		Fee:    fee,
		Net:    net,
		Entry:  entry,
	}, nil
}

func (l *Ledger) precheck(amount value.Cents) error {
	if err := l.chain.Guard().Check(); err != nil {
		return err
	}

	if amount <= 0 {
		return domain.NewError(errcodes.InvalidAmount, "amount must be positive")
	}

	return nil
}

func (l *Ledger) credit(
	ctx context.Context,
	tx repository.Tx,
	account *entity.Account,
	amount value.Cents,
	p Posting,
) (*entity.Account, error) {
	if err := checkHeadroom(account, amount); err != nil {
		return nil, err
	}

	account.Balance += amount

	if err := tx.Accounts().UpdateBalance(ctx, account.ID, account.Balance); err != nil {
		return nil, fmt.Errorf("accounts.UpdateBalance: %w", err)
	}

	if _, err := l.append(ctx, tx, amount, p); err != nil {
		return nil, err
	}

	return account, nil
}

func (l *Ledger) append(ctx context.Context, tx repository.Tx, amount value.Cents, p Posting) (*entity.AuditEntry, error) {
	entry, err := l.chain.Append(ctx, tx.AuditLog(), audit.Record{
		ActorID: p.ActorID,
		Action:  p.Action,
		Amount:  amount,
		Details: p.Details,
	})
	if err != nil {
		return nil, fmt.Errorf("chain.Append: %w", err)
	}

	metrics.LedgerPostings.WithLabelValues(p.Action.String()).Inc()
	metrics.LedgerVolume.WithLabelValues(p.Action.String()).Add(float64(amount))

	return entry, nil
}

// lockAscending блокирует счета строго по возрастанию id, чтобы встречные переводы не взаимоблокировались.
func lockAscending(ctx context.Context, accounts repository.Accounts, ids ...int64) (map[int64]*entity.Account, error) {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	locked := make(map[int64]*entity.Account, len(ordered))

	for _, id := range ordered {
		account, err := accounts.GetForUpdate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("accounts.GetForUpdate(%d): %w", id, err)
		}

		locked[id] = account
	}

	return locked, nil
}

// checkHeadroom не даёт балансу переполнить int64.
func checkHeadroom(account *entity.Account, amount value.Cents) error {
	if amount > math.MaxInt64-account.Balance {
		return domain.NewError(errcodes.InvalidAmount,
			fmt.Sprintf("amount %s overflows balance of account %d", amount, account.ID))
	}

	return nil
}

func insufficientFunds(accountID int64) *domain.AppError {
	return domain.NewError(errcodes.InsufficientFunds, fmt.Sprintf("insufficient funds on account %d", accountID))
}

func joinDetails(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}

	return strings.Join(nonEmpty, " ")
}
