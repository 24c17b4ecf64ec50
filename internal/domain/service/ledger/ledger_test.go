package ledger_test

import (
	"context"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/repository"
	"tg_escrow/internal/domain/service/audit"
	"tg_escrow/internal/domain/service/ledger"
	"tg_escrow/internal/domain/value"
	"tg_escrow/internal/infrastructure/inmemory"
	"tg_escrow/pkg/errcodes"
	"tg_escrow/pkg/tests"
)

var feeRate = decimal.RequireFromString("0.05") //nolint:gochecknoglobals

func newLedger(balances map[int64]value.Cents) (*inmemory.Store, *ledger.Ledger, *audit.Guard) {
	store := inmemory.NewStore()
	for id, balance := range balances {
		store.PutAccount(entity.Account{ID: id, Balance: balance})
	}

	guard := audit.NewGuard()

	return store, ledger.NewLedger(audit.NewChain(guard)), guard
}

func balance(t *testing.T, store *inmemory.Store, id int64) value.Cents {
	t.Helper()

	a, ok := store.Account(id)
	require.True(t, ok)

	return a.Balance
}

func posting(action value.AuditAction) ledger.Posting {
	return ledger.Posting{ActorID: 1, Action: action, Details: "test"}
}

func TestLedgerCreditDebit(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	store, l, _ := newLedger(map[int64]value.Cents{1: 1000})

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		a, err := l.Credit(ctx, tx, 1, 500, posting(value.AuditActionDeposit))
		rq.NoError(err)
		rq.Equal(value.Cents(1500), a.Balance)

		a, err = l.Debit(ctx, tx, 1, 1500, posting(value.AuditActionEscrowLock))
		rq.NoError(err)
		rq.Zero(a.Balance)

		return nil
	})
	rq.NoError(err)
	rq.Zero(balance(t, store, 1))
	rq.Len(store.AuditEntries(), 2)
}

func TestLedgerDebitInsufficientFundsRollsBack(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	store, l, _ := newLedger(map[int64]value.Cents{1: 1000})

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := l.Credit(ctx, tx, 1, 100, posting(value.AuditActionDeposit))
		rq.NoError(err)

		_, err = l.Debit(ctx, tx, 1, 1101, posting(value.AuditActionEscrowLock))
		return err
	})
	rq.True(domain.HasCode(err, errcodes.InsufficientFunds))
	rq.Equal(value.Cents(1000), balance(t, store, 1))
	rq.Empty(store.AuditEntries())
}

func TestLedgerRejectsNonPositiveAmount(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	store, l, _ := newLedger(map[int64]value.Cents{1: 1000, 2: 0})

	for _, amount := range []value.Cents{0, -1} {
		err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			_, err := l.Transfer(ctx, tx, 1, 2, amount, feeRate, posting(value.AuditActionRelease))
			return err
		})
		rq.True(domain.HasCode(err, errcodes.InvalidAmount))
	}
}

func TestLedgerRejectsBalanceOverflow(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	store, l, _ := newLedger(map[int64]value.Cents{1: math.MaxInt64 - 10, 2: 1000})

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := l.Credit(ctx, tx, 1, 100, posting(value.AuditActionDeposit))
		return err
	})
	rq.True(domain.HasCode(err, errcodes.InvalidAmount))

	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := l.Transfer(ctx, tx, 2, 1, 1000, feeRate, posting(value.AuditActionRelease))
		return err
	})
	rq.True(domain.HasCode(err, errcodes.InvalidAmount))

	rq.Equal(value.Cents(math.MaxInt64-10), balance(t, store, 1))
	rq.Equal(value.Cents(1000), balance(t, store, 2))
	rq.Empty(store.AuditEntries())

	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := l.Credit(ctx, tx, 1, 10, posting(value.AuditActionDeposit))
		return err
	})
	rq.NoError(err)
	rq.Equal(value.Cents(math.MaxInt64), balance(t, store, 1))
}

func TestLedgerTransferProperty(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	random := tests.NewRandomizer()

	for range 200 {
		start := value.Cents(random.Int64n(1_000_000) + 1)
		amount := value.Cents(random.Int64n(int64(start)) + 1)
		rate := decimal.NewFromInt(random.Int64n(1000)).Shift(-4)

		store, l, _ := newLedger(map[int64]value.Cents{1: start, 2: 0})
		totalBefore := store.TotalBalance()

		var transfer ledger.Transfer

		err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			var err error
			transfer, err = l.Transfer(ctx, tx, 1, 2, amount, rate, posting(value.AuditActionRelease))
			return err
		})
		rq.NoError(err)

		expectedFee := value.Cents(decimal.NewFromInt(int64(amount)).Mul(rate).Round(0).IntPart())

		rq.Equal(expectedFee, transfer.Fee)
		rq.Equal(start-amount, balance(t, store, 1))
		rq.Equal(amount-expectedFee, balance(t, store, 2))
		rq.Equal(totalBefore-int64(expectedFee), store.TotalBalance())
		rq.Len(store.AuditEntries(), 1)
	}
}

func TestLedgerTransferScenario(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	store, l, _ := newLedger(map[int64]value.Cents{0: 5000, 2: 0})

	var transfer ledger.Transfer

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		transfer, err = l.Transfer(ctx, tx, 0, 2, 5000, feeRate, ledger.Posting{
			ActorID: 1,
			Action:  value.AuditActionRelease,
			Details: "deal=1",
		})
		return err
	})
	rq.NoError(err)
	rq.Equal(value.Cents(250), transfer.Fee)
	rq.Equal(value.Cents(4750), transfer.Net)
	rq.Equal(value.Cents(4750), balance(t, store, 2))
	rq.Zero(balance(t, store, 0))

	entries := store.AuditEntries()
	rq.Len(entries, 1)
	rq.Equal(value.AuditActionRelease, entries[0].Action)
	rq.Equal(value.Cents(5000), entries[0].Amount)
	rq.Equal("deal=1 from=0 to=2 fee=250", entries[0].Details)
}

func TestLedgerCreditOnce(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	store, l, _ := newLedger(map[int64]value.Cents{1: 0})

	p := ledger.Posting{ActorID: 1, Action: value.AuditActionWebhookDeposit, Details: "invoice:42"}

	for i, wantApplied := range []bool{true, false, false} {
		err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			_, applied, err := l.CreditOnce(ctx, tx, 1, 700, p)
			rq.Equal(wantApplied, applied, "attempt %d", i)
			return err
		})
		rq.NoError(err)
	}

	rq.Equal(value.Cents(700), balance(t, store, 1))
	rq.Len(store.AuditEntries(), 1)
}

func TestLedgerHaltedByGuard(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	store, l, guard := newLedger(map[int64]value.Cents{1: 1000})

	guard.Trip(ctx, domain.NewError(errcodes.IntegrityViolation, "test"))

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := l.Credit(ctx, tx, 1, 100, posting(value.AuditActionDeposit))
		return err
	})
	rq.True(domain.HasCode(err, errcodes.IntegrityViolation))
	rq.Equal(value.Cents(1000), balance(t, store, 1))
}

// recordingTx запоминает порядок блокировки счетов.
type recordingTx struct {
	repository.Tx
	locked *[]int64
}

func (r recordingTx) Accounts() repository.Accounts {
	return recordingAccounts{Accounts: r.Tx.Accounts(), locked: r.locked}
}

type recordingAccounts struct {
	repository.Accounts
	locked *[]int64
}

func (r recordingAccounts) GetForUpdate(ctx context.Context, id int64) (*entity.Account, error) {
	*r.locked = append(*r.locked, id)
	return r.Accounts.GetForUpdate(ctx, id)
}

func TestLedgerTransferLocksInAscendingOrder(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	store, l, _ := newLedger(map[int64]value.Cents{3: 1000, 7: 1000})

	for _, pair := range [][2]int64{{3, 7}, {7, 3}} {
		var locked []int64

		err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			_, err := l.Transfer(ctx, recordingTx{Tx: tx, locked: &locked}, pair[0], pair[1], 100, feeRate,
				posting(value.AuditActionRelease))
			return err
		})
		rq.NoError(err)
		rq.Equal([]int64{3, 7}, locked)
	}
}
