package deal_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/service/audit"
	"tg_escrow/internal/domain/service/deal"
	"tg_escrow/internal/domain/service/ledger"
	"tg_escrow/internal/domain/value"
	"tg_escrow/internal/infrastructure/inmemory"
	"tg_escrow/pkg/errcodes"
)

const (
	escrowID = int64(0)
	buyerID  = int64(1)
	sellerID = int64(2)
	otherID  = int64(3)
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []entity.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, notifications ...entity.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.sent = append(n.sent, notifications...)
}

type fixture struct {
	store    *inmemory.Store
	svc      *deal.Service
	notifier *recordingNotifier
}

func newFixture(buyerBalance value.Cents) fixture {
	store := inmemory.NewStore()
	store.PutAccount(entity.Account{ID: escrowID, FullName: "escrow"})
	store.PutAccount(entity.Account{ID: buyerID, FullName: "buyer", Balance: buyerBalance})
	store.PutAccount(entity.Account{ID: sellerID, FullName: "seller"})
	store.PutAccount(entity.Account{ID: otherID, FullName: "other", Balance: buyerBalance})

	chain := audit.NewChain(audit.NewGuard())
	notifier := &recordingNotifier{}

	svc := deal.NewService(store, ledger.NewLedger(chain), chain, deal.Config{
		FeeRate:           decimal.RequireFromString("0.05"),
		EscrowAccountID:   escrowID,
		DescriptionMaxLen: 100,
		MessageMaxLen:     100,
	}).WithNotifier(notifier)

	return fixture{store: store, svc: svc, notifier: notifier}
}

func (f fixture) balance(t *testing.T, id int64) value.Cents {
	t.Helper()

	a, ok := f.store.Account(id)
	require.True(t, ok)

	return a.Balance
}

func TestDealHappyPath(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(10000)

	amount, err := value.ParseAmount("50.00")
	rq.NoError(err)

	d, err := f.svc.Create(ctx, sellerID, amount, "telegram gift")
	rq.NoError(err)
	rq.Equal(value.DealStatusPending, d.Status)
	rq.Nil(d.BuyerID)

	d, err = f.svc.Pay(ctx, d.ID, buyerID)
	rq.NoError(err)
	rq.Equal(value.DealStatusActive, d.Status)
	rq.Equal(buyerID, d.Buyer())
	rq.Equal(value.Cents(5000), f.balance(t, buyerID))
	rq.Equal(value.Cents(5000), f.balance(t, escrowID))

	d, err = f.svc.MarkDelivered(ctx, d.ID, sellerID)
	rq.NoError(err)
	rq.Equal(value.DealStatusDelivered, d.Status)

	release, err := f.svc.ConfirmReceipt(ctx, d.ID, buyerID)
	rq.NoError(err)
	rq.Equal(value.DealStatusCompleted, release.Deal.Status)
	rq.Equal("47.50", release.Net.String())
	rq.Equal("2.50", release.Fee.String())
	rq.Equal(value.Cents(4750), f.balance(t, sellerID))
	rq.Zero(f.balance(t, escrowID))
	rq.Equal(value.Cents(5000), f.balance(t, buyerID))

	entries := f.store.AuditEntries()
	rq.Len(entries, 3)
	rq.Equal(value.AuditActionEscrowLock, entries[0].Action)
	rq.Equal(value.AuditActionDelivery, entries[1].Action)
	rq.Equal(value.AuditActionRelease, entries[2].Action)

	_, err = audit.Verify(entries, audit.GenesisHash)
	rq.NoError(err)

	kinds := make([]entity.NotificationKind, 0, len(f.notifier.sent))
	for _, n := range f.notifier.sent {
		kinds = append(kinds, n.Kind)
	}
	rq.Equal([]entity.NotificationKind{
		entity.NotificationDealPaid,
		entity.NotificationDealDelivered,
		entity.NotificationFundsReleased,
	}, kinds)
}

func TestDealConfirmFromActive(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(10000)

	d, err := f.svc.Create(ctx, sellerID, 1000, "item")
	rq.NoError(err)

	_, err = f.svc.Pay(ctx, d.ID, buyerID)
	rq.NoError(err)

	release, err := f.svc.ConfirmReceipt(ctx, d.ID, buyerID)
	rq.NoError(err)
	rq.Equal(value.Cents(950), release.Net)
}

func TestDealCreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(0)

	testCases := []struct {
		name        string
		seller      int64
		amount      value.Cents
		description string
		code        string
	}{
		{name: "zero amount", seller: sellerID, amount: 0, description: "x", code: string(errcodes.InvalidAmount)},
		{name: "negative amount", seller: sellerID, amount: -5, description: "x", code: string(errcodes.InvalidAmount)},
		{name: "empty description", seller: sellerID, amount: 5, description: "  ", code: string(errcodes.InvalidDescription)},
		{name: "long description", seller: sellerID, amount: 5, description: string(make([]byte, 101)), code: string(errcodes.InvalidDescription)},
		{name: "unknown seller", seller: 404, amount: 5, description: "x", code: string(errcodes.NotFound)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			_, err := f.svc.Create(ctx, tc.seller, tc.amount, tc.description)
			code, ok := domain.GetCode(err)
			rq.True(ok, "%v", err)
			rq.Equal(tc.code, code.String())
		})
	}
}

func TestDealPayGuards(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(1000)

	d, err := f.svc.Create(ctx, sellerID, 5000, "expensive")
	rq.NoError(err)

	_, err = f.svc.Pay(ctx, d.ID, sellerID)
	rq.True(domain.HasCode(err, errcodes.SelfTradeForbidden))

	_, err = f.svc.Pay(ctx, d.ID, buyerID)
	rq.True(domain.HasCode(err, errcodes.InsufficientFunds))
	rq.Equal(value.Cents(1000), f.balance(t, buyerID))

	stored, err := f.svc.Get(ctx, d.ID)
	rq.NoError(err)
	rq.Equal(value.DealStatusPending, stored.Status)
	rq.Nil(stored.BuyerID)
	rq.Empty(f.store.AuditEntries())

	_, err = f.svc.Pay(ctx, 999, buyerID)
	rq.True(domain.HasCode(err, errcodes.NotFound))
}

func TestDealTransitionsOutsideAllowedStates(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(10000)

	d, err := f.svc.Create(ctx, sellerID, 1000, "item")
	rq.NoError(err)

	_, err = f.svc.MarkDelivered(ctx, d.ID, sellerID)
	rq.True(domain.HasCode(err, errcodes.WrongStatus))

	_, err = f.svc.ConfirmReceipt(ctx, d.ID, buyerID)
	rq.True(domain.HasCode(err, errcodes.NotAuthorized), "buyer is not set before payment")

	_, err = f.svc.OpenDispute(ctx, d.ID, sellerID)
	rq.True(domain.HasCode(err, errcodes.WrongStatus))

	_, err = f.svc.Pay(ctx, d.ID, buyerID)
	rq.NoError(err)

	_, err = f.svc.Pay(ctx, d.ID, otherID)
	rq.True(domain.HasCode(err, errcodes.DealNotPending))

	_, err = f.svc.MarkDelivered(ctx, d.ID, buyerID)
	rq.True(domain.HasCode(err, errcodes.NotAuthorized))

	_, err = f.svc.ConfirmReceipt(ctx, d.ID, sellerID)
	rq.True(domain.HasCode(err, errcodes.NotAuthorized))

	_, err = f.svc.OpenDispute(ctx, d.ID, otherID)
	rq.True(domain.HasCode(err, errcodes.NotAuthorized))

	d, err = f.svc.OpenDispute(ctx, d.ID, buyerID)
	rq.NoError(err)
	rq.Equal(value.DealStatusDispute, d.Status)

	// Спор замораживает сделку для сторон.
	_, err = f.svc.MarkDelivered(ctx, d.ID, sellerID)
	rq.True(domain.HasCode(err, errcodes.WrongStatus))

	_, err = f.svc.ConfirmReceipt(ctx, d.ID, buyerID)
	rq.True(domain.HasCode(err, errcodes.WrongStatus))

	_, err = f.svc.OpenDispute(ctx, d.ID, sellerID)
	rq.True(domain.HasCode(err, errcodes.WrongStatus))

	rq.Equal(value.Cents(1000), f.balance(t, escrowID))
}

func TestDealConcurrentPay(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(10000)

	d, err := f.svc.Create(ctx, sellerID, 6000, "single item")
	rq.NoError(err)

	const payers = 8

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		codes   []string
	)

	for i := range payers {
		wg.Add(1)

		go func(payer int64) {
			defer wg.Done()

			_, err := f.svc.Pay(ctx, d.ID, payer)

			mu.Lock()
			defer mu.Unlock()

			if err == nil {
				success++
				return
			}

			code, _ := domain.GetCode(err)
			codes = append(codes, code.String())
		}([]int64{buyerID, otherID}[i%2])
	}

	wg.Wait()

	rq.Equal(1, success)
	rq.Len(codes, payers-1)

	for _, code := range codes {
		rq.Equal(errcodes.DealNotPending.String(), code)
	}

	rq.Equal(value.Cents(6000), f.balance(t, escrowID))
	rq.Equal(int64(20000), f.store.TotalBalance())
	rq.Len(f.store.AuditEntries(), 1)
}

func TestDealListActiveAndMessages(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(10000)

	first, err := f.svc.Create(ctx, sellerID, 1000, "first")
	rq.NoError(err)

	second, err := f.svc.Create(ctx, sellerID, 1000, "second")
	rq.NoError(err)

	_, err = f.svc.PostMessage(ctx, first.ID, sellerID, "hello")
	rq.True(domain.HasCode(err, errcodes.WrongStatus), "no counterparty before payment")

	_, err = f.svc.Pay(ctx, first.ID, buyerID)
	rq.NoError(err)

	_, err = f.svc.ConfirmReceipt(ctx, first.ID, buyerID)
	rq.NoError(err)

	_, err = f.svc.Pay(ctx, second.ID, buyerID)
	rq.NoError(err)

	active, err := f.svc.ListActive(ctx, buyerID)
	rq.NoError(err)
	rq.Len(active, 1)
	rq.Equal(second.ID, active[0].ID)

	msg, err := f.svc.PostMessage(ctx, second.ID, buyerID, "where is my item?")
	rq.NoError(err)
	rq.Equal(buyerID, msg.SenderID)

	_, err = f.svc.PostMessage(ctx, second.ID, otherID, "spam")
	rq.True(domain.HasCode(err, errcodes.NotAuthorized))

	last := f.notifier.sent[len(f.notifier.sent)-1]
	rq.Equal(entity.NotificationDealMessage, last.Kind)
	rq.Equal(sellerID, last.RecipientID)
}

type denyingLimiter struct{}

func (denyingLimiter) Allow(context.Context, int64, string) error {
	return domain.NewError(errcodes.RateLimited, "slow down")
}

func TestDealPayRateLimited(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(10000)

	d, err := f.svc.Create(ctx, sellerID, 1000, "item")
	rq.NoError(err)

	f.svc.WithLimiter(denyingLimiter{})

	_, err = f.svc.Pay(ctx, d.ID, buyerID)
	rq.True(domain.HasCode(err, errcodes.RateLimited))
	rq.Equal(value.Cents(10000), f.balance(t, buyerID))
}
