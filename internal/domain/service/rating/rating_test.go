package rating_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/service/audit"
	"tg_escrow/internal/domain/service/deal"
	"tg_escrow/internal/domain/service/ledger"
	"tg_escrow/internal/domain/service/rating"
	"tg_escrow/internal/domain/value"
	"tg_escrow/internal/infrastructure/inmemory"
	"tg_escrow/pkg/errcodes"
)

const (
	buyerID  = int64(1)
	sellerID = int64(2)
)

func setup(t *testing.T) (*inmemory.Store, *deal.Service, *rating.Service) {
	t.Helper()

	store := inmemory.NewStore()
	store.PutAccount(entity.Account{ID: 0})
	store.PutAccount(entity.Account{ID: buyerID, Balance: 100000})
	store.PutAccount(entity.Account{ID: sellerID})

	chain := audit.NewChain(audit.NewGuard())
	deals := deal.NewService(store, ledger.NewLedger(chain), chain, deal.Config{
		FeeRate:           decimal.RequireFromString("0.05"),
		DescriptionMaxLen: 100,
		MessageMaxLen:     100,
	})

	return store, deals, rating.NewService(store)
}

func completedDeal(t *testing.T, deals *deal.Service) int64 {
	t.Helper()

	ctx := context.Background()

	d, err := deals.Create(ctx, sellerID, 1000, "item")
	require.NoError(t, err)

	_, err = deals.Pay(ctx, d.ID, buyerID)
	require.NoError(t, err)

	_, err = deals.ConfirmReceipt(ctx, d.ID, buyerID)
	require.NoError(t, err)

	return d.ID
}

func TestRate(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	store, deals, svc := setup(t)

	seller, _ := store.Account(sellerID)
	rq.Equal(value.Unrated, seller.Reputation.String())

	first := completedDeal(t, deals)
	second := completedDeal(t, deals)

	res, err := svc.Rate(ctx, first, buyerID, 5)
	rq.NoError(err)
	rq.Equal("5.0", res.Display)
	rq.Equal(sellerID, res.Review.TargetID)

	res, err = svc.Rate(ctx, second, buyerID, 4)
	rq.NoError(err)
	rq.Equal("4.5", res.Display)

	_, err = svc.Rate(ctx, first, buyerID, 1)
	rq.True(domain.HasCode(err, errcodes.AlreadyReviewed))

	seller, _ = store.Account(sellerID)
	rq.Equal(value.Reputation{Sum: 9, Count: 2}, seller.Reputation)
}

func TestRateRejections(t *testing.T) {
	ctx := context.Background()
	_, deals, svc := setup(t)

	completed := completedDeal(t, deals)

	pending, err := deals.Create(ctx, sellerID, 1000, "pending")
	require.NoError(t, err)

	testCases := []struct {
		name   string
		dealID int64
		rater  int64
		stars  int
		code   string
	}{
		{name: "zero stars", dealID: completed, rater: buyerID, stars: 0, code: errcodes.InvalidRating.String()},
		{name: "six stars", dealID: completed, rater: buyerID, stars: 6, code: errcodes.InvalidRating.String()},
		{name: "seller rates self", dealID: completed, rater: sellerID, stars: 5, code: errcodes.NotAuthorized.String()},
		{name: "not completed", dealID: pending.ID, rater: buyerID, stars: 5, code: errcodes.NotAuthorized.String()},
		{name: "missing deal", dealID: 404, rater: buyerID, stars: 5, code: errcodes.NotFound.String()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			_, err := svc.Rate(ctx, tc.dealID, tc.rater, tc.stars)
			code, ok := domain.GetCode(err)
			rq.True(ok, "%v", err)
			rq.Equal(tc.code, code.String())
		})
	}
}

func TestRateActiveDeal(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	_, deals, svc := setup(t)

	d, err := deals.Create(ctx, sellerID, 1000, "item")
	rq.NoError(err)

	_, err = deals.Pay(ctx, d.ID, buyerID)
	rq.NoError(err)

	_, err = svc.Rate(ctx, d.ID, buyerID, 5)
	rq.True(domain.HasCode(err, errcodes.WrongStatus))
}
