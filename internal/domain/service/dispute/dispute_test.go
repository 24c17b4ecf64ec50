package dispute_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/service/adminauth"
	"tg_escrow/internal/domain/service/audit"
	"tg_escrow/internal/domain/service/deal"
	"tg_escrow/internal/domain/service/dispute"
	"tg_escrow/internal/domain/service/ledger"
	"tg_escrow/internal/domain/value"
	"tg_escrow/internal/infrastructure/inmemory"
	"tg_escrow/pkg/errcodes"
)

const (
	escrowID = int64(0)
	buyerID  = int64(1)
	sellerID = int64(2)
	agentID  = int64(10)
	superID  = int64(11)
	userID   = int64(12)

	pin = "4321"
)

type fixture struct {
	store    *inmemory.Store
	deals    *deal.Service
	resolver *dispute.Resolver
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	store := inmemory.NewStore()
	store.PutAccount(entity.Account{ID: escrowID})
	store.PutAccount(entity.Account{ID: buyerID, Balance: 10000})
	store.PutAccount(entity.Account{ID: sellerID})

	hash, err := adminauth.HashPin(pin)
	require.NoError(t, err)

	store.PutAdminGrant(entity.AdminGrant{AccountID: agentID, Role: value.AdminRoleDisputeAgent, PinHash: hash})
	store.PutAdminGrant(entity.AdminGrant{AccountID: superID, Role: value.AdminRoleSuperAdmin, PinHash: hash})

	feeRate := decimal.RequireFromString("0.05")
	chain := audit.NewChain(audit.NewGuard())
	l := ledger.NewLedger(chain)

	return fixture{
		store: store,
		deals: deal.NewService(store, l, chain, deal.Config{
			FeeRate:           feeRate,
			EscrowAccountID:   escrowID,
			DescriptionMaxLen: 100,
			MessageMaxLen:     100,
		}),
		resolver: dispute.NewResolver(store, l, adminauth.NewAuthorizer(store), feeRate, escrowID),
	}
}

func (f fixture) disputedDeal(t *testing.T, amount value.Cents) *entity.Deal {
	t.Helper()

	ctx := context.Background()
	rq := require.New(t)

	d, err := f.deals.Create(ctx, sellerID, amount, "disputed item")
	rq.NoError(err)

	_, err = f.deals.Pay(ctx, d.ID, buyerID)
	rq.NoError(err)

	d, err = f.deals.OpenDispute(ctx, d.ID, buyerID)
	rq.NoError(err)

	return d
}

func (f fixture) balance(t *testing.T, id int64) value.Cents {
	t.Helper()

	a, ok := f.store.Account(id)
	require.True(t, ok)

	return a.Balance
}

func TestResolveInFavorOfBuyer(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)
	d := f.disputedDeal(t, 5000)

	rq.Equal(value.Cents(5000), f.balance(t, buyerID))

	res, err := f.resolver.Resolve(context.Background(), dispute.ResolveCommand{
		DealID:  d.ID,
		Winner:  "buyer",
		AdminID: agentID,
		Pin:     pin,
	})
	rq.NoError(err)
	rq.Equal(value.DealStatusCanceled, res.Deal.Status)
	rq.Zero(res.Fee)
	rq.Equal(value.Cents(5000), res.Net)
	rq.Equal(value.Cents(10000), f.balance(t, buyerID))
	rq.Zero(f.balance(t, sellerID))
	rq.Zero(f.balance(t, escrowID))

	entries := f.store.AuditEntries()
	rq.Equal(value.AuditActionRefund, entries[len(entries)-1].Action)
	rq.Equal(agentID, entries[len(entries)-1].ActorID)
}

func TestResolveInFavorOfSeller(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)
	d := f.disputedDeal(t, 5000)

	res, err := f.resolver.Resolve(context.Background(), dispute.ResolveCommand{
		DealID:  d.ID,
		Winner:  "seller",
		AdminID: superID,
		Pin:     pin,
	})
	rq.NoError(err)
	rq.Equal(value.DealStatusCompleted, res.Deal.Status)
	rq.Equal(value.Cents(250), res.Fee)
	rq.Equal(value.Cents(4750), f.balance(t, sellerID))
	rq.Equal(value.Cents(5000), f.balance(t, buyerID))

	entries := f.store.AuditEntries()
	rq.Equal(value.AuditActionDisputeResolution, entries[len(entries)-1].Action)
}

func TestResolveRejections(t *testing.T) {
	f := newFixture(t)
	disputed := f.disputedDeal(t, 1000)

	active, err := f.deals.Create(context.Background(), sellerID, 1000, "active")
	require.NoError(t, err)
	_, err = f.deals.Pay(context.Background(), active.ID, buyerID)
	require.NoError(t, err)

	testCases := []struct {
		name string
		cmd  dispute.ResolveCommand
		code string
	}{
		{
			name: "not admin",
			cmd:  dispute.ResolveCommand{DealID: disputed.ID, Winner: "buyer", AdminID: userID, Pin: pin},
			code: errcodes.NotAdmin.String(),
		},
		{
			name: "wrong pin",
			cmd:  dispute.ResolveCommand{DealID: disputed.ID, Winner: "buyer", AdminID: agentID, Pin: "0000"},
			code: errcodes.WrongSecret.String(),
		},
		{
			name: "invalid winner",
			cmd:  dispute.ResolveCommand{DealID: disputed.ID, Winner: "admin", AdminID: agentID, Pin: pin},
			code: errcodes.InvalidWinner.String(),
		},
		{
			name: "not dispute",
			cmd:  dispute.ResolveCommand{DealID: active.ID, Winner: "buyer", AdminID: agentID, Pin: pin},
			code: errcodes.NotDispute.String(),
		},
		{
			name: "missing deal",
			cmd:  dispute.ResolveCommand{DealID: 404, Winner: "buyer", AdminID: agentID, Pin: pin},
			code: errcodes.NotFound.String(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			_, err := f.resolver.Resolve(context.Background(), tc.cmd)
			code, ok := domain.GetCode(err)
			rq.True(ok, "%v", err)
			rq.Equal(tc.code, code.String())
		})
	}

	require.Equal(t, value.Cents(2000), f.balance(t, escrowID), "rejected resolutions leave funds held")
}

func TestResolveTwice(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)
	d := f.disputedDeal(t, 1000)
	cmd := dispute.ResolveCommand{DealID: d.ID, Winner: "buyer", AdminID: agentID, Pin: pin}

	_, err := f.resolver.Resolve(context.Background(), cmd)
	rq.NoError(err)

	_, err = f.resolver.Resolve(context.Background(), cmd)
	rq.True(domain.HasCode(err, errcodes.NotDispute))
	rq.Equal(value.Cents(10000), f.balance(t, buyerID))
}

func TestEvidence(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	d := f.disputedDeal(t, 1000)

	_, err := f.deals.PostMessage(ctx, d.ID, buyerID, "item never arrived")
	rq.NoError(err)

	messages, err := f.resolver.Evidence(ctx, dispute.EvidenceQuery{DealID: d.ID, AdminID: agentID, Pin: pin})
	rq.NoError(err)
	rq.Len(messages, 1)
	rq.Equal("item never arrived", messages[0].Text)

	_, err = f.resolver.Evidence(ctx, dispute.EvidenceQuery{DealID: d.ID, AdminID: buyerID, Pin: pin})
	rq.True(domain.HasCode(err, errcodes.NotAdmin))
}
