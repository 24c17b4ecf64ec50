package account_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/service/account"
	"tg_escrow/internal/domain/service/adminauth"
	"tg_escrow/internal/domain/value"
	"tg_escrow/internal/infrastructure/inmemory"
	"tg_escrow/pkg/errcodes"
)

func TestRegisterAndGet(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	store := inmemory.NewStore()
	svc := account.NewService(store, adminauth.NewAuthorizer(store))

	a, err := svc.Register(ctx, entity.Profile{ID: 42, Username: "alice", FullName: "Alice"})
	rq.NoError(err)
	rq.Equal("@alice", a.DisplayName())
	rq.Zero(a.Balance)

	a, err = svc.Register(ctx, entity.Profile{ID: 42, FullName: "Alice B"})
	rq.NoError(err)
	rq.Equal("Alice B", a.DisplayName())

	got, err := svc.Get(ctx, 42)
	rq.NoError(err)
	rq.Equal(value.Unrated, got.Reputation.String())

	_, err = svc.Get(ctx, 43)
	rq.True(domain.HasCode(err, errcodes.NotFound))

	_, err = svc.Register(ctx, entity.Profile{ID: 0})
	rq.True(domain.HasCode(err, errcodes.InvalidUserID))
}

func TestSetBanned(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	store := inmemory.NewStore()
	auth := adminauth.NewAuthorizer(store)
	svc := account.NewService(store, auth)

	store.PutAccount(entity.Account{ID: 1})
	store.PutAccount(entity.Account{ID: 2})
	store.PutAccount(entity.Account{ID: 3})

	_, err := auth.Grant(ctx, 2, value.AdminRoleSuperAdmin, "2222")
	rq.NoError(err)

	_, err = auth.Grant(ctx, 3, value.AdminRoleDisputeAgent, "3333")
	rq.NoError(err)

	a, err := svc.SetBanned(ctx, account.BanCommand{AccountID: 1, AdminID: 2, Pin: "2222", Banned: true})
	rq.NoError(err)
	rq.True(a.IsBanned)

	_, err = svc.SetBanned(ctx, account.BanCommand{AccountID: 1, AdminID: 3, Pin: "3333", Banned: false})
	rq.True(domain.HasCode(err, errcodes.NoPermission))

	a, err = svc.SetBanned(ctx, account.BanCommand{AccountID: 1, AdminID: 2, Pin: "2222", Banned: false})
	rq.NoError(err)
	rq.False(a.IsBanned)
}
