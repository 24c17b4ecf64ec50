package adminauth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/service/adminauth"
	"tg_escrow/internal/domain/service/admission"
	"tg_escrow/internal/domain/value"
	"tg_escrow/internal/infrastructure/counter"
	"tg_escrow/internal/infrastructure/inmemory"
	"tg_escrow/pkg/errcodes"
)

func TestAuthorize(t *testing.T) {
	store := inmemory.NewStore()
	store.PutAccount(entity.Account{ID: 1})
	store.PutAccount(entity.Account{ID: 2})

	auth := adminauth.NewAuthorizer(store)

	_, err := auth.Grant(context.Background(), 1, value.AdminRoleDisputeAgent, "1111")
	require.NoError(t, err)

	_, err = auth.Grant(context.Background(), 2, value.AdminRoleSuperAdmin, "2222")
	require.NoError(t, err)

	testCases := []struct {
		name     string
		actor    int64
		pin      string
		required value.AdminRole
		code     string
	}{
		{name: "agent ok", actor: 1, pin: "1111", required: value.AdminRoleDisputeAgent},
		{name: "super satisfies agent", actor: 2, pin: "2222", required: value.AdminRoleDisputeAgent},
		{name: "super ok", actor: 2, pin: "2222", required: value.AdminRoleSuperAdmin},
		{name: "no grant", actor: 3, pin: "1111", required: value.AdminRoleDisputeAgent, code: errcodes.NotAdmin.String()},
		{name: "role too low", actor: 1, pin: "1111", required: value.AdminRoleSuperAdmin, code: errcodes.NoPermission.String()},
		{name: "wrong pin", actor: 1, pin: "2222", required: value.AdminRoleDisputeAgent, code: errcodes.WrongSecret.String()},
		{name: "empty pin", actor: 2, pin: "", required: value.AdminRoleDisputeAgent, code: errcodes.WrongSecret.String()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			grant, err := auth.Authorize(context.Background(), tc.actor, tc.pin, tc.required)
			if tc.code == "" {
				rq.NoError(err)
				rq.Equal(tc.actor, grant.AccountID)
				return
			}

			code, ok := domain.GetCode(err)
			rq.True(ok, "%v", err)
			rq.Equal(tc.code, code.String())
		})
	}
}

func TestGrantValidation(t *testing.T) {
	rq := require.New(t)

	store := inmemory.NewStore()
	auth := adminauth.NewAuthorizer(store)

	_, err := auth.Grant(context.Background(), 1, value.AdminRoleDisputeAgent, "1234")
	rq.True(domain.HasCode(err, errcodes.NotFound))

	store.PutAccount(entity.Account{ID: 1})

	_, err = auth.Grant(context.Background(), 1, value.AdminRoleDisputeAgent, "12")
	rq.True(domain.HasCode(err, errcodes.ValidationError))

	grant, err := auth.Grant(context.Background(), 1, value.AdminRoleDisputeAgent, "1234")
	rq.NoError(err)
	rq.NotContains(string(grant.PinHash), "1234")

	account, ok := store.Account(1)
	rq.True(ok)
	rq.True(account.IsAdmin)
}

func TestAuthorizePinAttemptsLimited(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	store := inmemory.NewStore()
	store.PutAccount(entity.Account{ID: 1})

	auth := adminauth.NewAuthorizer(store).
		WithLimiter(admission.NewLimiter(counter.NewMemory(), admission.PinPolicy()))

	_, err := auth.Grant(ctx, 1, value.AdminRoleDisputeAgent, "1111")
	rq.NoError(err)

	for range admission.PinPolicy().Limit {
		_, err = auth.Authorize(ctx, 1, "0000", value.AdminRoleDisputeAgent)
		rq.True(domain.HasCode(err, errcodes.WrongSecret))
	}

	// После исчерпания лимита не проходит даже верный PIN.
	_, err = auth.Authorize(ctx, 1, "1111", value.AdminRoleDisputeAgent)
	rq.True(domain.HasCode(err, errcodes.RateLimited))
}
