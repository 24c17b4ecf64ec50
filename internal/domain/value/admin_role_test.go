package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tg_escrow/internal/domain/value"
)

func TestAdminRoleSatisfies(t *testing.T) {
	rq := require.New(t)

	rq.True(value.AdminRoleDisputeAgent.Satisfies(value.AdminRoleDisputeAgent))
	rq.False(value.AdminRoleDisputeAgent.Satisfies(value.AdminRoleSuperAdmin))
	rq.True(value.AdminRoleSuperAdmin.Satisfies(value.AdminRoleDisputeAgent))
	rq.True(value.AdminRoleSuperAdmin.Satisfies(value.AdminRoleSuperAdmin))
	rq.False(value.AdminRole("moderator").Satisfies(value.AdminRoleDisputeAgent))

	_, err := value.ParseAdminRole("moderator")
	rq.Error(err)
}

func TestParseWinner(t *testing.T) {
	rq := require.New(t)

	w, err := value.ParseWinner("buyer")
	rq.NoError(err)
	rq.Equal(value.WinnerBuyer, w)

	_, err = value.ParseWinner("admin")
	rq.ErrorIs(err, value.ErrInvalidWinner)
}
