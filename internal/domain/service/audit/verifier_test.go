package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/service/audit"
	"tg_escrow/internal/domain/value"
	"tg_escrow/internal/infrastructure/inmemory"
	"tg_escrow/pkg/errcodes"
)

func TestVerifierVerifyAll(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	store := inmemory.NewStore()
	guard := audit.NewGuard()
	chain := audit.NewChain(guard)

	records := make([]audit.Record, 0, 7)
	for i := range 7 {
		records = append(records, audit.Record{
			ActorID: int64(i + 1),
			Action:  value.AuditActionDeposit,
			Amount:  value.Cents(100 * (i + 1)),
		})
	}
	appendRecords(t, store, chain, records...)

	verifier := audit.NewVerifier(store, guard).WithPageSize(3)

	report, err := verifier.VerifyAll(ctx)
	rq.NoError(err)
	rq.Equal(7, report.Entries)
	rq.Equal(int64(7), report.LastID)
	rq.Equal(store.AuditEntries()[6].Hash, report.LastHash)
	rq.False(guard.Halted())

	rq.True(store.UpdateAuditEntry(5, func(e *entity.AuditEntry) { e.Details = "forged" }))

	_, err = verifier.VerifyAll(ctx)
	rq.True(domain.HasCode(err, errcodes.IntegrityViolation))
	rq.ErrorContains(err, "audit entry 5")
	rq.True(guard.Halted())
	rq.True(domain.HasCode(guard.Check(), errcodes.IntegrityViolation))
}

func TestVerifierEmptyChain(t *testing.T) {
	rq := require.New(t)

	store := inmemory.NewStore()
	guard := audit.NewGuard()

	report, err := audit.NewVerifier(store, guard).VerifyAll(context.Background())
	rq.NoError(err)
	rq.Zero(report.Entries)
	rq.Equal(audit.GenesisHash, report.LastHash)
}
