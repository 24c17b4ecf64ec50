package audit

import (
	"context"
	"fmt"
	"log/slog"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/repository"
	"tg_escrow/internal/metrics"
	"tg_escrow/pkg/errcodes"
)

const defaultPageSize = 500

type Report struct {
	Entries  int
	LastID   int64
	LastHash string
}

// Verifier проходит весь журнал от генезиса постранично.
type Verifier struct {
	txm          repository.TxManager
	guard        *Guard
	pageSize     int
	readAttempts uint64
}

func NewVerifier(txm repository.TxManager, guard *Guard) *Verifier {
	return &Verifier{
		txm:          txm,
		guard:        guard,
		pageSize:     defaultPageSize,
		readAttempts: 3, //nolint:mnd
	}
}

func (v *Verifier) WithPageSize(size int) *Verifier {
	if size > 0 {
		v.pageSize = size
	}
	return v
}

func (v *Verifier) WithReadAttempts(attempts uint64) *Verifier {
	v.readAttempts = attempts
	return v
}

// VerifyAll проверяет цепочку целиком. При несовпадении срабатывает Guard.
func (v *Verifier) VerifyAll(ctx context.Context) (Report, error) {
	report := Report{LastHash: GenesisHash}

	for {
		var page []entity.AuditEntry

		err := repository.Read(ctx, v.txm, v.readAttempts, func(ctx context.Context, tx repository.Tx) error {
			var err error
			page, err = tx.AuditLog().List(ctx, report.LastID, v.pageSize)
			return err
		})
		if err != nil {
			return report, fmt.Errorf("auditLog.List: %w", err)
		}

		if len(page) == 0 {
			break
		}

		report.LastHash, err = Verify(page, report.LastHash)
		if err != nil {
			if domain.HasCode(err, errcodes.IntegrityViolation) {
				v.guard.Trip(ctx, err)
			}
			return report, err
		}

		report.Entries += len(page)
		report.LastID = page[len(page)-1].ID
	}

	metrics.AuditVerifiedEntries.Set(float64(report.Entries))
	logger(ctx).Info("audit chain verified",
		slog.Int("entries", report.Entries),
		slog.Int64("last-id", report.LastID),
	)

	return report, nil
}
