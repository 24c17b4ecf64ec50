package audit

import (
	"context"
	"fmt"

	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/repository"
)

const MaxExportLimit = 1000

// Exporter отдаёт упорядоченные по id записи журнала, глобально или по одному участнику.
type Exporter struct {
	txm          repository.TxManager
	readAttempts uint64
}

func NewExporter(txm repository.TxManager) *Exporter {
	return &Exporter{
		txm:          txm,
		readAttempts: 3, //nolint:mnd
	}
}

func (e *Exporter) WithReadAttempts(attempts uint64) *Exporter {
	e.readAttempts = attempts
	return e
}

func (e *Exporter) Export(ctx context.Context, afterID int64, limit int) ([]entity.AuditEntry, error) {
	var entries []entity.AuditEntry

	err := repository.Read(ctx, e.txm, e.readAttempts, func(ctx context.Context, tx repository.Tx) error {
		var err error
		entries, err = tx.AuditLog().List(ctx, afterID, clampLimit(limit))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("auditLog.List: %w", err)
	}

	return entries, nil
}

// ExportByActor отдаёт записи одного участника. Для проверки цепочки нужен глобальный Export:
// prev_hash записи ссылается на предыдущую запись журнала, а не участника.
func (e *Exporter) ExportByActor(ctx context.Context, actorID, afterID int64, limit int) ([]entity.AuditEntry, error) {
	var entries []entity.AuditEntry

	err := repository.Read(ctx, e.txm, e.readAttempts, func(ctx context.Context, tx repository.Tx) error {
		var err error
		entries, err = tx.AuditLog().ListByActor(ctx, actorID, afterID, clampLimit(limit))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("auditLog.ListByActor: %w", err)
	}

	return entries, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxExportLimit {
		return MaxExportLimit
	}

	return limit
}
