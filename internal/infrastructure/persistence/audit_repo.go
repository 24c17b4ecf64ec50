package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/value"
	"tg_escrow/pkg/errcodes"
)

const auditColumns = `id, actor_id, action, amount, details, prev_hash, hash, created_at`

type AuditRepository struct {
	tx *sqlx.Tx
}

// LockTail блокирует таблицу от конкурентных вставок. SHARE ROW EXCLUSIVE конфликтует сам с собой,
// но не мешает чтению, так что проверка журнала продолжает работать.
func (r *AuditRepository) LockTail(ctx context.Context) (*entity.AuditEntry, error) {
	if _, err := r.tx.ExecContext(ctx, `LOCK TABLE audit_log IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to lock audit log")
	}

	var schema auditSchema

	err := r.tx.GetContext(ctx, &schema, `SELECT `+auditColumns+` FROM audit_log ORDER BY id DESC LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil
		}

		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to read audit tail")
	}

	tail := schema.toDomain()

	return &tail, nil
}

func (r *AuditRepository) Insert(ctx context.Context, entry *entity.AuditEntry) error {
	query := `
		INSERT INTO audit_log (actor_id, action, amount, details, prev_hash, hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	s := fromAuditEntry(entry)

	err := r.tx.QueryRowxContext(ctx, query, s.ActorID, s.Action, s.Amount, s.Details, s.PrevHash, s.Hash, s.CreatedAt).
		Scan(&entry.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(err, errcodes.InternalServerError, "duplicate external reference")
		}

		return domain.WrapError(err, errcodes.InternalServerError, "failed to insert audit entry")
	}

	return nil
}

func (r *AuditRepository) ExistsByDetails(ctx context.Context, action value.AuditAction, details string) (bool, error) {
	var exists bool

	err := r.tx.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM audit_log WHERE action = $1 AND details = $2)`, string(action), details)
	if err != nil {
		return false, domain.WrapError(err, errcodes.InternalServerError, "failed to check audit entry")
	}

	return exists, nil
}

func (r *AuditRepository) List(ctx context.Context, afterID int64, limit int) ([]entity.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_log WHERE id > $1 ORDER BY id ASC LIMIT $2`

	return r.list(ctx, query, afterID, limit)
}

func (r *AuditRepository) ListByActor(ctx context.Context, actorID, afterID int64, limit int) ([]entity.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_log WHERE actor_id = $1 AND id > $2 ORDER BY id ASC LIMIT $3`

	return r.list(ctx, query, actorID, afterID, limit)
}

func (r *AuditRepository) list(ctx context.Context, query string, args ...any) ([]entity.AuditEntry, error) {
	var schemas []auditSchema
	if err := r.tx.SelectContext(ctx, &schemas, query, args...); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list audit entries")
	}

	result := make([]entity.AuditEntry, 0, len(schemas))
	for i := range schemas {
		result = append(result, schemas[i].toDomain())
	}

	return result, nil
}
