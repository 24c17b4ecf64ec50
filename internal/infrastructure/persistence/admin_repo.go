package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/pkg/errcodes"
)

type AdminGrantRepository struct {
	tx *sqlx.Tx
}

func (r *AdminGrantRepository) Get(ctx context.Context, accountID int64) (*entity.AdminGrant, error) {
	var schema adminGrantSchema

	err := r.tx.GetContext(ctx, &schema,
		`SELECT account_id, role, pin_hash, created_at FROM admin_grants WHERE account_id = $1`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(errcodes.NotFound, fmt.Sprintf("admin grant for %d not found", accountID))
		}

		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get admin grant")
	}

	grant, err := schema.toDomain()
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "corrupted admin grant row")
	}

	return grant, nil
}

// Upsert также выставляет is_admin у счёта.
func (r *AdminGrantRepository) Upsert(ctx context.Context, grant *entity.AdminGrant) error {
	query := `
		INSERT INTO admin_grants (account_id, role, pin_hash, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (account_id) DO UPDATE SET
			role = EXCLUDED.role,
			pin_hash = EXCLUDED.pin_hash
		RETURNING created_at`

	if err := r.tx.GetContext(ctx, &grant.CreatedAt, query, grant.AccountID, string(grant.Role), grant.PinHash); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to upsert admin grant")
	}

	if _, err := r.tx.ExecContext(ctx,
		`UPDATE accounts SET is_admin = TRUE, updated_at = now() WHERE id = $1`, grant.AccountID); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to mark account as admin")
	}

	return nil
}
