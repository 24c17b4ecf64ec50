package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/value"
	"tg_escrow/pkg/errcodes"
)

const accountColumns = `id, username, full_name, balance, rating_sum, rating_count, is_banned, is_admin, created_at, updated_at`

type AccountRepository struct {
	tx *sqlx.Tx
}

func (r *AccountRepository) Upsert(ctx context.Context, p entity.Profile) (*entity.Account, error) {
	query := `
		INSERT INTO accounts (id, username, full_name, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			full_name = EXCLUDED.full_name,
			updated_at = now()
		RETURNING ` + accountColumns

	var schema accountSchema
	if err := r.tx.GetContext(ctx, &schema, query, p.ID, p.Username, p.FullName); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to upsert account")
	}

	return schema.toDomain(), nil
}

func (r *AccountRepository) Get(ctx context.Context, id int64) (*entity.Account, error) {
	return r.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// GetForUpdate — SELECT ... FOR UPDATE, блокировка держится до конца транзакции.
func (r *AccountRepository) GetForUpdate(ctx context.Context, id int64) (*entity.Account, error) {
	return r.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
}

func (r *AccountRepository) get(ctx context.Context, query string, id int64) (*entity.Account, error) {
	var schema accountSchema
	if err := r.tx.GetContext(ctx, &schema, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(errcodes.NotFound, fmt.Sprintf("account %d not found", id))
		}

		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get account")
	}

	return schema.toDomain(), nil
}

func (r *AccountRepository) UpdateBalance(ctx context.Context, id int64, balance value.Cents) error {
	return r.exec(ctx, "update balance", id,
		`UPDATE accounts SET balance = $1, updated_at = now() WHERE id = $2`, balance.Int64(), id)
}

func (r *AccountRepository) AddReputation(ctx context.Context, id int64, stars value.Stars) error {
	return r.exec(ctx, "add reputation", id, `
		UPDATE accounts
		SET rating_sum = rating_sum + $1,
		    rating_count = rating_count + 1,
		    updated_at = now()
		WHERE id = $2`, int64(stars), id)
}

func (r *AccountRepository) SetBanned(ctx context.Context, id int64, banned bool) error {
	return r.exec(ctx, "set banned", id,
		`UPDATE accounts SET is_banned = $1, updated_at = now() WHERE id = $2`, banned, id)
}

func (r *AccountRepository) exec(ctx context.Context, op string, id int64, query string, args ...any) error {
	res, err := r.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to "+op)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to check rows")
	}

	if rows == 0 {
		return domain.NewError(errcodes.NotFound, fmt.Sprintf("account %d not found", id))
	}

	return nil
}
