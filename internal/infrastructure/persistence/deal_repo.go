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

const dealColumns = `id, seller_id, buyer_id, amount, description, status, created_at, updated_at`

type DealRepository struct {
	tx *sqlx.Tx
}

func (r *DealRepository) Create(ctx context.Context, deal *entity.Deal) error {
	query := `
		INSERT INTO deals (seller_id, buyer_id, amount, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id, created_at, updated_at`

	s := fromDeal(deal)

	row := r.tx.QueryRowxContext(ctx, query, s.SellerID, s.BuyerID, s.Amount, s.Description, s.Status)
	if err := row.Scan(&deal.ID, &deal.CreatedAt, &deal.UpdatedAt); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to create deal")
	}

	return nil
}

func (r *DealRepository) Get(ctx context.Context, id int64) (*entity.Deal, error) {
	return r.get(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id)
}

func (r *DealRepository) GetForUpdate(ctx context.Context, id int64) (*entity.Deal, error) {
	return r.get(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1 FOR UPDATE`, id)
}

func (r *DealRepository) get(ctx context.Context, query string, id int64) (*entity.Deal, error) {
	var schema dealSchema
	if err := r.tx.GetContext(ctx, &schema, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(errcodes.NotFound, fmt.Sprintf("deal %d not found", id))
		}

		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get deal")
	}

	deal, err := schema.toDomain()
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "corrupted deal row")
	}

	return deal, nil
}

func (r *DealRepository) Update(ctx context.Context, deal *entity.Deal) error {
	query := `
		UPDATE deals SET
			status = :status,
			buyer_id = :buyer_id,
			updated_at = now()
		WHERE id = :id`

	res, err := r.tx.NamedExecContext(ctx, query, fromDeal(deal))
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to update deal")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to check rows")
	}

	if rows == 0 {
		return domain.NewError(errcodes.NotFound, fmt.Sprintf("deal %d not found", deal.ID))
	}

	return nil
}

func (r *DealRepository) ListActiveByAccount(ctx context.Context, accountID int64) ([]entity.Deal, error) {
	query := `
		SELECT ` + dealColumns + ` FROM deals
		WHERE (seller_id = $1 OR buyer_id = $1)
		  AND status NOT IN ($2, $3)
		ORDER BY id DESC`

	var schemas []dealSchema
	err := r.tx.SelectContext(ctx, &schemas, query, accountID,
		string(value.DealStatusCompleted), string(value.DealStatusCanceled))
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list deals")
	}

	result := make([]entity.Deal, 0, len(schemas))
	for i := range schemas {
		deal, err := schemas[i].toDomain()
		if err != nil {
			return nil, domain.WrapError(err, errcodes.InternalServerError, "corrupted deal row")
		}

		result = append(result, *deal)
	}

	return result, nil
}
