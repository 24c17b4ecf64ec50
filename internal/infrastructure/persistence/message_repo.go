package persistence

import (
	"context"

	"github.com/jmoiron/sqlx"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/pkg/errcodes"
)

type DealMessageRepository struct {
	tx *sqlx.Tx
}

func (r *DealMessageRepository) Create(ctx context.Context, msg *entity.DealMessage) error {
	query := `
		INSERT INTO deal_messages (deal_id, sender_id, text, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, created_at`

	if err := r.tx.QueryRowxContext(ctx, query, msg.DealID, msg.SenderID, msg.Text).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to create deal message")
	}

	return nil
}

func (r *DealMessageRepository) ListByDeal(ctx context.Context, dealID int64) ([]entity.DealMessage, error) {
	query := `SELECT id, deal_id, sender_id, text, created_at FROM deal_messages WHERE deal_id = $1 ORDER BY id ASC`

	var schemas []dealMessageSchema
	if err := r.tx.SelectContext(ctx, &schemas, query, dealID); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list deal messages")
	}

	result := make([]entity.DealMessage, 0, len(schemas))
	for i := range schemas {
		result = append(result, schemas[i].toDomain())
	}

	return result, nil
}
