package persistence

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/pkg/errcodes"
)

type ReviewRepository struct {
	tx *sqlx.Tx
}

// Create опирается на уникальный индекс по deal_id: второй отзыв на сделку невозможен даже при гонке.
func (r *ReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	query := `
		INSERT INTO reviews (deal_id, reviewer_id, target_id, stars, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, created_at`

	row := r.tx.QueryRowxContext(ctx, query, review.DealID, review.ReviewerID, review.TargetID, int(review.Stars))
	if err := row.Scan(&review.ID, &review.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(errcodes.AlreadyReviewed, fmt.Sprintf("deal %d already reviewed", review.DealID))
		}

		return domain.WrapError(err, errcodes.InternalServerError, "failed to create review")
	}

	return nil
}

func (r *ReviewRepository) ExistsForDeal(ctx context.Context, dealID int64) (bool, error) {
	var exists bool
	if err := r.tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM reviews WHERE deal_id = $1)`, dealID); err != nil {
		return false, domain.WrapError(err, errcodes.InternalServerError, "failed to check review")
	}

	return exists, nil
}
