package rating

import (
	"context"
	"fmt"
	"log/slog"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/repository"
	"tg_escrow/internal/domain/value"
	"tg_escrow/pkg/errcodes"
	"tg_escrow/pkg/logx"
)

type Result struct {
	Review *entity.Review
	Seller *entity.Account
	// Display — средняя оценка продавца с одним знаком после запятой.
	Display string
}

type Service struct {
	txm repository.TxManager
}

func NewService(txm repository.TxManager) *Service {
	return &Service{txm: txm}
}

// Rate сохраняет отзыв покупателя о завершённой сделке. Продавец берётся из сделки.
func (s *Service) Rate(ctx context.Context, dealID, buyerID int64, stars int) (Result, error) {
	st, err := value.NewStars(stars)
	if err != nil {
		return Result{}, domain.WrapError(err, errcodes.InvalidRating, "invalid rating")
	}

	var result Result

	err = s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		// Блокировка сделки сериализует параллельные попытки оценить одну и ту же сделку.
		deal, err := tx.Deals().GetForUpdate(ctx, dealID)
		if err != nil {
			return fmt.Errorf("deals.GetForUpdate: %w", err)
		}

		if !deal.IsBuyer(buyerID) {
			return domain.NewError(errcodes.NotAuthorized, "only the buyer can rate the deal")
		}

		if deal.Status != value.DealStatusCompleted {
			return domain.NewError(errcodes.WrongStatus, fmt.Sprintf("deal %d is %s", deal.ID, deal.Status))
		}

		exists, err := tx.Reviews().ExistsForDeal(ctx, deal.ID)
		if err != nil {
			return fmt.Errorf("reviews.ExistsForDeal: %w", err)
		}

		if exists {
			return domain.NewError(errcodes.AlreadyReviewed, fmt.Sprintf("deal %d already reviewed", deal.ID))
		}

		review := &entity.Review{
			DealID:     deal.ID,
			ReviewerID: buyerID,
			TargetID:   deal.SellerID,
			Stars:      st,
		}

		if err = tx.Reviews().Create(ctx, review); err != nil {
			return fmt.Errorf("reviews.Create: %w", err)
		}

		if err = tx.Accounts().AddReputation(ctx, deal.SellerID, st); err != nil {
			return fmt.Errorf("accounts.AddReputation: %w", err)
		}

		seller, err := tx.Accounts().Get(ctx, deal.SellerID)
		if err != nil {
			return fmt.Errorf("accounts.Get: %w", err)
		}

		result = Result{
			Review:  review,
			Seller:  seller,
			Display: seller.Reputation.String(),
		}

		return nil
	})
	if err != nil {
		return Result{}, err
	}

	logger(ctx).Info("deal rated",
		slog.Int64(logx.FieldDealID, dealID),
		slog.Int64("seller-id", result.Seller.ID),
		slog.Int("stars", stars),
		slog.String("rating", result.Display),
	)

	return result, nil
}
