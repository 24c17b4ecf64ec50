package server

import (
	"context"
	"fmt"
	"net/http"

	"git.appkode.ru/pub/go/failure"

	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/service/deal"
	"tg_escrow/internal/domain/service/rating"
	"tg_escrow/internal/domain/value"
	"tg_escrow/pkg/errcodes"
	"tg_escrow/pkg/httpx/reply"
	"tg_escrow/pkg/httpx/req"
	"tg_escrow/pkg/rest"
)

type dealService interface {
	Create(ctx context.Context, sellerID int64, amount value.Cents, description string) (*entity.Deal, error)
	Get(ctx context.Context, dealID int64) (*entity.Deal, error)
	Pay(ctx context.Context, dealID, buyerID int64) (*entity.Deal, error)
	MarkDelivered(ctx context.Context, dealID, sellerID int64) (*entity.Deal, error)
	ConfirmReceipt(ctx context.Context, dealID, buyerID int64) (deal.Release, error)
	OpenDispute(ctx context.Context, dealID, actorID int64) (*entity.Deal, error)
	PostMessage(ctx context.Context, dealID, senderID int64, text string) (*entity.DealMessage, error)
}

type ratingService interface {
	Rate(ctx context.Context, dealID, buyerID int64, stars int) (rating.Result, error)
}

type DealServer struct {
	dealService   dealService
	ratingService ratingService
}

func NewDealServer(dealService dealService, ratingService ratingService) DealServer {
	return DealServer{
		dealService:   dealService,
		ratingService: ratingService,
	}
}

func (s DealServer) postV1Deal(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorID(r)
	if err != nil {
		return err
	}

	var request rest.CreateDealRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	amount, err := value.ParseAmount(request.Amount)
	if err != nil {
		return failure.NewInvalidArgumentErrorFromError(
			fmt.Errorf("value.ParseAmount: %w", err),
			failure.WithCode(errcodes.InvalidAmount),
		)
	}

	created, err := s.dealService.Create(ctx, actor, amount, request.Description)
	if err != nil {
		return fmt.Errorf("dealService.Create: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, newRESTDeal(created))

	return nil
}

func (s DealServer) getV1Deal(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := pathID(r, errcodes.InvalidDealID)
	if err != nil {
		return err
	}

	found, err := s.dealService.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("dealService.Get: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTDeal(found))

	return nil
}

// dealAction — общий вид переходов, где нужны только сделка и инициатор.
func (s DealServer) dealAction(
	name string,
	f func(ctx context.Context, dealID, actorID int64) (*entity.Deal, error),
) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		ctx := r.Context()

		actor, err := actorID(r)
		if err != nil {
			return err
		}

		id, err := pathID(r, errcodes.InvalidDealID)
		if err != nil {
			return err
		}

		updated, err := f(ctx, id, actor)
		if err != nil {
			return fmt.Errorf("dealService.%s: %w", name, err)
		}

		reply.JSON(ctx, w, http.StatusOK, newRESTDeal(updated))

		return nil
	}
}

func (s DealServer) postV1DealConfirm(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorID(r)
	if err != nil {
		return err
	}

	id, err := pathID(r, errcodes.InvalidDealID)
	if err != nil {
		return err
	}

	release, err := s.dealService.ConfirmReceipt(ctx, id, actor)
	if err != nil {
		return fmt.Errorf("dealService.ConfirmReceipt: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTRelease(release))

	return nil
}

func (s DealServer) postV1DealMessage(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorID(r)
	if err != nil {
		return err
	}

	id, err := pathID(r, errcodes.InvalidDealID)
	if err != nil {
		return err
	}

	var request rest.PostMessageRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	msg, err := s.dealService.PostMessage(ctx, id, actor, request.Text)
	if err != nil {
		return fmt.Errorf("dealService.PostMessage: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, newRESTMessage(msg))

	return nil
}

func (s DealServer) postV1DealReview(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorID(r)
	if err != nil {
		return err
	}

	id, err := pathID(r, errcodes.InvalidDealID)
	if err != nil {
		return err
	}

	var request rest.ReviewRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	result, err := s.ratingService.Rate(ctx, id, actor, request.Stars)
	if err != nil {
		return fmt.Errorf("ratingService.Rate: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, newRESTReview(result))

	return nil
}
