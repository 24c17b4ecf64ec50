package reply

import (
	"context"
	"errors"
	"net/http"

	"git.appkode.ru/pub/go/failure"
	jsoniter "github.com/json-iterator/go"

	"tg_escrow/pkg/contextx"
	"tg_escrow/pkg/errcodes"
	"tg_escrow/pkg/logx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	SupportID string `json:"supportId"`
}

func (e *errorResponse) WithDefaultCode(code failure.ErrorCode) {
	if e.Code == "" {
		e.Code = code.String()
	}
}

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// codedError — ошибка с прикладным кодом (domain.AppError).
type codedError interface {
	error
	ErrorCode() failure.ErrorCode
}

var codeStatuses = map[failure.ErrorCode]int{ //nolint:gochecknoglobals
	errcodes.NotFound:               http.StatusNotFound,
	errcodes.ValidationError:        http.StatusBadRequest,
	errcodes.InvalidUserID:          http.StatusBadRequest,
	errcodes.InvalidDealID:          http.StatusBadRequest,
	errcodes.InvalidPaging:          http.StatusBadRequest,
	errcodes.InvalidWebhookPayload:  http.StatusBadRequest,
	errcodes.InvalidDescription:     http.StatusUnprocessableEntity,
	errcodes.InvalidAmount:          http.StatusUnprocessableEntity,
	errcodes.InvalidRating:          http.StatusUnprocessableEntity,
	errcodes.InvalidWinner:          http.StatusUnprocessableEntity,
	errcodes.InvalidRole:            http.StatusUnprocessableEntity,
	errcodes.SelfTradeForbidden:     http.StatusUnprocessableEntity,
	errcodes.Unauthorized:           http.StatusUnauthorized,
	errcodes.InvalidSignature:       http.StatusUnauthorized,
	errcodes.Forbidden:              http.StatusForbidden,
	errcodes.NotAuthorized:          http.StatusForbidden,
	errcodes.NotAdmin:               http.StatusForbidden,
	errcodes.NoPermission:           http.StatusForbidden,
	errcodes.WrongSecret:            http.StatusForbidden,
	errcodes.AccountBanned:          http.StatusForbidden,
	errcodes.WrongStatus:            http.StatusConflict,
	errcodes.DealNotPending:         http.StatusConflict,
	errcodes.NotDispute:             http.StatusConflict,
	errcodes.AlreadyReviewed:        http.StatusConflict,
	errcodes.InsufficientFunds:      http.StatusConflict,
	errcodes.RateLimited:            http.StatusTooManyRequests,
	errcodes.RateLimiterUnavailable: http.StatusServiceUnavailable,
	errcodes.IntegrityViolation:     http.StatusServiceUnavailable,
	errcodes.TimeoutExceeded:        http.StatusGatewayTimeout,
}

func OK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}

func Created(w http.ResponseWriter) {
	w.WriteHeader(http.StatusCreated)
}

func JSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger(ctx).Error("json.Encode", logx.Error(err))
	}
}

func Error(ctx context.Context, w http.ResponseWriter, err error) {
	logger(ctx).Error("error", logx.Error(err))

	response := errorResponse{
		Code:      failure.Code(err).String(),
		Message:   failure.Description(err),
		SupportID: supportID(ctx),
	}

	var coded codedError
	if errors.As(err, &coded) {
		if status, ok := codeStatuses[coded.ErrorCode()]; ok {
			response.Code = coded.ErrorCode().String()
			response.Message = coded.Error()
			JSON(ctx, w, status, response)

			return
		}
	}

	switch {
	case failure.IsInvalidArgumentError(err):
		response.WithDefaultCode(errcodes.ValidationError)
		JSON(ctx, w, http.StatusBadRequest, response)
	case failure.IsNotFoundError(err):
		response.WithDefaultCode(errcodes.NotFound)
		JSON(ctx, w, http.StatusNotFound, response)
	case failure.IsUnauthorizedError(err):
		JSON(ctx, w, http.StatusUnauthorized, response)
	case failure.IsForbiddenError(err):
		response.WithDefaultCode(errcodes.Forbidden)
		JSON(ctx, w, http.StatusForbidden, response)
	case failure.IsConflictError(err):
		JSON(ctx, w, http.StatusConflict, response)
	case failure.IsUnprocessableEntityError(err):
		JSON(ctx, w, http.StatusUnprocessableEntity, response)
	default:
		response.WithDefaultCode(errcodes.InternalServerError)
		JSON(ctx, w, http.StatusInternalServerError, response)
	}
}

func supportID(ctx context.Context) string {
	traceID, err := contextx.TraceIDFromContext(ctx)
	if err != nil {
		return "unsupported"
	}

	return traceID.String()
}
