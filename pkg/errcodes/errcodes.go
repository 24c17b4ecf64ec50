package errcodes

import "git.appkode.ru/pub/go/failure"

const (
	InternalServerError failure.ErrorCode = "InternalServerError"
	TimeoutExceeded     failure.ErrorCode = "TimeoutExceeded"
	Forbidden           failure.ErrorCode = "Forbidden"
	ValidationError     failure.ErrorCode = "ValidationError"
	Unauthorized        failure.ErrorCode = "Unauthorized"
	NotFound            failure.ErrorCode = "NotFound"
	InvalidUserID       failure.ErrorCode = "InvalidUserID"
	InvalidDealID       failure.ErrorCode = "InvalidDealID"
	InvalidPaging       failure.ErrorCode = "InvalidPaging"
	InvalidDescription  failure.ErrorCode = "InvalidDescription"

	// Сделки
	WrongStatus        failure.ErrorCode = "WrongStatus"
	NotAuthorized      failure.ErrorCode = "NotAuthorized"
	DealNotPending     failure.ErrorCode = "DealNotPending"
	SelfTradeForbidden failure.ErrorCode = "SelfTradeForbidden"

	// Баланс
	InsufficientFunds failure.ErrorCode = "InsufficientFunds"
	InvalidAmount     failure.ErrorCode = "InvalidAmount"
	AccountBanned     failure.ErrorCode = "AccountBanned"

	// Отзывы
	AlreadyReviewed failure.ErrorCode = "AlreadyReviewed"
	InvalidRating   failure.ErrorCode = "InvalidRating"

	// Арбитраж
	NotDispute    failure.ErrorCode = "NotDispute"
	InvalidWinner failure.ErrorCode = "InvalidWinner"
	NotAdmin      failure.ErrorCode = "NotAdmin"
	NoPermission  failure.ErrorCode = "NoPermission"
	WrongSecret   failure.ErrorCode = "WrongSecret"
	InvalidRole   failure.ErrorCode = "InvalidRole"

	// Аудит: ошибка целостности цепочки, все финансовые операции останавливаются
	IntegrityViolation failure.ErrorCode = "IntegrityViolation"

	// Защита от спама и вебхуки
	RateLimited            failure.ErrorCode = "RateLimited"
	RateLimiterUnavailable failure.ErrorCode = "RateLimiterUnavailable"
	InvalidSignature       failure.ErrorCode = "InvalidSignature"
	InvalidWebhookPayload  failure.ErrorCode = "InvalidWebhookPayload"
)
