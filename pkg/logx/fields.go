package logx

const (
	FieldAccountID       = "account-id"
	FieldActorID         = "actor-id"
	FieldAmount          = "amount"
	FieldAppName         = "app-name"
	FieldAppVersion      = "app-version"
	FieldDealID          = "deal-id"
	FieldDurationMs      = "duration-ms"
	FieldError           = "error"
	FieldHTTPRequest     = "http-request"
	FieldHTTPResponse    = "http-response"
	FieldRequestBody     = "request-body"
	FieldRequestID       = "request-id"
	FieldResponseBody    = "response-body"
	FieldResponseHeaders = "response-headers"
	FieldResponseStatus  = "response-status"
	FieldStack           = "stack"
	FieldTraceID         = "trace-id"
	FieldUserID          = "user-id"
)
