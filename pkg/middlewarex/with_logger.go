package middlewarex

import (
	"log/slog"
	"net/http"

	"tg_escrow/pkg/contextx"
	"tg_escrow/pkg/logx"
)

// Logger кладёт в контекст логгер с trace id запроса. Ставится после TraceID.
func Logger(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			l := log
			if traceID, err := contextx.TraceIDFromContext(ctx); err == nil {
				l = log.With(slog.String(logx.FieldTraceID, traceID.String()))
			}

			next.ServeHTTP(w, r.WithContext(contextx.WithLogger(ctx, l)))
		})
	}
}
