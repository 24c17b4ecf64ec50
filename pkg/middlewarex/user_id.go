package middlewarex

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"git.appkode.ru/pub/go/failure"

	"tg_escrow/pkg/contextx"
	"tg_escrow/pkg/errcodes"
	"tg_escrow/pkg/httpx/reply"
	"tg_escrow/pkg/logx"
)

const HeaderNameUserID = "X-User-Id"

type invalidUserIDError struct {
	raw string
}

func (e invalidUserIDError) Error() string {
	return fmt.Sprintf("invalid user id %q", e.raw)
}

func (invalidUserIDError) ErrorCode() failure.ErrorCode {
	return errcodes.InvalidUserID
}

// UserID кладёт id пользователя из заголовка в контекст. Без заголовка запрос проходит дальше,
// наличие актора проверяет хэндлер. Нечисловой или неположительный id отклоняется с 400.
func UserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(HeaderNameUserID)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			reply.Error(r.Context(), w, invalidUserIDError{raw: raw})
			return
		}

		ctx := contextx.WithUserID(r.Context(), contextx.UserID(id))
		ctx = contextx.WithLogger(ctx, logger(ctx).With(slog.Int64(logx.FieldUserID, id)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
