package server

import (
	"fmt"
	"net/http"
	"strconv"

	"git.appkode.ru/pub/go/failure"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/service/audit"
	"tg_escrow/pkg/contextx"
	"tg_escrow/pkg/errcodes"
)

const (
	headerNameAdminPin = "X-Admin-Pin"

	defaultPageLimit = 100
)

// actorID — id пользователя из X-User-Id. Аутентификацию выполняет фронтенд.
func actorID(r *http.Request) (int64, error) {
	id, err := contextx.UserIDFromContext(r.Context())
	if err != nil {
		return 0, domain.WrapError(err, errcodes.Unauthorized, "X-User-Id header is required")
	}

	return int64(id), nil
}

func adminPin(r *http.Request) string {
	return r.Header.Get(headerNameAdminPin)
}

func pathID(r *http.Request, code failure.ErrorCode) (int64, error) {
	raw := r.PathValue("id")

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewError(code, fmt.Sprintf("invalid id %q", raw))
	}

	return id, nil
}

// paging читает after и limit из query.
func paging(r *http.Request) (int64, int, error) {
	q := r.URL.Query()

	var (
		afterID int64
		limit   = defaultPageLimit
		err     error
	)

	if raw := q.Get("after"); raw != "" {
		afterID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || afterID < 0 {
			return 0, 0, domain.NewError(errcodes.InvalidPaging, fmt.Sprintf("invalid after %q", raw))
		}
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > audit.MaxExportLimit {
			return 0, 0, domain.NewError(errcodes.InvalidPaging,
				fmt.Sprintf("limit must be in [1, %d]", audit.MaxExportLimit))
		}
	}

	return afterID, limit, nil
}

func requireSelf(actor, accountID int64) error {
	if actor != accountID {
		return domain.NewError(errcodes.NotAuthorized, "access to another account is forbidden")
	}

	return nil
}
