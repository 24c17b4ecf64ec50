package repository

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"tg_escrow/internal/domain"
	"tg_escrow/pkg/errcodes"
)

// Read выполняет fn только на чтение и повторяет её при инфраструктурных ошибках.
// Доменные ошибки (NotFound и т.п.) не повторяются. Для записи не использовать:
// повтор финансовой операции может применить её дважды.
func Read(ctx context.Context, txm TxManager, attempts uint64, fn func(ctx context.Context, tx Tx) error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), attempts), ctx)

	return backoff.Retry(func() error {
		err := txm.WithinTx(ctx, fn)
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}

		return err
	}, policy)
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	code, ok := domain.GetCode(err)

	return !ok || code == errcodes.InternalServerError
}
