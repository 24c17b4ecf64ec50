// Package persistence — реализация репозиториев поверх PostgreSQL (sqlx + pgx).
package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/repository"
	"tg_escrow/pkg/errcodes"
)

const uniqueViolation = "23505"

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// WithinTx открывает транзакцию READ COMMITTED. Сериализация обеспечивается блокировками строк.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger(ctx).WarnContext(ctx, "rollback failed", "error", rbErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to commit")
	}

	return nil
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) Accounts() repository.Accounts         { return &AccountRepository{tx: t.tx} }
func (t *pgTx) Deals() repository.Deals               { return &DealRepository{tx: t.tx} }
func (t *pgTx) AuditLog() repository.AuditLog         { return &AuditRepository{tx: t.tx} }
func (t *pgTx) Reviews() repository.Reviews           { return &ReviewRepository{tx: t.tx} }
func (t *pgTx) AdminGrants() repository.AdminGrants   { return &AdminGrantRepository{tx: t.tx} }
func (t *pgTx) DealMessages() repository.DealMessages { return &DealMessageRepository{tx: t.tx} }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
