package account

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

type authorizer interface {
	Authorize(ctx context.Context, actorID int64, pin string, required value.AdminRole) (*entity.AdminGrant, error)
}

type Service struct {
	txm          repository.TxManager
	auth         authorizer
	readAttempts uint64
}

func NewService(txm repository.TxManager, auth authorizer) *Service {
	return &Service{
		txm:          txm,
		auth:         auth,
		readAttempts: 3, //nolint:mnd
	}
}

func (s *Service) WithReadAttempts(attempts uint64) *Service {
	s.readAttempts = attempts
	return s
}

// Register создаёт счёт при первом обращении пользователя, иначе обновляет имя.
func (s *Service) Register(ctx context.Context, profile entity.Profile) (*entity.Account, error) {
	if profile.ID <= 0 {
		return nil, domain.NewError(errcodes.InvalidUserID, "account id must be positive")
	}

	var account *entity.Account

	err := s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		account, err = tx.Accounts().Upsert(ctx, profile)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("accounts.Upsert: %w", err)
	}

	return account, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Account, error) {
	var account *entity.Account

	err := repository.Read(ctx, s.txm, s.readAttempts, func(ctx context.Context, tx repository.Tx) error {
		var err error
		account, err = tx.Accounts().Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("accounts.Get: %w", err)
	}

	return account, nil
}

type BanCommand struct {
	AccountID int64
	AdminID   int64
	Pin       string
	Banned    bool
}

// SetBanned блокирует или разблокирует счёт. Только для super_admin.
func (s *Service) SetBanned(ctx context.Context, cmd BanCommand) (*entity.Account, error) {
	if _, err := s.auth.Authorize(ctx, cmd.AdminID, cmd.Pin, value.AdminRoleSuperAdmin); err != nil {
		return nil, fmt.Errorf("auth.Authorize: %w", err)
	}

	var account *entity.Account

	err := s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.Accounts().SetBanned(ctx, cmd.AccountID, cmd.Banned); err != nil {
			return err
		}

		var err error
		account, err = tx.Accounts().Get(ctx, cmd.AccountID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("accounts.SetBanned: %w", err)
	}

	logger(ctx).Info("account ban state changed",
		slog.Int64(logx.FieldAccountID, cmd.AccountID),
		slog.Int64("admin-id", cmd.AdminID),
		slog.Bool("banned", cmd.Banned),
	)

	return account, nil
}
