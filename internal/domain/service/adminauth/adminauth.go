// Package adminauth проверяет привилегированного пользователя: наличие роли,
// её уровень и PIN. PIN хранится как bcrypt-хеш, сравнение выполняется за постоянное время.
package adminauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/repository"
	"tg_escrow/internal/domain/value"
	"tg_escrow/pkg/errcodes"
	"tg_escrow/pkg/logx"
)

const (
	ActionPinAttempt = "admin_pin"

	minPinLength = 4
)

type limiter interface {
	Allow(ctx context.Context, actorID int64, action string) error
}

type noLimit struct{}

func (noLimit) Allow(context.Context, int64, string) error { return nil }

type Authorizer struct {
	txm          repository.TxManager
	limiter      limiter
	readAttempts uint64
}

func NewAuthorizer(txm repository.TxManager) *Authorizer {
	return &Authorizer{
		txm:          txm,
		limiter:      noLimit{},
		readAttempts: 3, //nolint:mnd
	}
}

// WithLimiter ограничивает перебор PIN.
func (a *Authorizer) WithLimiter(l limiter) *Authorizer {
	a.limiter = l
	return a
}

func (a *Authorizer) WithReadAttempts(attempts uint64) *Authorizer {
	a.readAttempts = attempts
	return a
}

// Authorize возвращает NotAdmin, NoPermission или WrongSecret. Проверки выполняются в этом порядке.
func (a *Authorizer) Authorize(ctx context.Context, actorID int64, pin string, required value.AdminRole) (*entity.AdminGrant, error) {
	var grant *entity.AdminGrant

	err := repository.Read(ctx, a.txm, a.readAttempts, func(ctx context.Context, tx repository.Tx) error {
		var err error
		grant, err = tx.AdminGrants().Get(ctx, actorID)
		return err
	})
	if err != nil {
		if domain.HasCode(err, errcodes.NotFound) {
			return nil, domain.NewError(errcodes.NotAdmin, "actor is not an admin")
		}
		return nil, fmt.Errorf("adminGrants.Get: %w", err)
	}

	if !grant.Role.Satisfies(required) {
		return nil, domain.NewError(errcodes.NoPermission,
			fmt.Sprintf("role %s does not satisfy %s", grant.Role, required))
	}

	if err = a.limiter.Allow(ctx, actorID, ActionPinAttempt); err != nil {
		return nil, err
	}

	if err = bcrypt.CompareHashAndPassword(grant.PinHash, []byte(pin)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			logger(ctx).Warn("wrong admin pin", slog.Int64(logx.FieldActorID, actorID))
			return nil, domain.NewError(errcodes.WrongSecret, "wrong pin")
		}
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to compare pin")
	}

	return grant, nil
}

// HashPin возвращает bcrypt-хеш PIN для хранения в AdminGrant.
func HashPin(pin string) ([]byte, error) {
	if len(pin) < minPinLength {
		return nil, fmt.Errorf("pin must be at least %d characters", minPinLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt.GenerateFromPassword: %w", err)
	}

	return hash, nil
}

// Grant выдаёт или меняет роль и PIN администратора.
func (a *Authorizer) Grant(ctx context.Context, accountID int64, role value.AdminRole, pin string) (*entity.AdminGrant, error) {
	hash, err := HashPin(pin)
	if err != nil {
		return nil, domain.WrapError(err, errcodes.ValidationError, "invalid pin")
	}

	grant := &entity.AdminGrant{
		AccountID: accountID,
		Role:      role,
		PinHash:   hash,
	}

	err = a.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().Get(ctx, accountID); err != nil {
			return fmt.Errorf("accounts.Get: %w", err)
		}

		return tx.AdminGrants().Upsert(ctx, grant)
	})
	if err != nil {
		return nil, err
	}

	logger(ctx).Info("admin granted", slog.Int64(logx.FieldAccountID, accountID), slog.String("role", role.String()))

	return grant, nil
}
