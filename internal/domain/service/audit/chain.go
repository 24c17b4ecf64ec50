// Package audit ведёт журнал аудита в виде хеш-цепочки: каждая запись хранит
// хеш предыдущей, поэтому изменение любой исторической записи обнаруживается
// при повторном вычислении цепочки от генезиса.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/repository"
	"tg_escrow/internal/domain/value"
	"tg_escrow/pkg/errcodes"
)

// GenesisHash — prev_hash первой записи журнала.
var GenesisHash = strings.Repeat("0", sha256.Size*2) //nolint:gochecknoglobals

// Record — поля новой записи, которые задаёт вызывающий.
type Record struct {
	ActorID int64
	Action  value.AuditAction
	Amount  value.Cents
	Details string
}

// Digest = sha256(prevHash | actor | action | amount | details). details идёт последним,
// поэтому разделитель внутри details не делает кодирование неоднозначным.
func Digest(prevHash string, actorID int64, action value.AuditAction, amount value.Cents, details string) string {
	var b strings.Builder

	b.WriteString(prevHash)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(actorID, 10))
	b.WriteByte('|')
	b.WriteString(action.String())
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(amount.Int64(), 10))
	b.WriteByte('|')
	b.WriteString(details)

	sum := sha256.Sum256([]byte(b.String()))

	return hex.EncodeToString(sum[:])
}

// EntryDigest пересчитывает хеш записи из её собственных полей.
func EntryDigest(e *entity.AuditEntry) string {
	return Digest(e.PrevHash, e.ActorID, e.Action, e.Amount, e.Details)
}

type Chain struct {
	guard *Guard
	now   func() time.Time
}

func NewChain(guard *Guard) *Chain {
	return &Chain{
		guard: guard,
		now:   time.Now,
	}
}

func (c *Chain) WithClock(now func() time.Time) *Chain {
	c.now = now
	return c
}

func (c *Chain) Guard() *Guard {
	return c.guard
}

// Append добавляет запись в конец цепочки в рамках транзакции вызывающего.
// Хвост журнала блокируется до коммита, поэтому две записи не могут ссылаться на один prev_hash.
func (c *Chain) Append(ctx context.Context, log repository.AuditLog, rec Record) (*entity.AuditEntry, error) {
	if err := c.guard.Check(); err != nil {
		return nil, err
	}

	tail, err := log.LockTail(ctx)
	if err != nil {
		return nil, fmt.Errorf("log.LockTail: %w", err)
	}

	prevHash := GenesisHash

	if tail != nil {
		if EntryDigest(tail) != tail.Hash {
			violation := integrityError(tail.ID, "stored hash does not match its fields")
			c.guard.Trip(ctx, violation)

			return nil, violation
		}

		prevHash = tail.Hash
	}

	entry := &entity.AuditEntry{
		ActorID:   rec.ActorID,
		Action:    rec.Action,
		Amount:    rec.Amount,
		Details:   rec.Details,
		PrevHash:  prevHash,
		Hash:      Digest(prevHash, rec.ActorID, rec.Action, rec.Amount, rec.Details),
		CreatedAt: c.now().UTC(),
	}

	if err = log.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("log.Insert: %w", err)
	}

	return entry, nil
}

// Verify проверяет участок цепочки, начинающийся после записи с хешем prevHash.
// Возвращает хеш последней проверенной записи для проверки следующей страницы.
func Verify(entries []entity.AuditEntry, prevHash string) (string, error) {
	for i := range entries {
		e := &entries[i]

		if e.PrevHash != prevHash {
			return prevHash, integrityError(e.ID, "prev_hash does not match preceding entry")
		}

		if EntryDigest(e) != e.Hash {
			return prevHash, integrityError(e.ID, "stored hash does not match its fields")
		}

		prevHash = e.Hash
	}

	return prevHash, nil
}

func integrityError(entryID int64, reason string) *domain.AppError {
	return domain.NewError(errcodes.IntegrityViolation, fmt.Sprintf("audit entry %d: %s", entryID, reason))
}
