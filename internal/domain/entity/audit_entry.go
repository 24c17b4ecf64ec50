package entity

import (
	"time"

	"tg_escrow/internal/domain/value"
)

// AuditEntry — звено хеш-цепочки. После вставки не изменяется.
type AuditEntry struct {
	ID        int64
	ActorID   int64
	Action    value.AuditAction
	Amount    value.Cents
	Details   string
	PrevHash  string
	Hash      string
	CreatedAt time.Time
}
