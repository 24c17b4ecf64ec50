package entity

import (
	"time"

	"tg_escrow/internal/domain/value"
)

type AdminGrant struct {
	AccountID int64
	Role      value.AdminRole
	// PinHash — bcrypt-хеш, соль хранится внутри.
	PinHash   []byte
	CreatedAt time.Time
}
