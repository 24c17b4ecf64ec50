package entity

import (
	"time"

	"tg_escrow/internal/domain/value"
)

type Review struct {
	ID         int64
	DealID     int64
	ReviewerID int64
	TargetID   int64
	Stars      value.Stars
	CreatedAt  time.Time
}
