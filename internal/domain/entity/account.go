package entity

import (
	"time"

	"tg_escrow/internal/domain/value"
)

// Account — участник сделок. ID совпадает с telegram user id.
type Account struct {
	ID         int64
	Username   string
	FullName   string
	Balance    value.Cents
	Reputation value.Reputation
	IsBanned   bool
	IsAdmin    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Profile — данные, которые фронтенд передаёт при регистрации.
type Profile struct {
	ID       int64
	Username string
	FullName string
}

func (a *Account) DisplayName() string {
	if a.Username != "" {
		return "@" + a.Username
	}

	return a.FullName
}
