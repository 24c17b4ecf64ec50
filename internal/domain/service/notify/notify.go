// Package notify описывает порт уведомлений. Уведомления отправляются после
// коммита и никогда не влияют на результат финансовой операции.
package notify

import (
	"context"

	"tg_escrow/internal/domain/entity"
)

type Notifier interface {
	Notify(ctx context.Context, notifications ...entity.Notification)
}

type Nop struct{}

func (Nop) Notify(context.Context, ...entity.Notification) {}
