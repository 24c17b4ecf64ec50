// Package repository описывает порты хранилища. Все операции движка выполняются
// внутри одной транзакции (unit of work), которую открывает TxManager.
//
// Порядок блокировок во всех операциях: строка сделки, затем строки счетов по
// возрастанию id, затем хвост журнала аудита.
package repository

import (
	"context"

	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/value"
)

type Accounts interface {
	// Upsert создаёт счёт или обновляет отображаемое имя существующего.
	Upsert(ctx context.Context, profile entity.Profile) (*entity.Account, error)
	Get(ctx context.Context, id int64) (*entity.Account, error)
	// GetForUpdate берёт эксклюзивную блокировку строки до конца транзакции.
	GetForUpdate(ctx context.Context, id int64) (*entity.Account, error)
	UpdateBalance(ctx context.Context, id int64, balance value.Cents) error
	AddReputation(ctx context.Context, id int64, stars value.Stars) error
	SetBanned(ctx context.Context, id int64, banned bool) error
}

type Deals interface {
	Create(ctx context.Context, deal *entity.Deal) error
	Get(ctx context.Context, id int64) (*entity.Deal, error)
	GetForUpdate(ctx context.Context, id int64) (*entity.Deal, error)
	// Update сохраняет статус и покупателя. Сумма и продавец не меняются.
	Update(ctx context.Context, deal *entity.Deal) error
	ListActiveByAccount(ctx context.Context, accountID int64) ([]entity.Deal, error)
}

type AuditLog interface {
	// LockTail сериализует все добавления в журнал и возвращает последнюю запись (nil для пустого журнала).
	LockTail(ctx context.Context) (*entity.AuditEntry, error)
	Insert(ctx context.Context, entry *entity.AuditEntry) error
	ExistsByDetails(ctx context.Context, action value.AuditAction, details string) (bool, error)
	List(ctx context.Context, afterID int64, limit int) ([]entity.AuditEntry, error)
	ListByActor(ctx context.Context, actorID, afterID int64, limit int) ([]entity.AuditEntry, error)
}

type Reviews interface {
	Create(ctx context.Context, review *entity.Review) error
	ExistsForDeal(ctx context.Context, dealID int64) (bool, error)
}

type AdminGrants interface {
	Get(ctx context.Context, accountID int64) (*entity.AdminGrant, error)
	Upsert(ctx context.Context, grant *entity.AdminGrant) error
}

type DealMessages interface {
	Create(ctx context.Context, msg *entity.DealMessage) error
	ListByDeal(ctx context.Context, dealID int64) ([]entity.DealMessage, error)
}

// Tx — набор репозиториев, привязанных к одной транзакции.
type Tx interface {
	Accounts() Accounts
	Deals() Deals
	AuditLog() AuditLog
	Reviews() Reviews
	AdminGrants() AdminGrants
	DealMessages() DealMessages
}

// TxManager коммитит транзакцию, если fn вернула nil, и откатывает её при ошибке или панике.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
