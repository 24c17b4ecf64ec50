// Package inmemory — хранилище в памяти процесса. Транзакции выполняются по одной
// под общим мьютексом, откат восстанавливает снимок состояния.
package inmemory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/repository"
)

type state struct {
	accounts map[int64]entity.Account
	deals    map[int64]entity.Deal
	audit    []entity.AuditEntry
	reviews  map[int64]entity.Review
	grants   map[int64]entity.AdminGrant
	messages []entity.DealMessage

	dealSeq    int64
	auditSeq   int64
	reviewSeq  int64
	messageSeq int64
}

func (s state) clone() state {
	c := s
	c.accounts = maps.Clone(s.accounts)
	c.deals = maps.Clone(s.deals)
	c.audit = slices.Clone(s.audit)
	c.reviews = maps.Clone(s.reviews)
	c.grants = maps.Clone(s.grants)
	c.messages = slices.Clone(s.messages)

	return c
}

type Store struct {
	mu    sync.Mutex
	state state
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		state: state{
			accounts: make(map[int64]entity.Account),
			deals:    make(map[int64]entity.Deal),
			reviews:  make(map[int64]entity.Review),
			grants:   make(map[int64]entity.AdminGrant),
		},
		now: time.Now,
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()

	defer func() {
		if p := recover(); p != nil {
			s.state = snapshot
			panic(p)
		}
	}()

	if err = fn(ctx, &tx{st: &s.state, now: s.now}); err != nil {
		s.state = snapshot
		return err
	}

	return nil
}

// PutAccount записывает счёт напрямую, минуя журнал. Для начального наполнения и тестов.
func (s *Store) PutAccount(account entity.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.accounts[account.ID] = account
}

func (s *Store) PutAdminGrant(grant entity.AdminGrant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.grants[grant.AccountID] = grant
}

func (s *Store) Account(id int64) (entity.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.state.accounts[id]

	return a, ok
}

func (s *Store) AuditEntries() []entity.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.state.audit)
}

// TotalBalance — сумма балансов всех счетов, включая эскроу.
func (s *Store) TotalBalance() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, a := range s.state.accounts {
		total += a.Balance.Int64()
	}

	return total
}

// UpdateAuditEntry меняет запись журнала в обход цепочки. Нужен для проверки обнаружения подделок.
func (s *Store) UpdateAuditEntry(id int64, mutate func(*entity.AuditEntry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.audit {
		if s.state.audit[i].ID == id {
			mutate(&s.state.audit[i])
			return true
		}
	}

	return false
}

type tx struct {
	st  *state
	now func() time.Time
}

func (t *tx) Accounts() repository.Accounts         { return accounts{t} }
func (t *tx) Deals() repository.Deals               { return deals{t} }
func (t *tx) AuditLog() repository.AuditLog         { return auditLog{t} }
func (t *tx) Reviews() repository.Reviews           { return reviews{t} }
func (t *tx) AdminGrants() repository.AdminGrants   { return adminGrants{t} }
func (t *tx) DealMessages() repository.DealMessages { return dealMessages{t} }
