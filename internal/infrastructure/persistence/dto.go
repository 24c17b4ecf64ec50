package persistence

import (
	"database/sql"
	"time"

	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/value"
)

// accountSchema — строка таблицы accounts.
type accountSchema struct {
	ID          int64     `db:"id"`
	Username    string    `db:"username"`
	FullName    string    `db:"full_name"`
	Balance     int64     `db:"balance"`
	RatingSum   int64     `db:"rating_sum"`
	RatingCount int64     `db:"rating_count"`
	IsBanned    bool      `db:"is_banned"`
	IsAdmin     bool      `db:"is_admin"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (s *accountSchema) toDomain() *entity.Account {
	return &entity.Account{
		ID:         s.ID,
		Username:   s.Username,
		FullName:   s.FullName,
		Balance:    value.Cents(s.Balance),
		Reputation: value.Reputation{Sum: s.RatingSum, Count: s.RatingCount},
		IsBanned:   s.IsBanned,
		IsAdmin:    s.IsAdmin,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

type dealSchema struct {
	ID          int64         `db:"id"`
	SellerID    int64         `db:"seller_id"`
	BuyerID     sql.NullInt64 `db:"buyer_id"`
	Amount      int64         `db:"amount"`
	Description string        `db:"description"`
	Status      string        `db:"status"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

func fromDeal(d *entity.Deal) *dealSchema {
	s := &dealSchema{
		ID:          d.ID,
		SellerID:    d.SellerID,
		Amount:      d.Amount.Int64(),
		Description: d.Description,
		Status:      string(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}

	if d.BuyerID != nil {
		s.BuyerID = sql.NullInt64{Int64: *d.BuyerID, Valid: true}
	}

	return s
}

func (s *dealSchema) toDomain() (*entity.Deal, error) {
	status, err := value.ParseDealStatus(s.Status)
	if err != nil {
		return nil, err
	}

	d := &entity.Deal{
		ID:          s.ID,
		SellerID:    s.SellerID,
		Amount:      value.Cents(s.Amount),
		Description: s.Description,
		Status:      status,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}

	if s.BuyerID.Valid {
		buyer := s.BuyerID.Int64
		d.BuyerID = &buyer
	}

	return d, nil
}

type auditSchema struct {
	ID        int64     `db:"id"`
	ActorID   int64     `db:"actor_id"`
	Action    string    `db:"action"`
	Amount    int64     `db:"amount"`
	Details   string    `db:"details"`
	PrevHash  string    `db:"prev_hash"`
	Hash      string    `db:"hash"`
	CreatedAt time.Time `db:"created_at"`
}

func fromAuditEntry(e *entity.AuditEntry) *auditSchema {
	return &auditSchema{
		ID:        e.ID,
		ActorID:   e.ActorID,
		Action:    string(e.Action),
		Amount:    e.Amount.Int64(),
		Details:   e.Details,
		PrevHash:  e.PrevHash,
		Hash:      e.Hash,
		CreatedAt: e.CreatedAt,
	}
}

// toDomain не валидирует action: такая запись всё равно должна дойти до проверки цепочки.
func (s *auditSchema) toDomain() entity.AuditEntry {
	return entity.AuditEntry{
		ID:        s.ID,
		ActorID:   s.ActorID,
		Action:    value.AuditAction(s.Action),
		Amount:    value.Cents(s.Amount),
		Details:   s.Details,
		PrevHash:  s.PrevHash,
		Hash:      s.Hash,
		CreatedAt: s.CreatedAt,
	}
}

type adminGrantSchema struct {
	AccountID int64     `db:"account_id"`
	Role      string    `db:"role"`
	PinHash   []byte    `db:"pin_hash"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *adminGrantSchema) toDomain() (*entity.AdminGrant, error) {
	role, err := value.ParseAdminRole(s.Role)
	if err != nil {
		return nil, err
	}

	return &entity.AdminGrant{
		AccountID: s.AccountID,
		Role:      role,
		PinHash:   s.PinHash,
		CreatedAt: s.CreatedAt,
	}, nil
}

type dealMessageSchema struct {
	ID        int64     `db:"id"`
	DealID    int64     `db:"deal_id"`
	SenderID  int64     `db:"sender_id"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *dealMessageSchema) toDomain() entity.DealMessage {
	return entity.DealMessage{
		ID:        s.ID,
		DealID:    s.DealID,
		SenderID:  s.SenderID,
		Text:      s.Text,
		CreatedAt: s.CreatedAt,
	}
}
