package entity

import (
	"time"

	"tg_escrow/internal/domain/value"
)

type Deal struct {
	ID          int64
	SellerID    int64
	BuyerID     *int64
	Amount      value.Cents
	Description string
	Status      value.DealStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (d *Deal) IsSeller(accountID int64) bool {
	return d.SellerID == accountID
}

func (d *Deal) IsBuyer(accountID int64) bool {
	return d.BuyerID != nil && *d.BuyerID == accountID
}

func (d *Deal) IsParty(accountID int64) bool {
	return d.IsSeller(accountID) || d.IsBuyer(accountID)
}

// Buyer возвращает id покупателя или 0, если сделка ещё не оплачена.
func (d *Deal) Buyer() int64 {
	if d.BuyerID == nil {
		return 0
	}

	return *d.BuyerID
}

// Counterparty возвращает вторую сторону сделки.
func (d *Deal) Counterparty(accountID int64) int64 {
	if d.IsSeller(accountID) {
		return d.Buyer()
	}

	return d.SellerID
}
