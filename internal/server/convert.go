package server

import (
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/service/deal"
	"tg_escrow/internal/domain/service/dispute"
	"tg_escrow/internal/domain/service/rating"
	"tg_escrow/pkg/lox"
	"tg_escrow/pkg/rest"
)

func newRESTAccount(a *entity.Account) rest.Account {
	return rest.Account{
		ID:          a.ID,
		Username:    a.Username,
		FullName:    a.FullName,
		DisplayName: a.DisplayName(),
		Balance:     a.Balance.String(),
		Rating:      a.Reputation.String(),
		RatingCount: a.Reputation.Count,
		IsBanned:    a.IsBanned,
		IsAdmin:     a.IsAdmin,
	}
}

func newRESTDeal(d *entity.Deal) rest.Deal {
	return rest.Deal{
		ID:          d.ID,
		SellerID:    d.SellerID,
		BuyerID:     d.BuyerID,
		Amount:      d.Amount.String(),
		Description: d.Description,
		Status:      d.Status.String(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func newRESTDeals(deals []entity.Deal) rest.DealList {
	return rest.DealList{Deals: lox.Map(deals, func(d entity.Deal) rest.Deal { return newRESTDeal(&d) })}
}

func newRESTRelease(r deal.Release) rest.Settlement {
	return rest.Settlement{
		Deal:   newRESTDeal(r.Deal),
		Amount: r.Amount.String(),
		Fee:    r.Fee.String(),
		Net:    r.Net.String(),
	}
}

func newRESTResolution(r dispute.Resolution) rest.Settlement {
	return rest.Settlement{
		Deal:   newRESTDeal(r.Deal),
		Winner: string(r.Winner),
		Amount: r.Amount.String(),
		Fee:    r.Fee.String(),
		Net:    r.Net.String(),
	}
}

func newRESTMessage(m *entity.DealMessage) rest.DealMessage {
	return rest.DealMessage{
		ID:        m.ID,
		DealID:    m.DealID,
		SenderID:  m.SenderID,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

func newRESTMessages(messages []entity.DealMessage) rest.DealMessageList {
	return rest.DealMessageList{
		Messages: lox.Map(messages, func(m entity.DealMessage) rest.DealMessage { return newRESTMessage(&m) }),
	}
}

func newRESTReview(r rating.Result) rest.Review {
	return rest.Review{
		ID:           r.Review.ID,
		DealID:       r.Review.DealID,
		SellerID:     r.Seller.ID,
		Stars:        int(r.Review.Stars),
		SellerRating: r.Display,
	}
}

func newRESTAuditPage(entries []entity.AuditEntry, limit int) rest.AuditPage {
	page := rest.AuditPage{Entries: lox.Map(entries, func(e entity.AuditEntry) rest.AuditEntry {
		return rest.AuditEntry{
			ID:        e.ID,
			ActorID:   e.ActorID,
			Action:    string(e.Action),
			Amount:    e.Amount.String(),
			Details:   e.Details,
			PrevHash:  e.PrevHash,
			Hash:      e.Hash,
			CreatedAt: e.CreatedAt,
		}
	})}

	if len(entries) > 0 && len(entries) == limit {
		page.NextAfterID = entries[len(entries)-1].ID
	}

	return page
}
