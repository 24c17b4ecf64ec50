package inmemory

import (
	"context"
	"fmt"
	"slices"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/value"
	"tg_escrow/pkg/errcodes"
)

type accounts struct{ *tx }

func (r accounts) Upsert(_ context.Context, p entity.Profile) (*entity.Account, error) {
	now := r.now().UTC()

	a, ok := r.st.accounts[p.ID]
	if !ok {
		a = entity.Account{ID: p.ID, CreatedAt: now}
	}

	a.Username = p.Username
	a.FullName = p.FullName
	a.UpdatedAt = now
	r.st.accounts[p.ID] = a

	return &a, nil
}

func (r accounts) Get(_ context.Context, id int64) (*entity.Account, error) {
	a, ok := r.st.accounts[id]
	if !ok {
		return nil, domain.NewError(errcodes.NotFound, fmt.Sprintf("account %d not found", id))
	}

	return &a, nil
}

func (r accounts) GetForUpdate(ctx context.Context, id int64) (*entity.Account, error) {
	return r.Get(ctx, id)
}

func (r accounts) UpdateBalance(_ context.Context, id int64, balance value.Cents) error {
	return r.update(id, func(a *entity.Account) { a.Balance = balance })
}

func (r accounts) AddReputation(_ context.Context, id int64, stars value.Stars) error {
	return r.update(id, func(a *entity.Account) {
		a.Reputation.Sum += int64(stars)
		a.Reputation.Count++
	})
}

func (r accounts) SetBanned(_ context.Context, id int64, banned bool) error {
	return r.update(id, func(a *entity.Account) { a.IsBanned = banned })
}

func (r accounts) update(id int64, fn func(*entity.Account)) error {
	a, ok := r.st.accounts[id]
	if !ok {
		return domain.NewError(errcodes.NotFound, fmt.Sprintf("account %d not found", id))
	}

	fn(&a)
	a.UpdatedAt = r.now().UTC()
	r.st.accounts[id] = a

	return nil
}

type deals struct{ *tx }

func (r deals) Create(_ context.Context, d *entity.Deal) error {
	r.st.dealSeq++
	now := r.now().UTC()

	d.ID = r.st.dealSeq
	d.CreatedAt = now
	d.UpdatedAt = now
	r.st.deals[d.ID] = copyDeal(*d)

	return nil
}

func (r deals) Get(_ context.Context, id int64) (*entity.Deal, error) {
	d, ok := r.st.deals[id]
	if !ok {
		return nil, domain.NewError(errcodes.NotFound, fmt.Sprintf("deal %d not found", id))
	}

	d = copyDeal(d)

	return &d, nil
}

func (r deals) GetForUpdate(ctx context.Context, id int64) (*entity.Deal, error) {
	return r.Get(ctx, id)
}

func (r deals) Update(_ context.Context, d *entity.Deal) error {
	stored, ok := r.st.deals[d.ID]
	if !ok {
		return domain.NewError(errcodes.NotFound, fmt.Sprintf("deal %d not found", d.ID))
	}

	stored.Status = d.Status
	stored.BuyerID = d.BuyerID
	stored.UpdatedAt = r.now().UTC()
	d.UpdatedAt = stored.UpdatedAt
	r.st.deals[d.ID] = copyDeal(stored)

	return nil
}

func (r deals) ListActiveByAccount(_ context.Context, accountID int64) ([]entity.Deal, error) {
	result := make([]entity.Deal, 0)

	for _, d := range r.st.deals {
		if d.Status.IsTerminal() || !d.IsParty(accountID) {
			continue
		}

		result = append(result, copyDeal(d))
	}

	slices.SortFunc(result, func(a, b entity.Deal) int { return int(b.ID - a.ID) })

	return result, nil
}

func copyDeal(d entity.Deal) entity.Deal {
	if d.BuyerID != nil {
		buyer := *d.BuyerID
		d.BuyerID = &buyer
	}

	return d
}

type auditLog struct{ *tx }

func (r auditLog) LockTail(context.Context) (*entity.AuditEntry, error) {
	if len(r.st.audit) == 0 {
		return nil, nil //nolint:nilnil
	}

	tail := r.st.audit[len(r.st.audit)-1]

	return &tail, nil
}

func (r auditLog) Insert(_ context.Context, e *entity.AuditEntry) error {
	if e.Action == value.AuditActionWebhookDeposit {
		for _, existing := range r.st.audit {
			if existing.Action == e.Action && existing.Details == e.Details {
				return domain.NewError(errcodes.InternalServerError, "duplicate external reference")
			}
		}
	}

	r.st.auditSeq++
	e.ID = r.st.auditSeq
	r.st.audit = append(r.st.audit, *e)

	return nil
}

func (r auditLog) ExistsByDetails(_ context.Context, action value.AuditAction, details string) (bool, error) {
	return slices.ContainsFunc(r.st.audit, func(e entity.AuditEntry) bool {
		return e.Action == action && e.Details == details
	}), nil
}

func (r auditLog) List(_ context.Context, afterID int64, limit int) ([]entity.AuditEntry, error) {
	return r.filter(afterID, limit, func(entity.AuditEntry) bool { return true }), nil
}

func (r auditLog) ListByActor(_ context.Context, actorID, afterID int64, limit int) ([]entity.AuditEntry, error) {
	return r.filter(afterID, limit, func(e entity.AuditEntry) bool { return e.ActorID == actorID }), nil
}

func (r auditLog) filter(afterID int64, limit int, keep func(entity.AuditEntry) bool) []entity.AuditEntry {
	result := make([]entity.AuditEntry, 0)

	for _, e := range r.st.audit {
		if len(result) == limit {
			break
		}

		if e.ID > afterID && keep(e) {
			result = append(result, e)
		}
	}

	return result
}

type reviews struct{ *tx }

func (r reviews) Create(_ context.Context, review *entity.Review) error {
	if _, ok := r.st.reviews[review.DealID]; ok {
		return domain.NewError(errcodes.AlreadyReviewed, fmt.Sprintf("deal %d already reviewed", review.DealID))
	}

	r.st.reviewSeq++
	review.ID = r.st.reviewSeq
	review.CreatedAt = r.now().UTC()
	r.st.reviews[review.DealID] = *review

	return nil
}

func (r reviews) ExistsForDeal(_ context.Context, dealID int64) (bool, error) {
	_, ok := r.st.reviews[dealID]
	return ok, nil
}

type adminGrants struct{ *tx }

func (r adminGrants) Get(_ context.Context, accountID int64) (*entity.AdminGrant, error) {
	g, ok := r.st.grants[accountID]
	if !ok {
		return nil, domain.NewError(errcodes.NotFound, fmt.Sprintf("admin grant for %d not found", accountID))
	}

	return &g, nil
}

func (r adminGrants) Upsert(_ context.Context, g *entity.AdminGrant) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = r.now().UTC()
	}

	r.st.grants[g.AccountID] = *g

	if a, ok := r.st.accounts[g.AccountID]; ok {
		a.IsAdmin = true
		r.st.accounts[g.AccountID] = a
	}

	return nil
}

type dealMessages struct{ *tx }

func (r dealMessages) Create(_ context.Context, m *entity.DealMessage) error {
	r.st.messageSeq++
	m.ID = r.st.messageSeq
	m.CreatedAt = r.now().UTC()
	r.st.messages = append(r.st.messages, *m)

	return nil
}

func (r dealMessages) ListByDeal(_ context.Context, dealID int64) ([]entity.DealMessage, error) {
	result := make([]entity.DealMessage, 0)

	for _, m := range r.st.messages {
		if m.DealID == dealID {
			result = append(result, m)
		}
	}

	return result, nil
}
