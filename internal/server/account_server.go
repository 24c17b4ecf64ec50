package server

import (
	"context"
	"fmt"
	"net/http"

	"tg_escrow/internal/domain/entity"
	"tg_escrow/pkg/errcodes"
	"tg_escrow/pkg/httpx/reply"
	"tg_escrow/pkg/httpx/req"
	"tg_escrow/pkg/rest"
)

type accountService interface {
	Register(ctx context.Context, profile entity.Profile) (*entity.Account, error)
	Get(ctx context.Context, id int64) (*entity.Account, error)
}

type activeDeals interface {
	ListActive(ctx context.Context, accountID int64) ([]entity.Deal, error)
}

type auditExporter interface {
	Export(ctx context.Context, afterID int64, limit int) ([]entity.AuditEntry, error)
	ExportByActor(ctx context.Context, actorID, afterID int64, limit int) ([]entity.AuditEntry, error)
}

type AccountServer struct {
	accountService accountService
	activeDeals    activeDeals
	auditExporter  auditExporter
}

func NewAccountServer(accountService accountService, activeDeals activeDeals, auditExporter auditExporter) AccountServer {
	return AccountServer{
		accountService: accountService,
		activeDeals:    activeDeals,
		auditExporter:  auditExporter,
	}
}

func (s AccountServer) postV1Account(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorID(r)
	if err != nil {
		return err
	}

	var request rest.RegisterAccountRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	account, err := s.accountService.Register(ctx, entity.Profile{
		ID:       actor,
		Username: request.Username,
		FullName: request.FullName,
	})
	if err != nil {
		return fmt.Errorf("accountService.Register: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTAccount(account))

	return nil
}

func (s AccountServer) getV1Account(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := pathID(r, errcodes.InvalidUserID)
	if err != nil {
		return err
	}

	account, err := s.accountService.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("accountService.Get: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTAccount(account))

	return nil
}

func (s AccountServer) getV1AccountDeals(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := s.self(r)
	if err != nil {
		return err
	}

	deals, err := s.activeDeals.ListActive(ctx, id)
	if err != nil {
		return fmt.Errorf("activeDeals.ListActive: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTDeals(deals))

	return nil
}

func (s AccountServer) getV1AccountAudit(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := s.self(r)
	if err != nil {
		return err
	}

	afterID, limit, err := paging(r)
	if err != nil {
		return err
	}

	entries, err := s.auditExporter.ExportByActor(ctx, id, afterID, limit)
	if err != nil {
		return fmt.Errorf("auditExporter.ExportByActor: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTAuditPage(entries, limit))

	return nil
}

// self возвращает id из пути, если он совпадает с пользователем запроса.
func (s AccountServer) self(r *http.Request) (int64, error) {
	actor, err := actorID(r)
	if err != nil {
		return 0, err
	}

	id, err := pathID(r, errcodes.InvalidUserID)
	if err != nil {
		return 0, err
	}

	if err = requireSelf(actor, id); err != nil {
		return 0, err
	}

	return id, nil
}
