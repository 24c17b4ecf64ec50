package server

import (
	"context"
	"fmt"
	"net/http"

	"git.appkode.ru/pub/go/failure"

	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/service/account"
	"tg_escrow/internal/domain/service/audit"
	"tg_escrow/internal/domain/service/deposit"
	"tg_escrow/internal/domain/service/dispute"
	"tg_escrow/internal/domain/value"
	"tg_escrow/pkg/errcodes"
	"tg_escrow/pkg/httpx/reply"
	"tg_escrow/pkg/httpx/req"
	"tg_escrow/pkg/rest"
)

type disputeResolver interface {
	Resolve(ctx context.Context, cmd dispute.ResolveCommand) (dispute.Resolution, error)
	Evidence(ctx context.Context, q dispute.EvidenceQuery) ([]entity.DealMessage, error)
}

type depositService interface {
	Manual(ctx context.Context, cmd deposit.ManualCommand) (*entity.Account, error)
}

type banService interface {
	SetBanned(ctx context.Context, cmd account.BanCommand) (*entity.Account, error)
}

type adminAuthorizer interface {
	Authorize(ctx context.Context, actorID int64, pin string, required value.AdminRole) (*entity.AdminGrant, error)
}

type auditVerifier interface {
	VerifyAll(ctx context.Context) (audit.Report, error)
}

// AdminServer — эндпоинты арбитров и администраторов. Каждое действие проверяет роль и PIN.
type AdminServer struct {
	disputeResolver disputeResolver
	depositService  depositService
	banService      banService
	authorizer      adminAuthorizer
	auditExporter   auditExporter
	auditVerifier   auditVerifier
}

func NewAdminServer(
	disputeResolver disputeResolver,
	depositService depositService,
	banService banService,
	authorizer adminAuthorizer,
	auditExporter auditExporter,
	auditVerifier auditVerifier,
) AdminServer {
	return AdminServer{
		disputeResolver: disputeResolver,
		depositService:  depositService,
		banService:      banService,
		authorizer:      authorizer,
		auditExporter:   auditExporter,
		auditVerifier:   auditVerifier,
	}
}

func (s AdminServer) postV1AdminResolve(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorID(r)
	if err != nil {
		return err
	}

	id, err := pathID(r, errcodes.InvalidDealID)
	if err != nil {
		return err
	}

	var request rest.ResolveRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	resolution, err := s.disputeResolver.Resolve(ctx, dispute.ResolveCommand{
		DealID:  id,
		Winner:  request.Winner,
		AdminID: actor,
		Pin:     adminPin(r),
	})
	if err != nil {
		return fmt.Errorf("disputeResolver.Resolve: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTResolution(resolution))

	return nil
}

func (s AdminServer) getV1AdminDealMessages(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorID(r)
	if err != nil {
		return err
	}

	id, err := pathID(r, errcodes.InvalidDealID)
	if err != nil {
		return err
	}

	messages, err := s.disputeResolver.Evidence(ctx, dispute.EvidenceQuery{DealID: id, AdminID: actor, Pin: adminPin(r)})
	if err != nil {
		return fmt.Errorf("disputeResolver.Evidence: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTMessages(messages))

	return nil
}

func (s AdminServer) postV1AdminDeposit(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorID(r)
	if err != nil {
		return err
	}

	var request rest.DepositRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	amount, err := value.ParseAmount(request.Amount)
	if err != nil {
		return failure.NewInvalidArgumentErrorFromError(
			fmt.Errorf("value.ParseAmount: %w", err),
			failure.WithCode(errcodes.InvalidAmount),
		)
	}

	credited, err := s.depositService.Manual(ctx, deposit.ManualCommand{
		AccountID: request.AccountID,
		Amount:    amount,
		AdminID:   actor,
		Pin:       adminPin(r),
		Note:      request.Note,
	})
	if err != nil {
		return fmt.Errorf("depositService.Manual: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTAccount(credited))

	return nil
}

func (s AdminServer) setBanned(banned bool) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		ctx := r.Context()

		actor, err := actorID(r)
		if err != nil {
			return err
		}

		id, err := pathID(r, errcodes.InvalidUserID)
		if err != nil {
			return err
		}

		updated, err := s.banService.SetBanned(ctx, account.BanCommand{
			AccountID: id,
			AdminID:   actor,
			Pin:       adminPin(r),
			Banned:    banned,
		})
		if err != nil {
			return fmt.Errorf("banService.SetBanned: %w", err)
		}

		reply.JSON(ctx, w, http.StatusOK, newRESTAccount(updated))

		return nil
	}
}

func (s AdminServer) getV1AdminAudit(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if err := s.authorize(r, value.AdminRoleDisputeAgent); err != nil {
		return err
	}

	afterID, limit, err := paging(r)
	if err != nil {
		return err
	}

	entries, err := s.auditExporter.Export(ctx, afterID, limit)
	if err != nil {
		return fmt.Errorf("auditExporter.Export: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTAuditPage(entries, limit))

	return nil
}

func (s AdminServer) postV1AdminAuditVerify(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if err := s.authorize(r, value.AdminRoleSuperAdmin); err != nil {
		return err
	}

	report, err := s.auditVerifier.VerifyAll(ctx)
	if err != nil {
		return fmt.Errorf("auditVerifier.VerifyAll: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.AuditVerification{
		Entries:  report.Entries,
		LastID:   report.LastID,
		LastHash: report.LastHash,
	})

	return nil
}

func (s AdminServer) authorize(r *http.Request, role value.AdminRole) error {
	actor, err := actorID(r)
	if err != nil {
		return err
	}

	if _, err = s.authorizer.Authorize(r.Context(), actor, adminPin(r), role); err != nil {
		return fmt.Errorf("authorizer.Authorize: %w", err)
	}

	return nil
}
