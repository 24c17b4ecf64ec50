package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"tg_escrow/internal/config"
	"tg_escrow/internal/domain/service/account"
	"tg_escrow/internal/domain/service/adminauth"
	"tg_escrow/internal/domain/service/admission"
	"tg_escrow/internal/domain/service/audit"
	"tg_escrow/internal/domain/service/deal"
	"tg_escrow/internal/domain/service/deposit"
	"tg_escrow/internal/domain/service/dispute"
	"tg_escrow/internal/domain/service/ledger"
	"tg_escrow/internal/domain/service/rating"
	"tg_escrow/internal/infrastructure/cryptopay"
	"tg_escrow/internal/server"
	"tg_escrow/internal/worker"
	"tg_escrow/pkg/application/modules"
	"tg_escrow/pkg/contextx"
	"tg_escrow/pkg/logx"
	"tg_escrow/pkg/middlewarex"
)

// Run поднимает хранилище, доменные сервисы, HTTP, probe и metrics серверы
// и блокируется до отмены ctx или падения одного из модулей.
func Run(ctx context.Context, log *slog.Logger, level *slog.LevelVar) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}

	log = log.With(
		slog.String(logx.FieldAppName, cfg.App.Name),
		slog.String(logx.FieldAppVersion, cfg.App.Version),
	)
	ctx = contextx.WithLogger(ctx, log)

	g, ctx := errgroup.WithContext(ctx)

	infra, err := openBackend(ctx, g, cfg)
	if err != nil {
		return err
	}
	defer infra.close(context.WithoutCancel(ctx))

	if err := ensureEscrowAccount(ctx, infra.txm, cfg.Escrow.EscrowAccountID); err != nil {
		return err
	}

	guard := audit.NewGuard()
	infra.checks["audit-chain"] = func(context.Context) error { return guard.Check() }

	chain := audit.NewChain(guard)
	l := ledger.NewLedger(chain)

	limiter := admission.NewLimiter(infra.counter, admission.Policy{
		Limit:    cfg.Escrow.RateLimit,
		Window:   cfg.Escrow.RateWindow,
		FailOpen: cfg.Escrow.RateLimitFailOpen,
	})

	pinLimiter := admission.NewLimiter(infra.counter, admission.Policy{
		Limit:    cfg.Escrow.PinRateLimit,
		Window:   cfg.Escrow.PinRateWindow,
		FailOpen: cfg.Escrow.PinRateLimitFailOpen,
	})

	attempts := cfg.Escrow.ReadRetryAttempts

	auth := adminauth.NewAuthorizer(infra.txm).
		WithLimiter(pinLimiter).
		WithReadAttempts(attempts)

	accountService := account.NewService(infra.txm, auth).WithReadAttempts(attempts)
	dealService := deal.NewService(infra.txm, l, chain, deal.Config{
		FeeRate:           cfg.Escrow.FeeRate,
		EscrowAccountID:   cfg.Escrow.EscrowAccountID,
		DescriptionMaxLen: cfg.Escrow.DescriptionMaxLen,
		MessageMaxLen:     cfg.Escrow.MessageMaxLen,
	}).
		WithLimiter(limiter).
		WithNotifier(infra.notifier).
		WithReadAttempts(attempts)
	resolver := dispute.NewResolver(infra.txm, l, auth, cfg.Escrow.FeeRate, cfg.Escrow.EscrowAccountID).
		WithNotifier(infra.notifier)
	depositService := deposit.NewService(infra.txm, l, auth).WithNotifier(infra.notifier)
	ratingService := rating.NewService(infra.txm)
	exporter := audit.NewExporter(infra.txm).WithReadAttempts(attempts)
	verifier := audit.NewVerifier(infra.txm, guard).WithReadAttempts(attempts)

	srv := server.NewServer(
		server.NewAccountServer(accountService, dealService, exporter),
		server.NewDealServer(dealService, ratingService),
		server.NewAdminServer(resolver, depositService, accountService, auth, exporter, verifier),
		server.NewWebhookServer(cryptopay.NewVerifier(cfg.CryptoPay.APIToken), depositService),
	)

	router := chi.NewRouter()
	masker := logx.NewSensitiveDataMasker()
	router.Use(
		middlewarex.TraceID,
		middlewarex.Logger(log),
		middlewarex.UserID,
		middlewarex.Recovery,
		middlewarex.RequestLogging(masker, cfg.HTTP.LogFieldMaxLen),
		middlewarex.ResponseLogging(masker, cfg.HTTP.LogFieldMaxLen),
	)
	srv.RegisterRoutes(router)

	modules.HTTPServer{ShutdownTimeout: cfg.HTTP.ShutdownTimeout}.Run(ctx, g, &http.Server{ //nolint:exhaustruct
		Addr:              cfg.HTTP.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	})
	modules.ProbeServer{
		Name:          cfg.App.Name,
		Version:       cfg.App.Version,
		ListenAddress: cfg.HTTP.ProbeListenAddress,
		Checks:        infra.checks,
	}.Run(ctx, g)
	modules.MetricServer{ListenAddress: cfg.HTTP.MetricsListenAddress}.Run(ctx, g)

	auditWorker := worker.NewAuditVerifier(verifier, cfg.Escrow.AuditVerifyInterval)
	if err := auditWorker.Start(ctx); err != nil {
		return fmt.Errorf("auditWorker.Start: %w", err)
	}
	defer auditWorker.Stop()

	log.Info("application started", slog.String("storage", cfg.App.StorageDriver))

	if err := g.Wait(); err != nil {
		return fmt.Errorf("errgroup.Wait: %w", err)
	}

	return nil
}
