// Command auditverify проверяет хеш-цепочку журнала аудита в Postgres от генезиса.
// Код выхода 1 — цепочка нарушена или база недоступна.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"tg_escrow/internal/config"
	"tg_escrow/internal/domain/service/audit"
	"tg_escrow/internal/infrastructure/persistence"
	"tg_escrow/pkg/application/connectors"
	"tg_escrow/pkg/contextx"
	"tg_escrow/pkg/logx"
)

func main() {
	pageSize := flag.Int("page-size", 1000, "entries per read transaction") //nolint:mnd
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: time.DateTime}))
	ctx = contextx.WithLogger(ctx, log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config.Load", logx.Error(err))
		os.Exit(1) //nolint:gocritic
	}

	pg := &connectors.Postgres{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}
	db := pg.Client(ctx)

	verifier := audit.NewVerifier(persistence.NewStore(db), audit.NewGuard()).
		WithPageSize(*pageSize).
		WithReadAttempts(cfg.Escrow.ReadRetryAttempts)

	report, err := verifier.VerifyAll(ctx)

	pg.Close(ctx)

	if err != nil {
		log.Error("audit chain verification failed", logx.Error(err))
		os.Exit(1)
	}

	log.Info("audit chain is intact",
		slog.Int("entries", report.Entries),
		slog.Int64("last-id", report.LastID),
		slog.String("last-hash", report.LastHash),
	)
}
