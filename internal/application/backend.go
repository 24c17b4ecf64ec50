package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"tg_escrow/internal/config"
	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/repository"
	"tg_escrow/internal/domain/service/admission"
	"tg_escrow/internal/domain/service/notify"
	"tg_escrow/internal/infrastructure/counter"
	"tg_escrow/internal/infrastructure/inmemory"
	"tg_escrow/internal/infrastructure/notifier"
	"tg_escrow/internal/infrastructure/persistence"
	"tg_escrow/migrations"
	"tg_escrow/pkg/application/connectors"
	"tg_escrow/pkg/application/modules"
	"tg_escrow/pkg/errcodes"
	"tg_escrow/pkg/httpx"
	"tg_escrow/pkg/logx"
	"tg_escrow/pkg/migrate"
	"tg_escrow/pkg/probe"
)

const notificationBuffer = 100

type notificationSender interface {
	Send(ctx context.Context, n entity.Notification) error
}

// backend — хранилище, счётчик лимитов и доставка уведомлений для выбранного STORAGE_DRIVER.
type backend struct {
	txm      repository.TxManager
	counter  admission.Counter
	notifier notify.Notifier
	checks   map[string]probe.Check
	closers  []func(ctx context.Context)
}

func (b *backend) close(ctx context.Context) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i](ctx)
	}
}

func openBackend(ctx context.Context, g *errgroup.Group, cfg config.Config) (*backend, error) {
	sender, err := newSender(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.App.StorageDriver == config.StorageDriverMemory {
		return memoryBackend(ctx, g, sender), nil
	}

	return postgresBackend(ctx, g, cfg, sender)
}

func postgresBackend(
	ctx context.Context,
	g *errgroup.Group,
	cfg config.Config,
	sender notificationSender,
) (*backend, error) {
	b := &backend{checks: make(map[string]probe.Check)}

	pg := &connectors.Postgres{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		ConnectRetries:  cfg.Postgres.ConnectRetries,
	}
	db := pg.Client(ctx)
	b.closers = append(b.closers, pg.Close)

	if cfg.Postgres.MigrateOnStart {
		if err := migrate.FromFS(ctx, db, migrations.FS); err != nil {
			b.close(ctx)
			return nil, fmt.Errorf("migrate.FromFS: %w", err)
		}
	}

	rds := &connectors.Redis{
		Username:           cfg.Redis.Username,
		Password:           cfg.Redis.Password,
		Address:            cfg.Redis.Address,
		DatabaseNumber:     cfg.Redis.DatabaseNumber,
		PoolSize:           cfg.Redis.PoolSize,
		MinIdleConnections: cfg.Redis.MinIdleConnections,
		MaxIdleConnections: cfg.Redis.MaxIdleConnections,
		ConnectRetries:     cfg.Redis.ConnectRetries,
	}
	b.closers = append(b.closers, rds.Close)

	queueClient := asynq.NewClient(asynq.RedisClientOpt{ //nolint:exhaustruct
		Addr:     cfg.Redis.Address,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DatabaseNumber,
	})
	b.closers = append(b.closers, func(ctx context.Context) {
		if err := queueClient.Close(); err != nil {
			logger(ctx).Error("asynqClient.Close", logx.Error(err))
		}
	})

	modules.AsynqServer{
		RedisUsername: cfg.Redis.Username,
		RedisPassword: cfg.Redis.Password,
		RedisAddress:  cfg.Redis.Address,
		RedisDB:       cfg.Redis.DatabaseNumber,
	}.Run(ctx, g, modules.AsynqQueues{notifier.QueueName: 1}, modules.AsynqHandler{
		Pattern: notifier.TaskSend,
		Handle:  notifier.Handler(sender),
	})

	redisClient := rds.Client(ctx)

	b.checks["postgres"] = db.PingContext
	b.checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }

	b.txm = persistence.NewStore(db)
	b.counter = counter.NewRedis(redisClient)
	b.notifier = notifier.NewQueue(queueClient)

	return b, nil
}

// memoryBackend — запуск без Postgres и Redis: состояние живёт до остановки процесса.
func memoryBackend(ctx context.Context, g *errgroup.Group, sender notificationSender) *backend {
	ch := make(notifier.Channel, notificationBuffer)

	g.Go(func() error {
		err := notifier.Consume(ctx, sender, ch)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("notifier.Consume: %w", err)
		}

		return nil
	})

	logger(ctx).Warn("in-memory storage: state is lost on restart")

	return &backend{
		txm:      inmemory.NewStore(),
		counter:  counter.NewMemory(),
		notifier: ch,
		checks:   make(map[string]probe.Check),
	}
}

func newSender(cfg config.Config) (notificationSender, error) {
	if cfg.Bot.Token == "" {
		return notifier.LogSender{}, nil
	}

	httpClient := &http.Client{ //nolint:exhaustruct
		Transport: httpx.NewLoggingRoundTripper(
			http.DefaultTransport,
			httpx.WithSensitiveDataMasker(logx.NewSensitiveDataMasker()),
			httpx.WithLogFieldMaxLen(cfg.HTTP.LogFieldMaxLen),
		),
	}

	bot, err := notifier.NewTelegramBot(cfg.Bot.Token, cfg.Bot.AdminChatID, httpClient)
	if err != nil {
		return nil, fmt.Errorf("notifier.NewTelegramBot: %w", err)
	}

	return bot, nil
}

// ensureEscrowAccount создаёт системный счёт удержания, если его ещё нет.
func ensureEscrowAccount(ctx context.Context, txm repository.TxManager, escrowID int64) error {
	err := txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.Accounts().Get(ctx, escrowID)
		if err == nil {
			return nil
		}

		if !domain.HasCode(err, errcodes.NotFound) {
			return err
		}

		_, err = tx.Accounts().Upsert(ctx, entity.Profile{ID: escrowID, FullName: "escrow"})

		return err
	})
	if err != nil {
		return fmt.Errorf("ensureEscrowAccount: %w", err)
	}

	logger(ctx).Info("escrow account ready", slog.Int64(logx.FieldAccountID, escrowID))

	return nil
}
