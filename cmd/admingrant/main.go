// Command admingrant выдаёт аккаунту роль администратора и PIN.
//
//	admingrant -account 1217838677 -role dispute_agent -pin 4821
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"tg_escrow/internal/config"
	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/repository"
	"tg_escrow/internal/domain/service/adminauth"
	"tg_escrow/internal/domain/value"
	"tg_escrow/internal/infrastructure/persistence"
	"tg_escrow/pkg/application/connectors"
	"tg_escrow/pkg/contextx"
	"tg_escrow/pkg/logx"
)

func main() {
	accountID := flag.Int64("account", 0, "telegram user id")
	username := flag.String("username", "", "telegram username, used when the account does not exist yet")
	role := flag.String("role", string(value.AdminRoleDisputeAgent), "dispute_agent or super_admin")
	pin := flag.String("pin", "", "admin pin")
	flag.Parse()

	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: time.DateTime}))
	ctx := contextx.WithLogger(context.Background(), log)

	if err := run(ctx, *accountID, *username, *role, *pin); err != nil {
		log.Error("admingrant failed", logx.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, accountID int64, username, roleName, pin string) error {
	if accountID <= 0 {
		return fmt.Errorf("-account must be positive, got %d", accountID)
	}

	role, err := value.ParseAdminRole(roleName)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	pg := &connectors.Postgres{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}
	db := pg.Client(ctx)
	defer pg.Close(ctx)

	store := persistence.NewStore(db)

	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().Get(ctx, accountID); err == nil {
			return nil
		}

		_, err := tx.Accounts().Upsert(ctx, entity.Profile{ID: accountID, Username: username, FullName: username})

		return err
	})
	if err != nil {
		return fmt.Errorf("accounts.Upsert: %w", err)
	}

	if _, err := adminauth.NewAuthorizer(store).Grant(ctx, accountID, role, pin); err != nil {
		return fmt.Errorf("adminauth.Grant: %w", err)
	}

	return nil
}
