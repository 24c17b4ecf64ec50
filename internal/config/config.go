package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	App       App
	HTTP      HTTP
	Postgres  Postgres
	Redis     Redis
	Bot       Bot
	Escrow    Escrow
	CryptoPay CryptoPay
}

type App struct {
	Name    string `env:"APP_NAME" envDefault:"tg-escrow"`
	Version string `env:"APP_VERSION" envDefault:"dev"`
	// StorageDriver: postgres или memory (локальный запуск без БД и Redis).
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
}

type Bot struct {
	// Token пустой — уведомления только пишутся в лог.
	Token       string `env:"BOT_TOKEN" json:"-"`
	AdminChatID int64  `env:"BOT_ADMIN_CHAT_ID"`
}

type CryptoPay struct {
	APIToken string `env:"CRYPTO_PAY_API_TOKEN" json:"-"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	if err := config.validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c Config) validate() error {
	switch c.App.StorageDriver {
	case StorageDriverPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("PG_DSN is required for postgres storage")
		}

		if c.Redis.Address == "" {
			return errors.New("REDIS_ADDRESS is required for postgres storage")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.App.StorageDriver)
	}

	if c.Escrow.FeeRate.IsNegative() || !c.Escrow.FeeRate.LessThan(decimalOne) {
		return fmt.Errorf("ESCROW_FEE_RATE must be in [0, 1), got %s", c.Escrow.FeeRate)
	}

	if c.Escrow.RateLimit <= 0 || c.Escrow.RateWindow <= 0 {
		return errors.New("ESCROW_RATE_LIMIT and ESCROW_RATE_WINDOW must be positive")
	}

	if c.Escrow.PinRateLimit <= 0 || c.Escrow.PinRateWindow <= 0 {
		return errors.New("PIN_RATE_LIMIT and PIN_RATE_WINDOW must be positive")
	}

	return nil
}
