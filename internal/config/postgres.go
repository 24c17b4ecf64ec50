package config

import "time"

type Postgres struct {
	DSN             string        `env:"PG_DSN" json:"-"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnectRetries  uint64        `env:"PG_CONNECT_RETRIES" envDefault:"5"`
	MigrateOnStart  bool          `env:"PG_MIGRATE_ON_START" envDefault:"true"`
}
