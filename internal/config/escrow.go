package config

import (
	"time"

	"github.com/shopspring/decimal"
)

var decimalOne = decimal.NewFromInt(1) //nolint:gochecknoglobals

type Escrow struct {
	// FeeRate — доля комиссии с выплаты продавцу, 0.05 = 5%.
	FeeRate           decimal.Decimal `env:"ESCROW_FEE_RATE" envDefault:"0.05"`
	EscrowAccountID   int64           `env:"ESCROW_ACCOUNT_ID" envDefault:"0"`
	DescriptionMaxLen int             `env:"ESCROW_DESCRIPTION_MAX_LEN" envDefault:"500"`
	MessageMaxLen     int             `env:"ESCROW_MESSAGE_MAX_LEN" envDefault:"2000"`

	RateLimit         int64         `env:"ESCROW_RATE_LIMIT" envDefault:"3"`
	RateWindow        time.Duration `env:"ESCROW_RATE_WINDOW" envDefault:"2s"`
	RateLimitFailOpen bool          `env:"RATE_LIMIT_FAIL_OPEN" envDefault:"true"`

	// Попытки ввода PIN администратора ограничиваются отдельно и строже.
	PinRateLimit         int64         `env:"PIN_RATE_LIMIT" envDefault:"5"`
	PinRateWindow        time.Duration `env:"PIN_RATE_WINDOW" envDefault:"15m"`
	PinRateLimitFailOpen bool          `env:"PIN_RATE_LIMIT_FAIL_OPEN" envDefault:"false"`

	ReadRetryAttempts   uint64        `env:"READ_RETRY_ATTEMPTS" envDefault:"3"`
	AuditVerifyInterval time.Duration `env:"AUDIT_VERIFY_INTERVAL" envDefault:"10m"`
}
