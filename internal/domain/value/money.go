package value

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents — сумма в минимальных единицах валюты. Плавающая точка нигде не используется.
type Cents int64

var (
	centsPerUnit = decimal.NewFromInt(100)           //nolint:gochecknoglobals,mnd
	minCents     = decimal.NewFromInt(math.MinInt64) //nolint:gochecknoglobals
	maxCents     = decimal.NewFromInt(math.MaxInt64) //nolint:gochecknoglobals
)

// ParseAmount переводит десятичную строку ("50", "47.5", "0.015") в центы.
// Дробная часть квантуется до 2 знаков с округлением half-up.
func ParseAmount(s string) (Cents, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("decimal.NewFromString: %w", err)
	}

	return AmountFromDecimal(d)
}

// AmountFromDecimal возвращает ошибку, если сумма в центах не помещается в int64.
func AmountFromDecimal(d decimal.Decimal) (Cents, error) {
	cents := d.Round(2).Mul(centsPerUnit) //nolint:mnd
	if cents.LessThan(minCents) || cents.GreaterThan(maxCents) {
		return 0, fmt.Errorf("amount %s is out of range", d)
	}

	return Cents(cents.IntPart()), nil
}

func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2) //nolint:mnd
}

func (c Cents) String() string {
	return c.Decimal().StringFixed(2) //nolint:mnd
}

func (c Cents) Int64() int64 {
	return int64(c)
}

// Fee считает комиссию round_half_up(c * rate) в целых центах.
func (c Cents) Fee(rate decimal.Decimal) Cents {
	return Cents(decimal.NewFromInt(int64(c)).Mul(rate).Round(0).IntPart())
}
