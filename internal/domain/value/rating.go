package value

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	MinStars = 1
	MaxStars = 5

	// Unrated показывается вместо рейтинга, пока у продавца нет ни одного отзыва.
	Unrated = "unrated"
)

type Stars int

func NewStars(n int) (Stars, error) {
	if n < MinStars || n > MaxStars {
		return 0, fmt.Errorf("stars must be in [%d, %d], got %d", MinStars, MaxStars, n)
	}

	return Stars(n), nil
}

// Reputation — накопленная сумма звёзд и количество оценённых сделок.
type Reputation struct {
	Sum   int64
	Count int64
}

func (r Reputation) IsRated() bool {
	return r.Count > 0
}

// Average возвращает среднюю оценку, округлённую до одного знака.
func (r Reputation) Average() (decimal.Decimal, bool) {
	if r.Count == 0 {
		return decimal.Zero, false
	}

	return decimal.NewFromInt(r.Sum).Div(decimal.NewFromInt(r.Count)).Round(1), true
}

func (r Reputation) String() string {
	avg, ok := r.Average()
	if !ok {
		return Unrated
	}

	return avg.StringFixed(1)
}
