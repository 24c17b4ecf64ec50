package value

import (
	"errors"
	"fmt"
)

// Winner — сторона, в пользу которой решён спор.
type Winner string

const (
	WinnerSeller Winner = "seller"
	WinnerBuyer  Winner = "buyer"
)

var ErrInvalidWinner = errors.New("winner must be seller or buyer")

func ParseWinner(s string) (Winner, error) {
	switch w := Winner(s); w {
	case WinnerSeller, WinnerBuyer:
		return w, nil
	}

	return "", fmt.Errorf("%q: %w", s, ErrInvalidWinner)
}

func (w Winner) String() string {
	return string(w)
}
