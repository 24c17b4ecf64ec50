package tests

import (
	"math/rand"
	"time"
)

type Randomizer struct {
	// Int64n возвращает число в [0, n).
	Int64n func(n int64) int64
}

func NewRandomizer() Randomizer {
	random := rand.New(rand.NewSource(time.Now().Unix())) //nolint:gosec // for tests

	return Randomizer{
		Int64n: random.Int63n,
	}
}
