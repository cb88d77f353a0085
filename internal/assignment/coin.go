package assignment

import (
	"math/rand/v2"

	"github.com/PratikDhanave/abtest-service/internal/models"
)

// Coin is the random source behind new assignments.
// Float64 must return a value in [0, 1).
type Coin interface {
	Float64() float64
}

// CoinFunc adapts a function to Coin.
type CoinFunc func() float64

func (f CoinFunc) Float64() float64 { return f() }

// FairCoin draws from the process-wide generator, which is safe for
// concurrent use.
var FairCoin Coin = CoinFunc(rand.Float64)

// Flip maps a coin draw onto a variant: below 0.5 is A, anything else B.
func Flip(c Coin) models.Variant {
	if c.Float64() < 0.5 {
		return models.VariantA
	}
	return models.VariantB
}
