package ledger

import "math/big"

// FeesPrecision is the fixed-point precision pool fee rates are expressed in.
const FeesPrecision = 10

var (
	// PriceUnit is the 10^18 scale used for spot prices and exchange rates.
	PriceUnit = pow10(18)
	// FeeUnit is the 10^FeesPrecision scale of fee rates.
	FeeUnit = pow10(FeesPrecision)
)

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// Rescale converts an integer value from one fixed-point precision to
// another. Scaling down divides by a power of ten with truncation toward
// zero; scaling up multiplies and loses nothing.
func Rescale(value *big.Int, fromPrecision, toPrecision int) *big.Int {
	delta := fromPrecision - toPrecision
	switch {
	case delta == 0:
		return new(big.Int).Set(value)
	case delta > 0:
		return new(big.Int).Quo(value, pow10(delta))
	default:
		return new(big.Int).Mul(value, pow10(-delta))
	}
}
