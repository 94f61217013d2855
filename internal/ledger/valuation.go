package ledger

import "math/big"

// PTInIBT converts a PT amount into IBT terms via the pool spot price
// (fixed point at PriceUnit). The caller guards spotPrice > 0.
func PTInIBT(ptAmount, spotPrice *big.Int) *big.Int {
	out := new(big.Int).Mul(ptAmount, PriceUnit)
	return out.Quo(out, spotPrice)
}

// LiquidityInUnderlying converts a pool's (IBT, PT) reserve pair into a
// single underlying-denominated liquidity figure: the PT side is expressed
// in IBT via the spot price, the sum converted to underlying via the IBT
// exchange rate, then halved because liquidity is defined as the underlying
// value of one side, assuming rough balance.
func LiquidityInUnderlying(ibtAmount, ptAmount, spotPrice, ibtRate *big.Int, ibtDecimals uint8) *big.Int {
	sum := new(big.Int).Add(ibtAmount, PTInIBT(ptAmount, spotPrice))
	sum.Mul(sum, ibtRate)
	sum.Quo(sum, pow10(int(ibtDecimals)))
	return sum.Quo(sum, big.NewInt(2))
}

// TradeValueUnderlying expresses a trade's two legs as one underlying value:
// (ibtLeg + ptLegInIBT) * ibtRate / 10^ibtDecimals. halve collapses the two
// legs of a liquidity event into the single economic deposit they represent;
// one-sided swaps are not halved.
func TradeValueUnderlying(ibtLeg, ptLegInIBT, ibtRate *big.Int, ibtDecimals uint8, halve bool) *big.Int {
	out := new(big.Int).Add(ibtLeg, ptLegInIBT)
	out.Mul(out, ibtRate)
	out.Quo(out, pow10(int(ibtDecimals)))
	if halve {
		out.Quo(out, big.NewInt(2))
	}
	return out
}
