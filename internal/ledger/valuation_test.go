package ledger

import (
	"math/big"
	"testing"
)

func TestPTInIBT(t *testing.T) {
	// spot 0.99 at PriceUnit: 1000 PT -> 1010 IBT (truncated)
	spot := new(big.Int).Mul(big.NewInt(99), pow10(16))
	got := PTInIBT(big.NewInt(1000), spot)
	if got.Cmp(big.NewInt(1010)) != 0 {
		t.Fatalf("pt conversion mismatch: %s", got)
	}

	// unit spot is the identity
	got = PTInIBT(big.NewInt(12345), new(big.Int).Set(PriceUnit))
	if got.Cmp(big.NewInt(12345)) != 0 {
		t.Fatalf("unit spot mismatch: %s", got)
	}
}

func TestLiquidityInUnderlyingHalvesBalancedReserves(t *testing.T) {
	unit := pow10(18)
	ibt := new(big.Int).Mul(big.NewInt(1000), unit)
	pt := new(big.Int).Mul(big.NewInt(1000), unit)
	// spot 1.0, rate 1.1 underlying per IBT
	rate := new(big.Int).Mul(big.NewInt(11), pow10(17))

	got := LiquidityInUnderlying(ibt, pt, new(big.Int).Set(PriceUnit), rate, 18)
	want := new(big.Int).Mul(big.NewInt(1100), unit)
	if got.Cmp(want) != 0 {
		t.Fatalf("liquidity mismatch: got %s want %s", got, want)
	}
}

func TestTradeValueUnderlyingHalving(t *testing.T) {
	unit := pow10(18)
	ibtLeg := new(big.Int).Mul(big.NewInt(500), unit)
	ptLegInIBT := new(big.Int).Mul(big.NewInt(500), unit)

	full := TradeValueUnderlying(ibtLeg, ptLegInIBT, unit, 18, false)
	if full.Cmp(new(big.Int).Mul(big.NewInt(1000), unit)) != 0 {
		t.Fatalf("full value mismatch: %s", full)
	}

	halved := TradeValueUnderlying(ibtLeg, ptLegInIBT, unit, 18, true)
	if halved.Cmp(new(big.Int).Mul(big.NewInt(500), unit)) != 0 {
		t.Fatalf("halved value mismatch: %s", halved)
	}
}

func TestTradeValueUnderlyingScalesByRateAndDecimals(t *testing.T) {
	// 6-decimal IBT, rate 2.0 underlying per whole IBT
	rate := big.NewInt(2_000_000)
	got := TradeValueUnderlying(big.NewInt(3_000_000), big.NewInt(1_000_000), rate, 6, false)
	if got.Cmp(big.NewInt(8_000_000)) != 0 {
		t.Fatalf("scaled value mismatch: %s", got)
	}
}
