package ledger

import (
	"math/big"
	"testing"

	"ptscope/internal/model"
)

func TestLPFeeUnderlyingCrypto(t *testing.T) {
	// flat 0.03% of the traded value: feeRate 3000000 at FeesPrecision
	value := new(big.Int).Mul(big.NewInt(1000), pow10(18))
	got := LPFeeUnderlying(model.VariantCrypto, value, nil, nil,
		big.NewInt(3000000), big.NewInt(0), big.NewInt(0), big.NewInt(0), 18)
	want := new(big.Int).Mul(big.NewInt(3), pow10(17))
	if got.Cmp(want) != 0 {
		t.Fatalf("crypto fee mismatch: got %s want %s", got, want)
	}
}

func TestLPFeeUnderlyingStableNGBacksOutAdminShare(t *testing.T) {
	// admin took half the fee: admin share * FeeUnit / adminFeeRate doubles it
	adminFeeRate := new(big.Int).Quo(FeeUnit, big.NewInt(2))
	ibtAdmin := big.NewInt(600)
	ptAdmin := big.NewInt(400)
	spot := new(big.Int).Set(PriceUnit)
	rate := pow10(18)

	got := LPFeeUnderlying(model.VariantStableNG, big.NewInt(0), ibtAdmin, ptAdmin,
		big.NewInt(0), adminFeeRate, spot, rate, 18)
	if got.Cmp(big.NewInt(2000)) != 0 {
		t.Fatalf("stableswap-ng fee mismatch: %s", got)
	}
}

func TestLPFeeUnderlyingStableNGZeroGuards(t *testing.T) {
	got := LPFeeUnderlying(model.VariantStableNG, big.NewInt(0), big.NewInt(100), big.NewInt(100),
		big.NewInt(0), big.NewInt(0), PriceUnit, pow10(18), 18)
	if got.Sign() != 0 {
		t.Fatalf("zero admin fee rate must yield zero, got %s", got)
	}

	got = LPFeeUnderlying(model.VariantStableNG, big.NewInt(0), big.NewInt(100), big.NewInt(100),
		big.NewInt(0), FeeUnit, big.NewInt(0), pow10(18), 18)
	if got.Sign() != 0 {
		t.Fatalf("zero spot must yield zero, got %s", got)
	}
}

func TestLPFeeUnderlyingOtherVariantsZero(t *testing.T) {
	for _, variant := range []model.PoolVariant{model.VariantCryptoNG, model.VariantUnknown} {
		got := LPFeeUnderlying(variant, pow10(18), big.NewInt(5), big.NewInt(5),
			FeeUnit, FeeUnit, PriceUnit, pow10(18), 18)
		if got.Sign() != 0 {
			t.Fatalf("%s fee must be zero, got %s", variant, got)
		}
	}
}

func TestFeeRatio(t *testing.T) {
	// 1 fee over 2000 liquidity = 0.0005 at PriceUnit
	got := FeeRatio(big.NewInt(1), big.NewInt(2000))
	want := new(big.Int).Mul(big.NewInt(5), pow10(14))
	if got.Cmp(want) != 0 {
		t.Fatalf("fee ratio mismatch: got %s want %s", got, want)
	}

	if FeeRatio(big.NewInt(1), big.NewInt(0)).Sign() != 0 {
		t.Fatalf("zero liquidity must yield zero ratio")
	}
	if FeeRatio(big.NewInt(1), nil).Sign() != 0 {
		t.Fatalf("nil liquidity must yield zero ratio")
	}
}
