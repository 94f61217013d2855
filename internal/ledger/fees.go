package ledger

import (
	"math/big"

	"ptscope/internal/model"
)

// LPFeeUnderlying computes the LP fee of one event expressed in underlying
// terms. The formula depends on the pool variant:
//
//   - crypto pools charge a flat proportional fee on the traded value;
//   - stableswap-NG pools expose only the admin's share as discrete balance
//     deltas, so the total LP fee is backed out of that share via the admin
//     fee rate; a zero admin fee rate makes the back-out impossible and the
//     fee is defined as zero;
//   - next-gen crypto pools have no fee attribution path and always yield
//     zero.
func LPFeeUnderlying(
	variant model.PoolVariant,
	valueUnderlying, ibtAdminFee, ptAdminFee, feeRate, adminFeeRate, spotPrice, ibtRate *big.Int,
	ibtDecimals uint8,
) *big.Int {
	switch variant {
	case model.VariantCrypto:
		out := new(big.Int).Mul(valueUnderlying, feeRate)
		return out.Quo(out, FeeUnit)
	case model.VariantStableNG:
		if adminFeeRate.Sign() == 0 || spotPrice.Sign() == 0 {
			return big.NewInt(0)
		}
		adminUnderlying := new(big.Int).Add(ibtAdminFee, PTInIBT(ptAdminFee, spotPrice))
		adminUnderlying.Mul(adminUnderlying, ibtRate)
		adminUnderlying.Quo(adminUnderlying, pow10(int(ibtDecimals)))
		adminUnderlying.Mul(adminUnderlying, FeeUnit)
		return adminUnderlying.Quo(adminUnderlying, adminFeeRate)
	default:
		return big.NewInt(0)
	}
}

// FeeRatio scales a fee against pool liquidity, fixed point at PriceUnit.
// Zero liquidity yields a zero ratio.
func FeeRatio(feeUnderlying, liquidityInUnderlying *big.Int) *big.Int {
	if liquidityInUnderlying == nil || liquidityInUnderlying.Sign() <= 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(feeUnderlying, PriceUnit)
	return out.Quo(out, liquidityInUnderlying)
}
