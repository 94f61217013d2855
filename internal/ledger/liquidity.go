package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"ptscope/internal/model"
)

// handleAddLiquidity folds a two-sided deposit into the ledger. The LP
// amount minted is derived from the LP total supply delta because not every
// variant's event carries it.
func (p *Processor) handleAddLiquidity(ctx context.Context, e *model.AddLiquidityEvent) error {
	meta := e.EventMeta

	pool, err := p.poolFor(ctx, meta, "AddLiquidity")
	if err != nil {
		return err
	}
	if pool == nil {
		return nil
	}
	sides, ok, err := p.poolSides(ctx, pool, "AddLiquidity")
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	ibtIn, err := p.recordFlow(ctx, meta, sides.IBTAsset.Address, model.AssetIBT, e.TokenAmounts[0])
	if err != nil {
		return err
	}
	ptIn, err := p.recordFlow(ctx, meta, sides.PTAsset.Address, model.AssetPT, e.TokenAmounts[1])
	if err != nil {
		return err
	}

	lpAddr := p.lpToken(ctx, pool, meta.BlockNumber)
	lpTotalSupply := p.totalSupply(ctx, meta.ChainID, lpAddr, meta.BlockNumber)
	lpMinted := new(big.Int).Sub(lpTotalSupply, pool.LPTotalSupply)
	lpOut, err := p.recordFlow(ctx, meta, strings.ToLower(lpAddr.Hex()), model.AssetLP, lpMinted)
	if err != nil {
		return err
	}

	ibtDecimals := sides.IBTAsset.Decimals
	ibtUnit := pow10(int(ibtDecimals))

	// The event fee arrives in the pool's fee precision; ledger fees are
	// kept in IBT decimals.
	fee := Rescale(orZero(e.RawFee), FeesPrecision, int(ibtDecimals))
	adminFeeRateScaled := Rescale(pool.AdminFeeRate, FeesPrecision, int(ibtDecimals))
	adminFee := new(big.Int).Mul(fee, adminFeeRateScaled)
	adminFee.Quo(adminFee, ibtUnit)

	spot := p.spotPrice(ctx, pool, meta.BlockNumber)
	ibtAdminFee, ptAdminFee, newIBTBalance, newPTBalance := p.reconcileAdmin(ctx, pool, meta.BlockNumber)
	ibtRate := p.ibtRate(ctx, meta.ChainID, sides.IBTAsset, meta.BlockNumber)
	ptRate := p.ptRate(ctx, pool, sides.PTAsset, meta.BlockNumber)

	valueUnderlying := big.NewInt(0)
	feeUnderlying := big.NewInt(0)
	feeRatio := big.NewInt(0)
	if pool.FutureVaultID != "" && spot.Sign() > 0 {
		ptLegInIBT := PTInIBT(e.TokenAmounts[1], spot)
		valueUnderlying = TradeValueUnderlying(e.TokenAmounts[0], ptLegInIBT, ibtRate, ibtDecimals, true)
		// The flat proportional fee is carried by the event itself here, so
		// only the admin-balance back-out contributes.
		feeUnderlying = LPFeeUnderlying(pool.Variant, big.NewInt(0), ibtAdminFee, ptAdminFee,
			pool.FeeRate, pool.AdminFeeRate, spot, ibtRate, ibtDecimals)
		liquidity := LiquidityInUnderlying(
			new(big.Int).Add(sides.IBTFlow.Amount, e.TokenAmounts[0]),
			new(big.Int).Add(sides.PTFlow.Amount, e.TokenAmounts[1]),
			spot, ibtRate, ibtDecimals,
		)
		feeRatio = FeeRatio(feeUnderlying, liquidity)
	}

	if err := p.updateStats(ctx, meta, pool, statsUpdate{
		Action:          model.ActionAddLiquidity,
		ValueUnderlying: valueUnderlying,
		FeeUnderlying:   feeUnderlying,
		FeeRatio:        feeRatio,
		SpotPrice:       spot,
		IBTRate:         ibtRate,
		PTRate:          ptRate,
	}); err != nil {
		return err
	}

	created, err := p.writeTransaction(ctx, meta, pool, txRecord{
		Type:            model.TxAddLiquidity,
		AmountsIn:       []string{ibtIn.ID, ptIn.ID},
		AmountsOut:      []string{lpOut.ID},
		ValueUnderlying: valueUnderlying,
		FeeUnderlying:   feeUnderlying,
		FeeRatio:        feeRatio,
		Fee:             fee,
		AdminFee:        adminFee,
		IBTRate:         ibtRate,
		PTRate:          ptRate,
	})
	if err != nil {
		return err
	}

	firstLiquidity := sides.IBTFlow.Amount.Sign() == 0 && sides.PTFlow.Amount.Sign() == 0

	pool.TotalFees = new(big.Int).Add(pool.TotalFees, fee)
	pool.TotalFeeRatio = new(big.Int).Add(pool.TotalFeeRatio, feeRatio)
	pool.TotalAdminFees = new(big.Int).Add(pool.TotalAdminFees, adminFee)
	pool.SpotPrice = spot
	pool.LPTotalSupply = lpTotalSupply
	pool.IBTAdminBalance = newIBTBalance
	pool.PTAdminBalance = newPTBalance
	if firstLiquidity {
		pool.FeeRate = p.feeRate(ctx, pool, meta.BlockNumber)
	}
	if pool.InitialVirtualPrice.Sign() == 0 {
		pool.InitialVirtualPrice = p.virtualPrice(ctx, pool, meta.BlockNumber)
	}
	if created {
		pool.TransactionCount++
	}

	if pool.Variant == model.VariantStableNG {
		if err := p.appendFeeClaim(ctx, meta, pool.ID, zeroAddress, big.NewInt(0), ibtAdminFee, ptAdminFee); err != nil {
			return err
		}
	}

	if err := p.store.SetPool(ctx, pool); err != nil {
		return fmt.Errorf("set pool: %w", err)
	}

	if err := p.setFlowAmount(ctx, sides.IBTFlow, new(big.Int).Add(sides.IBTFlow.Amount, e.TokenAmounts[0])); err != nil {
		return err
	}
	return p.setFlowAmount(ctx, sides.PTFlow, new(big.Int).Add(sides.PTFlow.Amount, e.TokenAmounts[1]))
}

// removeLiquidity is the shared core for two-sided withdrawals. tokenSupply
// is the LP total supply after the removal; the LP amount burned is the delta
// against the stored supply.
func (p *Processor) removeLiquidity(ctx context.Context, meta model.EventMeta, amounts [2]*big.Int, tokenSupply *big.Int, handler string) error {
	pool, err := p.poolFor(ctx, meta, handler)
	if err != nil {
		return err
	}
	if pool == nil {
		return nil
	}
	sides, ok, err := p.poolSides(ctx, pool, handler)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	lpAddr := p.lpToken(ctx, pool, meta.BlockNumber)
	lpBurned := new(big.Int).Sub(pool.LPTotalSupply, tokenSupply)
	lpIn, err := p.recordFlow(ctx, meta, strings.ToLower(lpAddr.Hex()), model.AssetLP, lpBurned)
	if err != nil {
		return err
	}
	ibtOut, err := p.recordFlow(ctx, meta, sides.IBTAsset.Address, model.AssetIBT, amounts[0])
	if err != nil {
		return err
	}
	ptOut, err := p.recordFlow(ctx, meta, sides.PTAsset.Address, model.AssetPT, amounts[1])
	if err != nil {
		return err
	}

	ibtDecimals := sides.IBTAsset.Decimals

	spot := p.spotPrice(ctx, pool, meta.BlockNumber)
	ibtAdminFee, ptAdminFee, newIBTBalance, newPTBalance := p.reconcileAdmin(ctx, pool, meta.BlockNumber)
	ibtRate := p.ibtRate(ctx, meta.ChainID, sides.IBTAsset, meta.BlockNumber)
	ptRate := p.ptRate(ctx, pool, sides.PTAsset, meta.BlockNumber)

	valueUnderlying := big.NewInt(0)
	feeUnderlying := big.NewInt(0)
	feeRatio := big.NewInt(0)
	if pool.FutureVaultID != "" && spot.Sign() > 0 {
		ptLegInIBT := PTInIBT(amounts[1], spot)
		valueUnderlying = TradeValueUnderlying(amounts[0], ptLegInIBT, ibtRate, ibtDecimals, true)
		feeUnderlying = LPFeeUnderlying(pool.Variant, big.NewInt(0), ibtAdminFee, ptAdminFee,
			pool.FeeRate, pool.AdminFeeRate, spot, ibtRate, ibtDecimals)
		liquidity := LiquidityInUnderlying(
			new(big.Int).Sub(sides.IBTFlow.Amount, amounts[0]),
			new(big.Int).Sub(sides.PTFlow.Amount, amounts[1]),
			spot, ibtRate, ibtDecimals,
		)
		feeRatio = FeeRatio(feeUnderlying, liquidity)
	}

	if err := p.updateStats(ctx, meta, pool, statsUpdate{
		Action:          model.ActionRemoveLiquidity,
		ValueUnderlying: valueUnderlying,
		FeeUnderlying:   feeUnderlying,
		FeeRatio:        feeRatio,
		SpotPrice:       spot,
		IBTRate:         ibtRate,
		PTRate:          ptRate,
	}); err != nil {
		return err
	}

	created, err := p.writeTransaction(ctx, meta, pool, txRecord{
		Type:            model.TxRemoveLiquidity,
		AmountsIn:       []string{lpIn.ID},
		AmountsOut:      []string{ibtOut.ID, ptOut.ID},
		ValueUnderlying: valueUnderlying,
		FeeUnderlying:   feeUnderlying,
		FeeRatio:        feeRatio,
		IBTRate:         ibtRate,
		PTRate:          ptRate,
	})
	if err != nil {
		return err
	}

	pool.SpotPrice = spot
	pool.LPTotalSupply = new(big.Int).Set(tokenSupply)
	pool.TotalFeeRatio = new(big.Int).Add(pool.TotalFeeRatio, feeRatio)
	pool.IBTAdminBalance = newIBTBalance
	pool.PTAdminBalance = newPTBalance
	if created {
		pool.TransactionCount++
	}

	if pool.Variant == model.VariantStableNG {
		if err := p.appendFeeClaim(ctx, meta, pool.ID, zeroAddress, big.NewInt(0), ibtAdminFee, ptAdminFee); err != nil {
			return err
		}
	}

	if err := p.store.SetPool(ctx, pool); err != nil {
		return fmt.Errorf("set pool: %w", err)
	}

	if err := p.setFlowAmount(ctx, sides.IBTFlow, new(big.Int).Sub(sides.IBTFlow.Amount, amounts[0])); err != nil {
		return err
	}
	return p.setFlowAmount(ctx, sides.PTFlow, new(big.Int).Sub(sides.PTFlow.Amount, amounts[1]))
}

// handleRemoveLiquidityOne reshapes a single-sided withdrawal into the
// two-sided core: the absent side is zero and the new LP supply is derived
// from the burned amount.
func (p *Processor) handleRemoveLiquidityOne(ctx context.Context, e *model.RemoveLiquidityOneEvent) error {
	meta := e.EventMeta

	pool, err := p.poolFor(ctx, meta, "RemoveLiquidityOne")
	if err != nil {
		return err
	}
	if pool == nil {
		return nil
	}

	amounts := [2]*big.Int{big.NewInt(0), big.NewInt(0)}
	switch e.CoinIndex {
	case 0:
		amounts[0] = e.CoinAmount
	case 1:
		amounts[1] = e.CoinAmount
	}

	tokenSupply := new(big.Int).Sub(pool.LPTotalSupply, e.BurnedLP)
	return p.removeLiquidity(ctx, meta, amounts, tokenSupply, "RemoveLiquidityOne")
}
