package ledger

import (
	"context"
	"fmt"
	"math/big"

	"ptscope/internal/model"
)

// handleTokenExchange folds a swap into the ledger. The pool charges its fee
// on the bought side after the fact, so the gross amount is recovered by
// inverting the post-fee amount; a fee rate at or above the bought token's
// unit would make the inversion divide by a non-positive number and yields a
// zero fee instead.
func (p *Processor) handleTokenExchange(ctx context.Context, e *model.TokenExchangeEvent) error {
	meta := e.EventMeta

	pool, err := p.poolFor(ctx, meta, "TokenExchange")
	if err != nil {
		return err
	}
	if pool == nil {
		return nil
	}
	sides, ok, err := p.poolSides(ctx, pool, "TokenExchange")
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	buyPT := e.BoughtID != 0

	soldAsset, boughtAsset := sides.IBTAsset, sides.PTAsset
	soldType, boughtType := model.AssetIBT, model.AssetPT
	if e.SoldID != 0 {
		soldAsset, soldType = sides.PTAsset, model.AssetPT
	}
	if !buyPT {
		boughtAsset, boughtType = sides.IBTAsset, model.AssetIBT
	}

	amountIn, err := p.recordFlow(ctx, meta, soldAsset.Address, soldType, e.TokensSold)
	if err != nil {
		return err
	}
	amountOut, err := p.recordFlow(ctx, meta, boughtAsset.Address, boughtType, e.TokensBought)
	if err != nil {
		return err
	}

	boughtUnit := pow10(int(boughtAsset.Decimals))
	feeScaled := Rescale(pool.FeeRate, FeesPrecision, int(boughtAsset.Decimals))
	denom := new(big.Int).Sub(boughtUnit, feeScaled)

	fee := big.NewInt(0)
	if denom.Sign() > 0 {
		withFee := new(big.Int).Mul(e.TokensBought, boughtUnit)
		withFee.Quo(withFee, denom)
		fee = withFee.Sub(withFee, e.TokensBought)
	}
	adminFeeRateScaled := Rescale(pool.AdminFeeRate, FeesPrecision, int(boughtAsset.Decimals))
	adminFee := new(big.Int).Mul(fee, adminFeeRateScaled)
	adminFee.Quo(adminFee, boughtUnit)

	ibtDecimals := sides.IBTAsset.Decimals

	spot := p.spotPrice(ctx, pool, meta.BlockNumber)
	ibtAdminFee, ptAdminFee, newIBTBalance, newPTBalance := p.reconcileAdmin(ctx, pool, meta.BlockNumber)
	ibtRate := p.ibtRate(ctx, meta.ChainID, sides.IBTAsset, meta.BlockNumber)
	ptRate := p.ptRate(ctx, pool, sides.PTAsset, meta.BlockNumber)

	valueUnderlying := big.NewInt(0)
	feeUnderlying := big.NewInt(0)
	feeRatio := big.NewInt(0)
	if pool.FutureVaultID != "" && spot.Sign() > 0 {
		ibtLeg, ptLeg := e.TokensBought, e.TokensSold
		if buyPT {
			ibtLeg, ptLeg = e.TokensSold, e.TokensBought
		}
		valueUnderlying = TradeValueUnderlying(ibtLeg, PTInIBT(ptLeg, spot), ibtRate, ibtDecimals, false)
		feeUnderlying = LPFeeUnderlying(pool.Variant, valueUnderlying, ibtAdminFee, ptAdminFee,
			pool.FeeRate, pool.AdminFeeRate, spot, ibtRate, ibtDecimals)
		// Liquidity is measured on the reserves as they stood before this
		// swap moved them.
		liquidity := LiquidityInUnderlying(sides.IBTFlow.Amount, sides.PTFlow.Amount, spot, ibtRate, ibtDecimals)
		feeRatio = FeeRatio(feeUnderlying, liquidity)
	}

	action := model.ActionSellPT
	if buyPT {
		action = model.ActionBuyPT
	}
	if err := p.updateStats(ctx, meta, pool, statsUpdate{
		Action:          action,
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
		Type:            model.TxExchange,
		AmountsIn:       []string{amountIn.ID},
		AmountsOut:      []string{amountOut.ID},
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

	pool.TotalFees = new(big.Int).Add(pool.TotalFees, fee)
	pool.TotalFeeRatio = new(big.Int).Add(pool.TotalFeeRatio, feeRatio)
	pool.TotalAdminFees = new(big.Int).Add(pool.TotalAdminFees, adminFee)
	pool.SpotPrice = spot
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

	soldFlow, boughtFlow := sides.IBTFlow, sides.PTFlow
	if e.SoldID != 0 {
		soldFlow = sides.PTFlow
	}
	if !buyPT {
		boughtFlow = sides.IBTFlow
	}
	if err := p.setFlowAmount(ctx, soldFlow, new(big.Int).Sub(soldFlow.Amount, e.TokensSold)); err != nil {
		return err
	}
	return p.setFlowAmount(ctx, boughtFlow, new(big.Int).Add(boughtFlow.Amount, e.TokensBought))
}
