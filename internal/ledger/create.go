package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ptscope/internal/model"
)

// handlePoolDeployed seeds the pool entity off the factory event: reserve
// flows at zero, fee parameters and spot price read at the deploy block, and
// the variant classified once. Replaying the deploy is a no-op.
func (p *Processor) handlePoolDeployed(ctx context.Context, e *model.PoolDeployedEvent) error {
	meta := e.EventMeta
	id := model.PoolID(meta.ChainID, e.Pool)

	existing, err := p.store.GetPool(ctx, id)
	if err != nil {
		return fmt.Errorf("get pool: %w", err)
	}
	if existing != nil {
		return nil
	}

	variant, err := p.reader.PoolVariant(ctx, meta.ChainID, common.HexToAddress(e.Pool), meta.BlockNumber)
	if err != nil {
		p.logger.Warn("pool classification failed", zap.String("pool", e.Pool), zap.Error(err))
		variant = model.VariantUnknown
	}

	ibtFlow, err := p.recordFlow(ctx, meta, e.IBT, model.AssetIBT, big.NewInt(0))
	if err != nil {
		return err
	}
	ptFlow, err := p.recordFlow(ctx, meta, e.PT, model.AssetPT, big.NewInt(0))
	if err != nil {
		return err
	}

	pool := &model.Pool{
		ID:        id,
		ChainID:   meta.ChainID,
		Address:   strings.ToLower(e.Pool),
		Variant:   variant,
		CreatedAt: meta.Timestamp,

		FutureAdminFeeDeadline: big.NewInt(0),
		InitialVirtualPrice:    big.NewInt(0),
		IBTAdminBalance:        big.NewInt(0),
		PTAdminBalance:         big.NewInt(0),
		LPTotalSupply:          big.NewInt(0),
		TotalFees:              big.NewInt(0),
		TotalAdminFees:         big.NewInt(0),
		TotalClaimedAdminFees:  big.NewInt(0),
		TotalFeeRatio:          big.NewInt(0),

		IBTFlowID:     ibtFlow.ID,
		PTFlowID:      ptFlow.ID,
		FutureVaultID: model.FutureVaultID(meta.ChainID, e.PT),
	}

	lpAddr := p.lpToken(ctx, pool, meta.BlockNumber)
	pool.LPTokenAddress = strings.ToLower(lpAddr.Hex())
	if pool.LPTokenAddress != zeroAddress {
		if _, err := p.ensureAsset(ctx, meta, pool.LPTokenAddress, model.AssetLP); err != nil {
			return err
		}
	}

	pool.FeeRate = p.feeRate(ctx, pool, meta.BlockNumber)
	pool.AdminFeeRate = p.adminFeeRate(ctx, pool, meta.BlockNumber)
	pool.FutureAdminFeeRate = p.futureAdminFeeRate(ctx, pool, meta.BlockNumber)
	pool.SpotPrice = p.spotPrice(ctx, pool, meta.BlockNumber)

	if err := p.store.SetPool(ctx, pool); err != nil {
		return fmt.Errorf("set pool: %w", err)
	}
	return nil
}
