package ledger

import (
	"context"
	"fmt"
	"math/big"

	"ptscope/internal/model"
)

// statsUpdate carries the per-event figures folded into a bucket.
type statsUpdate struct {
	Action          model.PoolAction
	ValueUnderlying *big.Int
	FeeUnderlying   *big.Int
	FeeRatio        *big.Int
	SpotPrice       *big.Int
	IBTRate         *big.Int
	PTRate          *big.Int
}

// updateStats folds one event into the pool's hourly and daily buckets with
// identical inputs.
func (p *Processor) updateStats(ctx context.Context, meta model.EventMeta, pool *model.Pool, upd statsUpdate) error {
	for _, span := range []uint64{model.SecondsPerHour, model.SecondsPerDay} {
		if err := p.updateStatsBucket(ctx, meta, pool, span, upd); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) updateStatsBucket(ctx context.Context, meta model.EventMeta, pool *model.Pool, span uint64, upd statsUpdate) error {
	statID := meta.Timestamp / span
	id := model.PoolStatsID(meta.ChainID, pool.Address, span, statID)

	stats, err := p.store.GetPoolStats(ctx, id)
	if err != nil {
		return fmt.Errorf("get pool stats: %w", err)
	}
	if stats == nil {
		stats = &model.PoolStats{
			ID:             id,
			PoolID:         pool.ID,
			Span:           span,
			Timestamp:      statID * span,
			BuyVolume:      big.NewInt(0),
			SellVolume:     big.NewInt(0),
			DepositVolume:  big.NewInt(0),
			WithdrawVolume: big.NewInt(0),
			FeeUnderlying:  big.NewInt(0),
			FeeRatio:       big.NewInt(0),
			SpotPrice:      big.NewInt(0),
			IBTRate:        big.NewInt(0),
			PTRate:         big.NewInt(0),
			CreatedAt:      meta.Timestamp,
		}
	}

	switch upd.Action {
	case model.ActionBuyPT:
		stats.Buys++
		stats.BuyVolume = new(big.Int).Add(stats.BuyVolume, upd.ValueUnderlying)
	case model.ActionSellPT:
		stats.Sells++
		stats.SellVolume = new(big.Int).Add(stats.SellVolume, upd.ValueUnderlying)
	case model.ActionAddLiquidity:
		stats.Deposits++
		stats.DepositVolume = new(big.Int).Add(stats.DepositVolume, upd.ValueUnderlying)
	case model.ActionRemoveLiquidity:
		stats.Withdrawals++
		stats.WithdrawVolume = new(big.Int).Add(stats.WithdrawVolume, upd.ValueUnderlying)
	}

	stats.FeeUnderlying = new(big.Int).Add(stats.FeeUnderlying, upd.FeeUnderlying)
	stats.FeeRatio = new(big.Int).Add(stats.FeeRatio, upd.FeeRatio)
	stats.SpotPrice = orZero(upd.SpotPrice)
	stats.IBTRate = orZero(upd.IBTRate)
	stats.PTRate = orZero(upd.PTRate)
	stats.LastUpdatedAt = meta.Timestamp
	stats.LastUpdatedBlock = meta.BlockNumber

	if err := p.store.SetPoolStats(ctx, stats); err != nil {
		return fmt.Errorf("set pool stats: %w", err)
	}
	return nil
}
