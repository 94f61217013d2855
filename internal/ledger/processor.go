package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ptscope/internal/model"
	"ptscope/internal/store"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// Processor folds normalized pool events into the derived ledger: pool state,
// asset flows, transactions, stats buckets and fee claims. Events arrive
// strictly ordered per chain and are processed one at a time, so no locking
// happens here. Handlers are idempotent guards: a missing referenced entity
// logs a warning and leaves state untouched.
type Processor struct {
	store  store.Store
	reader ChainReader
	logger *zap.Logger
}

func NewProcessor(st store.Store, reader ChainReader, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{store: st, reader: reader, logger: logger}
}

// Process dispatches one event to its handler. Store errors propagate;
// everything else degrades per the documented policy.
func (p *Processor) Process(ctx context.Context, ev model.PoolEvent) error {
	switch e := ev.(type) {
	case *model.PoolDeployedEvent:
		return p.handlePoolDeployed(ctx, e)
	case *model.AddLiquidityEvent:
		return p.handleAddLiquidity(ctx, e)
	case *model.RemoveLiquidityEvent:
		return p.removeLiquidity(ctx, e.EventMeta, e.TokenAmounts, e.TokenSupply, "RemoveLiquidity")
	case *model.RemoveLiquidityOneEvent:
		return p.handleRemoveLiquidityOne(ctx, e)
	case *model.TokenExchangeEvent:
		return p.handleTokenExchange(ctx, e)
	case *model.ClaimAdminFeeEvent:
		return p.handleClaimAdminFee(ctx, e)
	case *model.CommitNewParametersEvent:
		return p.handleCommitNewParameters(ctx, e)
	case *model.NewParametersEvent:
		return p.handleNewParameters(ctx, e)
	default:
		p.logger.Warn("unhandled event type", zap.String("type", fmt.Sprintf("%T", ev)))
		return nil
	}
}

// poolFor loads the pool an event refers to. A miss is non-fatal: the event
// belongs to a pool this indexer has not learned about.
func (p *Processor) poolFor(ctx context.Context, meta model.EventMeta, handler string) (*model.Pool, error) {
	pool, err := p.store.GetPool(ctx, model.PoolID(meta.ChainID, meta.Address))
	if err != nil {
		return nil, fmt.Errorf("get pool: %w", err)
	}
	if pool == nil {
		p.logger.Warn("event for unknown pool",
			zap.String("handler", handler),
			zap.String("pool", meta.Address),
			zap.Uint64("chain_id", meta.ChainID),
		)
	}
	return pool, nil
}

// poolSides resolves the pool's reserve flows and their assets.
type poolSides struct {
	IBTFlow  *model.AssetFlow
	PTFlow   *model.AssetFlow
	IBTAsset *model.Asset
	PTAsset  *model.Asset
}

func (p *Processor) poolSides(ctx context.Context, pool *model.Pool, handler string) (poolSides, bool, error) {
	var sides poolSides
	var err error

	sides.IBTFlow, err = p.store.GetAssetFlow(ctx, pool.IBTFlowID)
	if err != nil {
		return sides, false, fmt.Errorf("get ibt flow: %w", err)
	}
	sides.PTFlow, err = p.store.GetAssetFlow(ctx, pool.PTFlowID)
	if err != nil {
		return sides, false, fmt.Errorf("get pt flow: %w", err)
	}
	if sides.IBTFlow == nil || sides.PTFlow == nil {
		p.logger.Warn("missing reserve flows for pool", zap.String("handler", handler), zap.String("pool", pool.Address))
		return sides, false, nil
	}

	sides.IBTAsset, err = p.store.GetAsset(ctx, sides.IBTFlow.AssetID)
	if err != nil {
		return sides, false, fmt.Errorf("get ibt asset: %w", err)
	}
	sides.PTAsset, err = p.store.GetAsset(ctx, sides.PTFlow.AssetID)
	if err != nil {
		return sides, false, fmt.Errorf("get pt asset: %w", err)
	}
	if sides.IBTAsset == nil || sides.PTAsset == nil {
		p.logger.Warn("missing assets for pool", zap.String("handler", handler), zap.String("pool", pool.Address))
		return sides, false, nil
	}

	return sides, true, nil
}

// Read helpers applying the documented per-field default when a chain read
// fails. The failure stays observable in logs while processing continues.

func (p *Processor) spotPrice(ctx context.Context, pool *model.Pool, block uint64) *big.Int {
	v, err := p.reader.SpotPrice(ctx, pool.ChainID, common.HexToAddress(pool.Address), pool.Variant, block)
	if err != nil {
		p.logger.Warn("spot price read failed, defaulting to zero", zap.String("pool", pool.Address), zap.Error(err))
		return big.NewInt(0)
	}
	return v
}

func (p *Processor) ibtRate(ctx context.Context, chainID uint64, ibt *model.Asset, block uint64) *big.Int {
	v, err := p.reader.IBTRate(ctx, chainID, common.HexToAddress(ibt.Address), ibt.Decimals, block)
	if err != nil {
		p.logger.Warn("ibt rate read failed, defaulting to unit", zap.String("ibt", ibt.Address), zap.Error(err))
		return big.NewInt(1)
	}
	return v
}

func (p *Processor) ptRate(ctx context.Context, pool *model.Pool, pt *model.Asset, block uint64) *big.Int {
	if pool.FutureVaultID == "" {
		return big.NewInt(0)
	}
	v, err := p.reader.PTRate(ctx, pool.ChainID, common.HexToAddress(pt.Address), block)
	if err != nil {
		p.logger.Warn("pt rate read failed, defaulting to zero", zap.String("pt", pt.Address), zap.Error(err))
		return big.NewInt(0)
	}
	return v
}

func (p *Processor) feeRate(ctx context.Context, pool *model.Pool, block uint64) *big.Int {
	v, err := p.reader.FeeRate(ctx, pool.ChainID, common.HexToAddress(pool.Address), block)
	if err != nil {
		p.logger.Warn("fee rate read failed, defaulting to zero", zap.String("pool", pool.Address), zap.Error(err))
		return big.NewInt(0)
	}
	return v
}

func (p *Processor) adminFeeRate(ctx context.Context, pool *model.Pool, block uint64) *big.Int {
	v, err := p.reader.AdminFeeRate(ctx, pool.ChainID, common.HexToAddress(pool.Address), block)
	if err != nil {
		p.logger.Warn("admin fee rate read failed, defaulting to zero", zap.String("pool", pool.Address), zap.Error(err))
		return big.NewInt(0)
	}
	return v
}

func (p *Processor) futureAdminFeeRate(ctx context.Context, pool *model.Pool, block uint64) *big.Int {
	v, err := p.reader.FutureAdminFeeRate(ctx, pool.ChainID, common.HexToAddress(pool.Address), block)
	if err != nil {
		p.logger.Warn("future admin fee rate read failed, defaulting to zero", zap.String("pool", pool.Address), zap.Error(err))
		return big.NewInt(0)
	}
	return v
}

func (p *Processor) virtualPrice(ctx context.Context, pool *model.Pool, block uint64) *big.Int {
	v, err := p.reader.VirtualPrice(ctx, pool.ChainID, common.HexToAddress(pool.Address), block)
	if err != nil {
		p.logger.Warn("virtual price read failed, defaulting to zero", zap.String("pool", pool.Address), zap.Error(err))
		return big.NewInt(0)
	}
	return v
}

func (p *Processor) lpToken(ctx context.Context, pool *model.Pool, block uint64) common.Address {
	addr, err := p.reader.LPToken(ctx, pool.ChainID, common.HexToAddress(pool.Address), pool.Variant, block)
	if err != nil {
		p.logger.Warn("lp token read failed, falling back to stored address", zap.String("pool", pool.Address), zap.Error(err))
		if pool.LPTokenAddress != "" {
			return common.HexToAddress(pool.LPTokenAddress)
		}
		return common.Address{}
	}
	return addr
}

func (p *Processor) totalSupply(ctx context.Context, chainID uint64, token common.Address, block uint64) *big.Int {
	v, err := p.reader.TotalSupply(ctx, chainID, token, block)
	if err != nil {
		p.logger.Warn("total supply read failed, defaulting to zero", zap.String("token", token.Hex()), zap.Error(err))
		return big.NewInt(0)
	}
	return v
}

// reconcileAdmin folds freshly read admin balances into fee deltas. Pools
// without discrete admin balances always return zero fees and unchanged
// balances.
func (p *Processor) reconcileAdmin(ctx context.Context, pool *model.Pool, block uint64) (ibtFee, ptFee, newIBT, newPT *big.Int) {
	if pool.Variant != model.VariantStableNG {
		return big.NewInt(0), big.NewInt(0),
			new(big.Int).Set(pool.IBTAdminBalance), new(big.Int).Set(pool.PTAdminBalance)
	}

	curIBT, curPT, err := p.reader.AdminBalances(ctx, pool.ChainID, common.HexToAddress(pool.Address), block)
	if err != nil {
		p.logger.Warn("admin balances read failed, defaulting to zero", zap.String("pool", pool.Address), zap.Error(err))
		curIBT, curPT = big.NewInt(0), big.NewInt(0)
	}
	return ReconcileAdminBalances(pool.IBTAdminBalance, pool.PTAdminBalance, curIBT, curPT)
}
