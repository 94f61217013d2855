package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ptscope/internal/model"
)

// ensureAsset gets or creates the Asset entity for a token. Metadata reads
// that fail leave a usable asset behind: decimals default to 18.
func (p *Processor) ensureAsset(ctx context.Context, meta model.EventMeta, address string, typ model.AssetType) (*model.Asset, error) {
	id := model.AssetID(meta.ChainID, address)
	asset, err := p.store.GetAsset(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	if asset != nil {
		return asset, nil
	}

	tokenMeta, err := p.reader.TokenMeta(ctx, meta.ChainID, common.HexToAddress(address), meta.BlockNumber)
	if err != nil {
		p.logger.Warn("token metadata read failed, defaulting decimals to 18", zap.String("token", address), zap.Error(err))
		tokenMeta = model.TokenMeta{Address: address, Decimals: 18}
	}

	asset = &model.Asset{
		ID:        id,
		ChainID:   meta.ChainID,
		Address:   address,
		Type:      typ,
		Decimals:  tokenMeta.Decimals,
		Symbol:    tokenMeta.Symbol,
		Name:      tokenMeta.Name,
		CreatedAt: meta.Timestamp,
	}
	if err := p.store.SetAsset(ctx, asset); err != nil {
		return nil, fmt.Errorf("set asset: %w", err)
	}
	return asset, nil
}

// recordFlow gets or creates the AssetFlow for an event leg and accumulates
// the amount. Repeated references within the same
// (transaction, asset, log index, type) key add up, which covers several legs
// of one operation touching the same asset.
func (p *Processor) recordFlow(ctx context.Context, meta model.EventMeta, assetAddress string, typ model.AssetType, amount *big.Int) (*model.AssetFlow, error) {
	asset, err := p.ensureAsset(ctx, meta, assetAddress, typ)
	if err != nil {
		return nil, err
	}

	id := model.AssetFlowID(meta.ChainID, meta.TxHash, assetAddress, typ, meta.LogIndex)
	flow, err := p.store.GetAssetFlow(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get asset flow: %w", err)
	}
	if flow == nil {
		flow = &model.AssetFlow{
			ID:        id,
			AssetID:   asset.ID,
			Amount:    big.NewInt(0),
			CreatedAt: meta.Timestamp,
		}
	}

	flow.Amount = new(big.Int).Add(flow.Amount, amount)
	if err := p.store.SetAssetFlow(ctx, flow); err != nil {
		return nil, fmt.Errorf("set asset flow: %w", err)
	}
	return flow, nil
}

// setFlowAmount replaces a reserve flow's running amount.
func (p *Processor) setFlowAmount(ctx context.Context, flow *model.AssetFlow, amount *big.Int) error {
	flow.Amount = amount
	if err := p.store.SetAssetFlow(ctx, flow); err != nil {
		return fmt.Errorf("set asset flow: %w", err)
	}
	return nil
}

// txRecord bundles everything that goes into one ledger entry.
type txRecord struct {
	Type            model.TransactionType
	AmountsIn       []string
	AmountsOut      []string
	ValueUnderlying *big.Int
	FeeUnderlying   *big.Int
	FeeRatio        *big.Int
	Fee             *big.Int
	AdminFee        *big.Int
	IBTRate         *big.Int
	PTRate          *big.Int
}

// writeTransaction creates the ledger entry for an event if it does not
// already exist. Reports whether a new entry was created; replaying the same
// (transaction hash, log index) is a no-op.
func (p *Processor) writeTransaction(ctx context.Context, meta model.EventMeta, pool *model.Pool, rec txRecord) (bool, error) {
	id := model.TransactionID(meta.ChainID, meta.TxHash, meta.LogIndex)
	existing, err := p.store.GetTransaction(ctx, id)
	if err != nil {
		return false, fmt.Errorf("get transaction: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	tx := &model.Transaction{
		ID:              id,
		Hash:            meta.TxHash,
		Block:           meta.BlockNumber,
		CreatedAt:       meta.Timestamp,
		Type:            rec.Type,
		Gas:             new(big.Int).SetUint64(meta.GasUsed),
		GasPrice:        orZero(meta.GasPrice),
		Fee:             orZero(rec.Fee),
		AdminFee:        orZero(rec.AdminFee),
		ValueUnderlying: orZero(rec.ValueUnderlying),
		FeeUnderlying:   orZero(rec.FeeUnderlying),
		FeeRatio:        orZero(rec.FeeRatio),
		IBTRate:         orZero(rec.IBTRate),
		PTRate:          orZero(rec.PTRate),
		User:            meta.TxFrom,
		PoolID:          pool.ID,
		AmountsIn:       rec.AmountsIn,
		AmountsOut:      rec.AmountsOut,
	}
	if err := p.store.SetTransaction(ctx, tx); err != nil {
		return false, fmt.Errorf("set transaction: %w", err)
	}
	return true, nil
}

// appendFeeClaim records an admin fee skim.
func (p *Processor) appendFeeClaim(ctx context.Context, meta model.EventMeta, poolID, collector string, amount, ibtAmount, ptAmount *big.Int) error {
	claim := &model.FeeClaim{
		ID:        model.FeeClaimID(meta.ChainID, collector, meta.Timestamp),
		Collector: collector,
		PoolID:    poolID,
		Amount:    orZero(amount),
		IBTAmount: orZero(ibtAmount),
		PTAmount:  orZero(ptAmount),
		CreatedAt: meta.Timestamp,
	}
	if err := p.store.SetFeeClaim(ctx, claim); err != nil {
		return fmt.Errorf("set fee claim: %w", err)
	}
	return nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
