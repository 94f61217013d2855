package store

import (
	"context"

	"ptscope/internal/model"
)

// Store is the entity store the ledger writes through. Getters return
// (nil, nil) for an absent id. Each chain stream processes sequentially and
// owns its chain-prefixed keyspace, so implementations do not need atomic
// read-modify-write.
type Store interface {
	GetPool(ctx context.Context, id string) (*model.Pool, error)
	SetPool(ctx context.Context, pool *model.Pool) error

	GetAsset(ctx context.Context, id string) (*model.Asset, error)
	SetAsset(ctx context.Context, asset *model.Asset) error

	GetAssetFlow(ctx context.Context, id string) (*model.AssetFlow, error)
	SetAssetFlow(ctx context.Context, flow *model.AssetFlow) error

	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	SetTransaction(ctx context.Context, tx *model.Transaction) error

	GetPoolStats(ctx context.Context, id string) (*model.PoolStats, error)
	SetPoolStats(ctx context.Context, stats *model.PoolStats) error

	SetFeeClaim(ctx context.Context, claim *model.FeeClaim) error

	// PoolAddresses lists the addresses of known pools on one chain, used by
	// the runner to extend its log filter as pools are deployed.
	PoolAddresses(ctx context.Context, chainID uint64) ([]string, error)
}
