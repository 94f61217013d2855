package model

import "math/big"

// Bucket widths maintained per pool per event.
const (
	SecondsPerHour uint64 = 3600
	SecondsPerDay  uint64 = 86400
)

// PoolAction classifies an event for stats accumulation.
type PoolAction string

const (
	ActionBuyPT           PoolAction = "BUY_PT"
	ActionSellPT          PoolAction = "SELL_PT"
	ActionAddLiquidity    PoolAction = "ADD_LIQUIDITY"
	ActionRemoveLiquidity PoolAction = "REMOVE_LIQUIDITY"
)

// PoolStats is one fixed-width time bucket of per-pool statistics, keyed by
// (pool, span, bucket index). Created lazily on the first event in the
// bucket, mutated additively, never deleted.
type PoolStats struct {
	ID     string
	PoolID string
	Span   uint64
	// Timestamp is the bucket start, bucketIndex * span.
	Timestamp uint64

	Buys        uint64
	Sells       uint64
	Deposits    uint64
	Withdrawals uint64

	BuyVolume      *big.Int
	SellVolume     *big.Int
	DepositVolume  *big.Int
	WithdrawVolume *big.Int

	FeeUnderlying *big.Int
	FeeRatio      *big.Int

	SpotPrice *big.Int
	IBTRate   *big.Int
	PTRate    *big.Int

	CreatedAt        uint64
	LastUpdatedAt    uint64
	LastUpdatedBlock uint64
}
