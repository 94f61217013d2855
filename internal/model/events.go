package model

import "math/big"

// EventMeta carries the chain context shared by every pool event. The decoder
// fills it from the raw log; the processor never touches raw logs.
type EventMeta struct {
	ChainID     uint64
	Address     string
	BlockNumber uint64
	Timestamp   uint64
	TxHash      string
	TxFrom      string
	LogIndex    uint64
	GasUsed     uint64
	GasPrice    *big.Int
}

// PoolEvent is a normalized, variant-independent pool event. Each variant's
// decoder adapts its own event shape into one of these records.
type PoolEvent interface {
	Meta() EventMeta
}

// PoolDeployedEvent is the factory event announcing a new pool.
type PoolDeployedEvent struct {
	EventMeta
	Pool    string
	IBT     string
	PT      string
	Factory string
}

// AddLiquidityEvent is a two-sided deposit. TokenAmounts is [IBT, PT].
// RawFee is in the pool's native fee precision; zero for variants whose
// event does not carry it.
type AddLiquidityEvent struct {
	EventMeta
	TokenAmounts [2]*big.Int
	RawFee       *big.Int
}

// RemoveLiquidityEvent is a two-sided withdrawal. TokenSupply is the LP total
// supply after the removal as reported by the event.
type RemoveLiquidityEvent struct {
	EventMeta
	TokenAmounts [2]*big.Int
	TokenSupply  *big.Int
}

// RemoveLiquidityOneEvent is a single-sided withdrawal; CoinIndex selects the
// side (0 = IBT, 1 = PT) and BurnedLP the LP amount burned.
type RemoveLiquidityOneEvent struct {
	EventMeta
	CoinAmount *big.Int
	CoinIndex  int64
	BurnedLP   *big.Int
}

// TokenExchangeEvent is a swap; indices follow the pool coin order
// (0 = IBT, 1 = PT).
type TokenExchangeEvent struct {
	EventMeta
	SoldID       int64
	TokensSold   *big.Int
	BoughtID     int64
	TokensBought *big.Int
}

// ClaimAdminFeeEvent is an explicit admin fee skim. NG marks the next-gen
// event shape, whose handling is an intentional no-op.
type ClaimAdminFeeEvent struct {
	EventMeta
	Admin  string
	Tokens *big.Int
	NG     bool
}

// CommitNewParametersEvent announces a pending admin fee change.
type CommitNewParametersEvent struct {
	EventMeta
	AdminFee *big.Int
	Deadline *big.Int
}

// NewParametersEvent applies an admin fee change. NG marks the next-gen
// event shape, whose handling is an intentional no-op.
type NewParametersEvent struct {
	EventMeta
	AdminFee *big.Int
	NG       bool
}

func (m EventMeta) Meta() EventMeta { return m }
