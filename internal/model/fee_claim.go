package model

import "math/big"

// FeeClaim is an append-only record of an admin fee skim. Explicit claim
// events carry the claimed amount; stableswap-NG pools additionally emit one
// per event where an admin-balance delta is detected, with only the deltas.
type FeeClaim struct {
	ID        string
	Collector string
	PoolID    string
	Amount    *big.Int
	IBTAmount *big.Int
	PTAmount  *big.Int
	CreatedAt uint64
}
