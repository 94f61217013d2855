package model

import "math/big"

// PoolVariant identifies which pool implementation emitted an event.
// Classification happens once per address and is cached for the run.
type PoolVariant string

const (
	// VariantCrypto is the classic two-coin crypto pool (probe: ma_half_time).
	VariantCrypto PoolVariant = "CRYPTO"
	// VariantCryptoNG is the next-gen crypto pool (probe: ma_time).
	VariantCryptoNG PoolVariant = "CRYPTO_NG"
	// VariantStableNG is the stableswap-NG pool (probe: decimals). It is the
	// only variant exposing discrete admin balances.
	VariantStableNG PoolVariant = "STABLE_NG"
	// VariantUnknown means every probe failed.
	VariantUnknown PoolVariant = "UNKNOWN"
)

// Pool is the derived economic state of one AMM pool contract, namespaced by
// chain. Created on the factory deploy event, mutated by every subsequent
// liquidity/swap/fee event, never deleted.
type Pool struct {
	ID        string
	ChainID   uint64
	Address   string
	Variant   PoolVariant
	CreatedAt uint64

	FeeRate                *big.Int // fixed point, fee precision (10)
	AdminFeeRate           *big.Int // fixed point, fee precision (10)
	FutureAdminFeeRate     *big.Int
	FutureAdminFeeDeadline *big.Int

	// InitialVirtualPrice is latched once, on first liquidity; zero means unset.
	InitialVirtualPrice *big.Int

	// Admin balances are monotonically non-decreasing between claims; a
	// decrease signals an external reset and is handled by the reconciler.
	IBTAdminBalance *big.Int
	PTAdminBalance  *big.Int

	LPTotalSupply *big.Int
	SpotPrice     *big.Int

	TotalFees             *big.Int
	TotalAdminFees        *big.Int
	TotalClaimedAdminFees *big.Int
	TotalFeeRatio         *big.Int

	TransactionCount uint64

	LPTokenAddress string
	// IBTFlowID and PTFlowID reference the AssetFlow records holding the
	// pool's running reserve on each side.
	IBTFlowID string
	PTFlowID  string
	// FutureVaultID is the chain-prefixed id of the future vault the pool's PT
	// belongs to; empty disables valuation for the pool's events.
	FutureVaultID string
}
