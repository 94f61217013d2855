package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"ptscope/internal/model"
)

// ChainReader supplies chain state for the processor. Every read is pinned to
// a block number; implementations cache repeated reads for the same
// (chain, address, block) tuple since historical state at a fixed block never
// changes. Errors are surfaced to the processor, which substitutes the
// documented per-field default and continues.
type ChainReader interface {
	// PoolVariant classifies a pool implementation, memoized per
	// (chain, address).
	PoolVariant(ctx context.Context, chainID uint64, pool common.Address, block uint64) (model.PoolVariant, error)

	// SpotPrice returns the pool's last price, fixed point at PriceUnit.
	// Default on failure: zero (disables valuation for the event).
	SpotPrice(ctx context.Context, chainID uint64, pool common.Address, variant model.PoolVariant, block uint64) (*big.Int, error)

	// AdminBalances returns the pool's (IBT-side, PT-side) admin balances.
	// Only meaningful for the stableswap-NG variant. Default: zero, zero.
	AdminBalances(ctx context.Context, chainID uint64, pool common.Address, block uint64) (*big.Int, *big.Int, error)

	// FeeRate, AdminFeeRate and FutureAdminFeeRate are fixed point at
	// FeesPrecision. Default: zero.
	FeeRate(ctx context.Context, chainID uint64, pool common.Address, block uint64) (*big.Int, error)
	AdminFeeRate(ctx context.Context, chainID uint64, pool common.Address, block uint64) (*big.Int, error)
	FutureAdminFeeRate(ctx context.Context, chainID uint64, pool common.Address, block uint64) (*big.Int, error)

	// VirtualPrice is the pool LP virtual price. Default: zero (left unset).
	VirtualPrice(ctx context.Context, chainID uint64, pool common.Address, block uint64) (*big.Int, error)

	// LPToken resolves the pool's LP token address. Default: zero address.
	LPToken(ctx context.Context, chainID uint64, pool common.Address, variant model.PoolVariant, block uint64) (common.Address, error)

	// TotalSupply is the ERC-20 total supply of a token. Default: zero.
	TotalSupply(ctx context.Context, chainID uint64, token common.Address, block uint64) (*big.Int, error)

	// IBTRate is the IBT-to-underlying exchange rate for 10^decimals shares
	// (ERC-4626 convertToAssets). Default on failure: unit rate (1).
	IBTRate(ctx context.Context, chainID uint64, ibt common.Address, decimals uint8, block uint64) (*big.Int, error)

	// PTRate is the principal token's rate from its future vault.
	// Default: zero.
	PTRate(ctx context.Context, chainID uint64, pt common.Address, block uint64) (*big.Int, error)

	// TokenMeta reads ERC-20 metadata. Default decimals on failure: 18.
	TokenMeta(ctx context.Context, chainID uint64, token common.Address, block uint64) (model.TokenMeta, error)
}
