package model

import "math/big"

// TransactionType tags the economic operation behind a ledger entry.
type TransactionType string

const (
	TxAddLiquidity    TransactionType = "AMM_ADD_LIQUIDITY"
	TxRemoveLiquidity TransactionType = "AMM_REMOVE_LIQUIDITY"
	TxExchange        TransactionType = "AMM_EXCHANGE"
)

// Transaction is one ledger entry per (transaction hash, log index) pair.
// Write-once: creation is create-if-absent, an existing id short-circuits
// re-creation on replay.
type Transaction struct {
	ID        string
	Hash      string
	Block     uint64
	CreatedAt uint64
	Type      TransactionType

	Gas      *big.Int
	GasPrice *big.Int
	Fee      *big.Int
	AdminFee *big.Int

	ValueUnderlying *big.Int
	FeeUnderlying   *big.Int
	FeeRatio        *big.Int
	IBTRate         *big.Int
	PTRate          *big.Int

	User   string
	PoolID string

	// AmountsIn and AmountsOut reference AssetFlow ids.
	AmountsIn  []string
	AmountsOut []string
}
