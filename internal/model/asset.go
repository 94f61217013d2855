package model

import "math/big"

// AssetType tags the role a token plays in a pool.
type AssetType string

const (
	AssetIBT AssetType = "IBT"
	AssetPT  AssetType = "PT"
	AssetLP  AssetType = "LP"
)

// Asset is an ERC-20 token observed by the indexer.
type Asset struct {
	ID        string
	ChainID   uint64
	Address   string
	Type      AssetType
	Decimals  uint8
	Symbol    string
	Name      string
	CreatedAt uint64
}

// AssetFlow records an amount of one asset moving in one
// (transaction, log index, asset, type) tuple. The amount accumulates
// additively when the same key is referenced again, which covers multiple
// legs of one swap touching the same asset. Pool reserve flows reuse the
// same shape with the pool's deploy transaction as key.
type AssetFlow struct {
	ID        string
	AssetID   string
	Amount    *big.Int
	CreatedAt uint64
}
