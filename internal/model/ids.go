package model

import (
	"fmt"
	"strings"
)

// Entity ids are chain-prefixed so concurrent chain streams own disjoint
// keyspaces. Addresses are lowercased before use.

func PoolID(chainID uint64, poolAddress string) string {
	return fmt.Sprintf("%d-%s", chainID, strings.ToLower(poolAddress))
}

func AssetID(chainID uint64, assetAddress string) string {
	return fmt.Sprintf("%d-%s", chainID, strings.ToLower(assetAddress))
}

func AssetFlowID(chainID uint64, txHash, assetAddress string, assetType AssetType, logIndex uint64) string {
	return fmt.Sprintf("%d-%s-%s-%s-%d", chainID, strings.ToLower(txHash), strings.ToLower(assetAddress), assetType, logIndex)
}

func TransactionID(chainID uint64, txHash string, logIndex uint64) string {
	return fmt.Sprintf("%d-%s-%d", chainID, strings.ToLower(txHash), logIndex)
}

func PoolStatsID(chainID uint64, poolAddress string, span, statID uint64) string {
	return fmt.Sprintf("%d-%s-S-%d-%d", chainID, strings.ToLower(poolAddress), span, statID)
}

func FeeClaimID(chainID uint64, collector string, timestamp uint64) string {
	return fmt.Sprintf("%d-%d-%s", chainID, timestamp, strings.ToLower(collector))
}

func FutureVaultID(chainID uint64, ptAddress string) string {
	return fmt.Sprintf("%d-%s", chainID, strings.ToLower(ptAddress))
}
