package store

import (
	"context"
	"sync"

	"ptscope/internal/model"
)

// Memory is a map-backed Store. It backs tests and single-run indexing
// without a database.
type Memory struct {
	mu           sync.RWMutex
	pools        map[string]*model.Pool
	assets       map[string]*model.Asset
	flows        map[string]*model.AssetFlow
	transactions map[string]*model.Transaction
	stats        map[string]*model.PoolStats
	claims       map[string]*model.FeeClaim
}

func NewMemory() *Memory {
	return &Memory{
		pools:        make(map[string]*model.Pool),
		assets:       make(map[string]*model.Asset),
		flows:        make(map[string]*model.AssetFlow),
		transactions: make(map[string]*model.Transaction),
		stats:        make(map[string]*model.PoolStats),
		claims:       make(map[string]*model.FeeClaim),
	}
}

func (m *Memory) GetPool(_ context.Context, id string) (*model.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pools[id], nil
}

func (m *Memory) SetPool(_ context.Context, pool *model.Pool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools[pool.ID] = pool
	return nil
}

func (m *Memory) GetAsset(_ context.Context, id string) (*model.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.assets[id], nil
}

func (m *Memory) SetAsset(_ context.Context, asset *model.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[asset.ID] = asset
	return nil
}

func (m *Memory) GetAssetFlow(_ context.Context, id string) (*model.AssetFlow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flows[id], nil
}

func (m *Memory) SetAssetFlow(_ context.Context, flow *model.AssetFlow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flows[flow.ID] = flow
	return nil
}

func (m *Memory) GetTransaction(_ context.Context, id string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactions[id], nil
}

func (m *Memory) SetTransaction(_ context.Context, tx *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[tx.ID] = tx
	return nil
}

func (m *Memory) GetPoolStats(_ context.Context, id string) (*model.PoolStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats[id], nil
}

func (m *Memory) SetPoolStats(_ context.Context, stats *model.PoolStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[stats.ID] = stats
	return nil
}

func (m *Memory) SetFeeClaim(_ context.Context, claim *model.FeeClaim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[claim.ID] = claim
	return nil
}

func (m *Memory) PoolAddresses(_ context.Context, chainID uint64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	addresses := make([]string, 0, len(m.pools))
	for _, pool := range m.pools {
		if pool.ChainID == chainID {
			addresses = append(addresses, pool.Address)
		}
	}
	return addresses, nil
}

// FeeClaims returns all stored fee claims; test helper.
func (m *Memory) FeeClaims() []*model.FeeClaim {
	m.mu.RLock()
	defer m.mu.RUnlock()
	claims := make([]*model.FeeClaim, 0, len(m.claims))
	for _, claim := range m.claims {
		claims = append(claims, claim)
	}
	return claims
}
