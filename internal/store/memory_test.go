package store

import (
	"context"
	"math/big"
	"testing"

	"ptscope/internal/model"
)

func TestMemoryAbsentIDsReturnNil(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	pool, err := m.GetPool(ctx, "1-0xmissing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool != nil {
		t.Fatalf("expected nil for absent pool, got %+v", pool)
	}

	tx, err := m.GetTransaction(ctx, "1-0xmissing-0")
	if err != nil || tx != nil {
		t.Fatalf("expected nil transaction, got %+v err %v", tx, err)
	}
}

func TestMemorySetThenGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	flow := &model.AssetFlow{ID: "1-0xtx-0xtoken-IBT-0", AssetID: "1-0xtoken", Amount: big.NewInt(42)}
	if err := m.SetAssetFlow(ctx, flow); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := m.GetAssetFlow(ctx, flow.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil || got.Amount.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	// replacing the same id overwrites
	if err := m.SetAssetFlow(ctx, &model.AssetFlow{ID: flow.ID, AssetID: flow.AssetID, Amount: big.NewInt(99)}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, _ = m.GetAssetFlow(ctx, flow.ID)
	if got.Amount.Cmp(big.NewInt(99)) != 0 {
		t.Fatalf("expected overwrite to 99, got %s", got.Amount)
	}
}

func TestMemoryPoolAddressesFiltersByChain(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	pools := []*model.Pool{
		{ID: "1-0xaaa", ChainID: 1, Address: "0xaaa"},
		{ID: "1-0xbbb", ChainID: 1, Address: "0xbbb"},
		{ID: "8453-0xccc", ChainID: 8453, Address: "0xccc"},
	}
	for _, p := range pools {
		if err := m.SetPool(ctx, p); err != nil {
			t.Fatalf("set failed: %v", err)
		}
	}

	addrs, err := m.PoolAddresses(ctx, 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(addrs) != 2 {
		t.Fatalf("expected 2 addresses on chain 1, got %d", len(addrs))
	}
	for _, a := range addrs {
		if a == "0xccc" {
			t.Fatalf("chain 8453 pool leaked into chain 1 listing")
		}
	}
}
