package ledger

import (
	"context"
	"math/big"
	"testing"

	"ptscope/internal/model"
	"ptscope/internal/store"
)

func statsFixture(t *testing.T) (*Processor, *store.Memory, *model.Pool) {
	t.Helper()
	mem := store.NewMemory()
	p := NewProcessor(mem, newStubReader(), nil)
	pool := &model.Pool{
		ID:      model.PoolID(1, testPool),
		ChainID: 1,
		Address: testPool,
	}
	return p, mem, pool
}

func metaAt(timestamp, block uint64) model.EventMeta {
	return model.EventMeta{ChainID: 1, Address: testPool, BlockNumber: block, Timestamp: timestamp}
}

func TestStatsSameBucketAccumulates(t *testing.T) {
	p, mem, pool := statsFixture(t)
	ctx := context.Background()

	// both timestamps fall in hour bucket 472222
	for _, ts := range []uint64{1_700_000_100, 1_700_000_400} {
		err := p.updateStats(ctx, metaAt(ts, 100), pool, statsUpdate{
			Action:          model.ActionBuyPT,
			ValueUnderlying: big.NewInt(1000),
			FeeUnderlying:   big.NewInt(3),
			FeeRatio:        big.NewInt(7),
			SpotPrice:       big.NewInt(5),
		})
		if err != nil {
			t.Fatalf("updateStats failed: %v", err)
		}
	}

	stats, err := mem.GetPoolStats(ctx, model.PoolStatsID(1, testPool, model.SecondsPerHour, 1_700_000_100/model.SecondsPerHour))
	if err != nil || stats == nil {
		t.Fatalf("bucket missing: %v", err)
	}
	if stats.Buys != 2 {
		t.Fatalf("expected 2 buys, got %d", stats.Buys)
	}
	if stats.BuyVolume.Cmp(big.NewInt(2000)) != 0 {
		t.Fatalf("expected buy volume 2000, got %s", stats.BuyVolume)
	}
	if stats.FeeUnderlying.Cmp(big.NewInt(6)) != 0 {
		t.Fatalf("expected fee 6, got %s", stats.FeeUnderlying)
	}
	if stats.FeeRatio.Cmp(big.NewInt(14)) != 0 {
		t.Fatalf("expected fee ratio 14, got %s", stats.FeeRatio)
	}
	if stats.LastUpdatedAt != 1_700_000_400 {
		t.Fatalf("expected last update 1700000400, got %d", stats.LastUpdatedAt)
	}
	if stats.Timestamp != (1_700_000_100/model.SecondsPerHour)*model.SecondsPerHour {
		t.Fatalf("bucket start mismatch: %d", stats.Timestamp)
	}
}

func TestStatsBucketBoundaryStartsFresh(t *testing.T) {
	p, mem, pool := statsFixture(t)
	ctx := context.Background()

	first := uint64(1_700_000_100)
	next := (first/model.SecondsPerHour + 1) * model.SecondsPerHour

	for _, ts := range []uint64{first, next} {
		err := p.updateStats(ctx, metaAt(ts, 100), pool, statsUpdate{
			Action:          model.ActionAddLiquidity,
			ValueUnderlying: big.NewInt(500),
			FeeUnderlying:   big.NewInt(1),
			FeeRatio:        big.NewInt(1),
		})
		if err != nil {
			t.Fatalf("updateStats failed: %v", err)
		}
	}

	fresh, err := mem.GetPoolStats(ctx, model.PoolStatsID(1, testPool, model.SecondsPerHour, next/model.SecondsPerHour))
	if err != nil || fresh == nil {
		t.Fatalf("new bucket missing: %v", err)
	}
	if fresh.Deposits != 1 {
		t.Fatalf("expected independent counter 1, got %d", fresh.Deposits)
	}
	if fresh.DepositVolume.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected 500, got %s", fresh.DepositVolume)
	}

	// the same event also lands in one shared daily bucket
	daily, err := mem.GetPoolStats(ctx, model.PoolStatsID(1, testPool, model.SecondsPerDay, first/model.SecondsPerDay))
	if err != nil || daily == nil {
		t.Fatalf("daily bucket missing: %v", err)
	}
	if daily.Deposits != 2 {
		t.Fatalf("expected 2 daily deposits, got %d", daily.Deposits)
	}
}
