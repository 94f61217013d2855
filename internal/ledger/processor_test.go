package ledger

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ptscope/internal/model"
	"ptscope/internal/store"
)

const (
	testPool    = "0x1000000000000000000000000000000000000001"
	testIBT     = "0x2000000000000000000000000000000000000002"
	testPT      = "0x3000000000000000000000000000000000000003"
	testLP      = "0x4000000000000000000000000000000000000004"
	testFactory = "0x5000000000000000000000000000000000000005"
	testUser    = "0x6000000000000000000000000000000000000006"
)

// stubReader serves fixed chain state. Fields can be mutated between events
// to simulate state changing on chain; fail marks methods that should error
// so the default-substitution paths get exercised.
type stubReader struct {
	variant      model.PoolVariant
	spot         *big.Int
	ibtRate      *big.Int
	ptRate       *big.Int
	feeRate      *big.Int
	adminFeeRate *big.Int
	futureFee    *big.Int
	virtualPrice *big.Int
	lpToken      common.Address
	totalSupply  *big.Int
	adminIBT     *big.Int
	adminPT      *big.Int
	fail         map[string]bool
}

func newStubReader() *stubReader {
	return &stubReader{
		variant:      model.VariantCrypto,
		spot:         new(big.Int).Set(PriceUnit),
		ibtRate:      pow10(18),
		ptRate:       pow10(18),
		feeRate:      big.NewInt(3000000),
		adminFeeRate: big.NewInt(5000000000),
		futureFee:    big.NewInt(0),
		virtualPrice: pow10(18),
		lpToken:      common.HexToAddress(testLP),
		totalSupply:  big.NewInt(0),
		adminIBT:     big.NewInt(0),
		adminPT:      big.NewInt(0),
		fail:         make(map[string]bool),
	}
}

func (s *stubReader) check(method string) error {
	if s.fail[method] {
		return fmt.Errorf("%s unavailable", method)
	}
	return nil
}

func (s *stubReader) PoolVariant(context.Context, uint64, common.Address, uint64) (model.PoolVariant, error) {
	if err := s.check("variant"); err != nil {
		return model.VariantUnknown, err
	}
	return s.variant, nil
}

func (s *stubReader) SpotPrice(context.Context, uint64, common.Address, model.PoolVariant, uint64) (*big.Int, error) {
	if err := s.check("spot"); err != nil {
		return nil, err
	}
	return new(big.Int).Set(s.spot), nil
}

func (s *stubReader) AdminBalances(context.Context, uint64, common.Address, uint64) (*big.Int, *big.Int, error) {
	if err := s.check("adminBalances"); err != nil {
		return nil, nil, err
	}
	return new(big.Int).Set(s.adminIBT), new(big.Int).Set(s.adminPT), nil
}

func (s *stubReader) FeeRate(context.Context, uint64, common.Address, uint64) (*big.Int, error) {
	if err := s.check("feeRate"); err != nil {
		return nil, err
	}
	return new(big.Int).Set(s.feeRate), nil
}

func (s *stubReader) AdminFeeRate(context.Context, uint64, common.Address, uint64) (*big.Int, error) {
	if err := s.check("adminFeeRate"); err != nil {
		return nil, err
	}
	return new(big.Int).Set(s.adminFeeRate), nil
}

func (s *stubReader) FutureAdminFeeRate(context.Context, uint64, common.Address, uint64) (*big.Int, error) {
	if err := s.check("futureFee"); err != nil {
		return nil, err
	}
	return new(big.Int).Set(s.futureFee), nil
}

func (s *stubReader) VirtualPrice(context.Context, uint64, common.Address, uint64) (*big.Int, error) {
	if err := s.check("virtualPrice"); err != nil {
		return nil, err
	}
	return new(big.Int).Set(s.virtualPrice), nil
}

func (s *stubReader) LPToken(_ context.Context, _ uint64, pool common.Address, variant model.PoolVariant, _ uint64) (common.Address, error) {
	if err := s.check("lpToken"); err != nil {
		return common.Address{}, err
	}
	if variant == model.VariantStableNG {
		return pool, nil
	}
	return s.lpToken, nil
}

func (s *stubReader) TotalSupply(context.Context, uint64, common.Address, uint64) (*big.Int, error) {
	if err := s.check("totalSupply"); err != nil {
		return nil, err
	}
	return new(big.Int).Set(s.totalSupply), nil
}

func (s *stubReader) IBTRate(context.Context, uint64, common.Address, uint8, uint64) (*big.Int, error) {
	if err := s.check("ibtRate"); err != nil {
		return nil, err
	}
	return new(big.Int).Set(s.ibtRate), nil
}

func (s *stubReader) PTRate(context.Context, uint64, common.Address, uint64) (*big.Int, error) {
	if err := s.check("ptRate"); err != nil {
		return nil, err
	}
	return new(big.Int).Set(s.ptRate), nil
}

func (s *stubReader) TokenMeta(_ context.Context, _ uint64, token common.Address, _ uint64) (model.TokenMeta, error) {
	if err := s.check("tokenMeta"); err != nil {
		return model.TokenMeta{}, err
	}
	return model.TokenMeta{Address: token.Hex(), Decimals: 18, Symbol: "TKN", Name: "Token"}, nil
}

func testMeta(txHash string, logIndex, block, timestamp uint64) model.EventMeta {
	return model.EventMeta{
		ChainID:     1,
		Address:     testPool,
		BlockNumber: block,
		Timestamp:   timestamp,
		TxHash:      txHash,
		TxFrom:      testUser,
		LogIndex:    logIndex,
		GasUsed:     21000,
		GasPrice:    big.NewInt(1_000_000_000),
	}
}

func deployTestPool(t *testing.T, p *Processor) {
	t.Helper()
	meta := testMeta("0xdeploy", 0, 100, 1_700_000_000)
	meta.Address = testFactory
	err := p.Process(context.Background(), &model.PoolDeployedEvent{
		EventMeta: meta,
		Pool:      testPool,
		IBT:       testIBT,
		PT:        testPT,
		Factory:   testFactory,
	})
	require.NoError(t, err)
}

func addTestLiquidity(t *testing.T, p *Processor, reader *stubReader, ibt, pt, supply int64) {
	t.Helper()
	reader.totalSupply = big.NewInt(supply)
	err := p.Process(context.Background(), &model.AddLiquidityEvent{
		EventMeta:    testMeta("0xadd", 1, 101, 1_700_000_100),
		TokenAmounts: [2]*big.Int{big.NewInt(ibt), big.NewInt(pt)},
		RawFee:       big.NewInt(0),
	})
	require.NoError(t, err)
}

func TestPoolDeployedCreatesStateOnce(t *testing.T) {
	mem := store.NewMemory()
	reader := newStubReader()
	p := NewProcessor(mem, reader, nil)

	deployTestPool(t, p)

	pool, err := mem.GetPool(context.Background(), model.PoolID(1, testPool))
	require.NoError(t, err)
	require.NotNil(t, pool)
	require.Equal(t, model.VariantCrypto, pool.Variant)
	require.Equal(t, model.FutureVaultID(1, testPT), pool.FutureVaultID)
	require.Equal(t, testLP, pool.LPTokenAddress)
	require.Equal(t, big.NewInt(3000000), pool.FeeRate)
	require.Equal(t, big.NewInt(5000000000), pool.AdminFeeRate)
	require.Zero(t, pool.TransactionCount)
	require.Zero(t, pool.TotalFees.Sign())

	ibtFlow, err := mem.GetAssetFlow(context.Background(), pool.IBTFlowID)
	require.NoError(t, err)
	require.NotNil(t, ibtFlow)
	require.Zero(t, ibtFlow.Amount.Sign())

	lpAsset, err := mem.GetAsset(context.Background(), model.AssetID(1, testLP))
	require.NoError(t, err)
	require.NotNil(t, lpAsset)
	require.Equal(t, model.AssetLP, lpAsset.Type)

	// replaying the deploy must not reclassify or reset anything
	reader.variant = model.VariantStableNG
	reader.feeRate = big.NewInt(999)
	deployTestPool(t, p)

	pool, err = mem.GetPool(context.Background(), model.PoolID(1, testPool))
	require.NoError(t, err)
	require.Equal(t, model.VariantCrypto, pool.Variant)
	require.Equal(t, big.NewInt(3000000), pool.FeeRate)
}

func TestAddLiquidityFirstDeposit(t *testing.T) {
	mem := store.NewMemory()
	reader := newStubReader()
	p := NewProcessor(mem, reader, nil)
	ctx := context.Background()

	deployTestPool(t, p)

	// first liquidity re-reads the fee rate, which moved since deploy
	reader.feeRate = big.NewInt(4000000)
	reader.virtualPrice = big.NewInt(1_000_000_000_000_000_123)
	addTestLiquidity(t, p, reader, 1_000_000, 500_000, 1_400_000)

	pool, err := mem.GetPool(ctx, model.PoolID(1, testPool))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_400_000), pool.LPTotalSupply)
	require.Equal(t, big.NewInt(4000000), pool.FeeRate)
	require.Equal(t, big.NewInt(1_000_000_000_000_000_123), pool.InitialVirtualPrice)
	require.Equal(t, uint64(1), pool.TransactionCount)

	ibtFlow, err := mem.GetAssetFlow(ctx, pool.IBTFlowID)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_000_000), ibtFlow.Amount)
	ptFlow, err := mem.GetAssetFlow(ctx, pool.PTFlowID)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(500_000), ptFlow.Amount)

	tx, err := mem.GetTransaction(ctx, model.TransactionID(1, "0xadd", 1))
	require.NoError(t, err)
	require.NotNil(t, tx)
	require.Equal(t, model.TxAddLiquidity, tx.Type)
	require.Len(t, tx.AmountsIn, 2)
	require.Len(t, tx.AmountsOut, 1)
	require.Equal(t, testUser, tx.User)

	// the latched virtual price survives later events
	reader.virtualPrice = big.NewInt(7)
	err = p.Process(ctx, &model.AddLiquidityEvent{
		EventMeta:    testMeta("0xadd2", 1, 102, 1_700_000_200),
		TokenAmounts: [2]*big.Int{big.NewInt(10), big.NewInt(10)},
		RawFee:       big.NewInt(0),
	})
	require.NoError(t, err)
	pool, err = mem.GetPool(ctx, model.PoolID(1, testPool))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_000_000_000_000_000_123), pool.InitialVirtualPrice)
}

func TestAddLiquidityReplayWritesOneTransaction(t *testing.T) {
	mem := store.NewMemory()
	reader := newStubReader()
	p := NewProcessor(mem, reader, nil)
	ctx := context.Background()

	deployTestPool(t, p)
	addTestLiquidity(t, p, reader, 1_000_000, 500_000, 1_400_000)

	pool, err := mem.GetPool(ctx, model.PoolID(1, testPool))
	require.NoError(t, err)
	require.Equal(t, uint64(1), pool.TransactionCount)

	err = p.Process(ctx, &model.AddLiquidityEvent{
		EventMeta:    testMeta("0xadd", 1, 101, 1_700_000_100),
		TokenAmounts: [2]*big.Int{big.NewInt(1_000_000), big.NewInt(500_000)},
		RawFee:       big.NewInt(0),
	})
	require.NoError(t, err)

	pool, err = mem.GetPool(ctx, model.PoolID(1, testPool))
	require.NoError(t, err)
	require.Equal(t, uint64(1), pool.TransactionCount)
}

func TestTokenExchangeFeeInversion(t *testing.T) {
	mem := store.NewMemory()
	reader := newStubReader()
	p := NewProcessor(mem, reader, nil)
	ctx := context.Background()

	deployTestPool(t, p)
	addTestLiquidity(t, p, reader, 1_000_000, 500_000, 1_400_000)

	err := p.Process(ctx, &model.TokenExchangeEvent{
		EventMeta:    testMeta("0xswap", 2, 103, 1_700_000_300),
		SoldID:       0,
		TokensSold:   big.NewInt(100_000),
		BoughtID:     1,
		TokensBought: big.NewInt(99_000),
	})
	require.NoError(t, err)

	tx, err := mem.GetTransaction(ctx, model.TransactionID(1, "0xswap", 2))
	require.NoError(t, err)
	require.NotNil(t, tx)
	require.Equal(t, model.TxExchange, tx.Type)
	// gross = 99000 / (1 - 0.0003), fee the truncated difference
	require.Equal(t, big.NewInt(29), tx.Fee)
	// admin takes half of it
	require.Equal(t, big.NewInt(14), tx.AdminFee)
	// one-sided value: sold IBT + bought PT at unit spot, never halved
	require.Equal(t, big.NewInt(199_000), tx.ValueUnderlying)

	pool, err := mem.GetPool(ctx, model.PoolID(1, testPool))
	require.NoError(t, err)
	ibtFlow, err := mem.GetAssetFlow(ctx, pool.IBTFlowID)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(900_000), ibtFlow.Amount)
	ptFlow, err := mem.GetAssetFlow(ctx, pool.PTFlowID)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(599_000), ptFlow.Amount)

	stats, err := mem.GetPoolStats(ctx, model.PoolStatsID(1, testPool, model.SecondsPerHour, 1_700_000_300/model.SecondsPerHour))
	require.NoError(t, err)
	require.NotNil(t, stats)
	require.Equal(t, uint64(1), stats.Buys)
	require.Equal(t, big.NewInt(199_000), stats.BuyVolume)
}

func TestTokenExchangeFeeRateAtUnitYieldsZeroFee(t *testing.T) {
	mem := store.NewMemory()
	reader := newStubReader()
	p := NewProcessor(mem, reader, nil)
	ctx := context.Background()

	deployTestPool(t, p)
	// fee rate equals the whole unit, the inversion denominator hits zero
	reader.feeRate = new(big.Int).Set(FeeUnit)
	addTestLiquidity(t, p, reader, 1_000_000, 500_000, 1_400_000)

	err := p.Process(ctx, &model.TokenExchangeEvent{
		EventMeta:    testMeta("0xswap", 2, 103, 1_700_000_300),
		SoldID:       1,
		TokensSold:   big.NewInt(50_000),
		BoughtID:     0,
		TokensBought: big.NewInt(49_000),
	})
	require.NoError(t, err)

	tx, err := mem.GetTransaction(ctx, model.TransactionID(1, "0xswap", 2))
	require.NoError(t, err)
	require.NotNil(t, tx)
	require.Zero(t, tx.Fee.Sign())
	require.Zero(t, tx.AdminFee.Sign())

	// selling PT counts on the sell side
	stats, err := mem.GetPoolStats(ctx, model.PoolStatsID(1, testPool, model.SecondsPerDay, 1_700_000_300/model.SecondsPerDay))
	require.NoError(t, err)
	require.NotNil(t, stats)
	require.Equal(t, uint64(1), stats.Sells)
}

func TestRemoveLiquidityUpdatesSupplyAndFeeRatioOnly(t *testing.T) {
	mem := store.NewMemory()
	reader := newStubReader()
	p := NewProcessor(mem, reader, nil)
	ctx := context.Background()

	deployTestPool(t, p)
	addTestLiquidity(t, p, reader, 1_000_000, 500_000, 10_000)

	pool, err := mem.GetPool(ctx, model.PoolID(1, testPool))
	require.NoError(t, err)
	feesBefore := new(big.Int).Set(pool.TotalFees)
	adminBefore := new(big.Int).Set(pool.TotalAdminFees)

	err = p.Process(ctx, &model.RemoveLiquidityEvent{
		EventMeta:    testMeta("0xremove", 3, 104, 1_700_000_400),
		TokenAmounts: [2]*big.Int{big.NewInt(400_000), big.NewInt(200_000)},
		TokenSupply:  big.NewInt(6_000),
	})
	require.NoError(t, err)

	pool, err = mem.GetPool(ctx, model.PoolID(1, testPool))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(6_000), pool.LPTotalSupply)
	require.Equal(t, feesBefore, pool.TotalFees)
	require.Equal(t, adminBefore, pool.TotalAdminFees)
	require.Equal(t, uint64(2), pool.TransactionCount)

	ibtFlow, err := mem.GetAssetFlow(ctx, pool.IBTFlowID)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(600_000), ibtFlow.Amount)
	ptFlow, err := mem.GetAssetFlow(ctx, pool.PTFlowID)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(300_000), ptFlow.Amount)

	tx, err := mem.GetTransaction(ctx, model.TransactionID(1, "0xremove", 3))
	require.NoError(t, err)
	require.NotNil(t, tx)
	require.Equal(t, model.TxRemoveLiquidity, tx.Type)
	require.Len(t, tx.AmountsIn, 1)
	require.Len(t, tx.AmountsOut, 2)
}

func TestRemoveLiquidityOneDerivesSupply(t *testing.T) {
	mem := store.NewMemory()
	reader := newStubReader()
	p := NewProcessor(mem, reader, nil)
	ctx := context.Background()

	deployTestPool(t, p)
	addTestLiquidity(t, p, reader, 1_000_000, 500_000, 10_000)

	err := p.Process(ctx, &model.RemoveLiquidityOneEvent{
		EventMeta:  testMeta("0xone", 4, 105, 1_700_000_500),
		CoinAmount: big.NewInt(250),
		CoinIndex:  1,
		BurnedLP:   big.NewInt(500),
	})
	require.NoError(t, err)

	pool, err := mem.GetPool(ctx, model.PoolID(1, testPool))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(9_500), pool.LPTotalSupply)

	ibtFlow, err := mem.GetAssetFlow(ctx, pool.IBTFlowID)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_000_000), ibtFlow.Amount)
	ptFlow, err := mem.GetAssetFlow(ctx, pool.PTFlowID)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(499_750), ptFlow.Amount)
}

func TestStableNGEmitsFeeClaimPerEvent(t *testing.T) {
	mem := store.NewMemory()
	reader := newStubReader()
	reader.variant = model.VariantStableNG
	p := NewProcessor(mem, reader, nil)
	ctx := context.Background()

	deployTestPool(t, p)

	reader.adminIBT = big.NewInt(30)
	reader.adminPT = big.NewInt(10)
	addTestLiquidity(t, p, reader, 1_000_000, 500_000, 1_400_000)

	pool, err := mem.GetPool(ctx, model.PoolID(1, testPool))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(30), pool.IBTAdminBalance)
	require.Equal(t, big.NewInt(10), pool.PTAdminBalance)
	// stableswap-NG pools are their own LP token
	require.Equal(t, testPool, pool.LPTokenAddress)

	claims := mem.FeeClaims()
	require.Len(t, claims, 1)
	require.Equal(t, zeroAddress, claims[0].Collector)
	require.Zero(t, claims[0].Amount.Sign())
	require.Equal(t, big.NewInt(30), claims[0].IBTAmount)
	require.Equal(t, big.NewInt(10), claims[0].PTAmount)
}

func TestClaimAdminFee(t *testing.T) {
	mem := store.NewMemory()
	reader := newStubReader()
	p := NewProcessor(mem, reader, nil)
	ctx := context.Background()

	deployTestPool(t, p)

	err := p.Process(ctx, &model.ClaimAdminFeeEvent{
		EventMeta: testMeta("0xclaim", 5, 106, 1_700_000_600),
		Admin:     testUser,
		Tokens:    big.NewInt(777),
	})
	require.NoError(t, err)

	pool, err := mem.GetPool(ctx, model.PoolID(1, testPool))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(777), pool.TotalClaimedAdminFees)

	claims := mem.FeeClaims()
	require.Len(t, claims, 1)
	require.Equal(t, testUser, claims[0].Collector)
	require.Equal(t, big.NewInt(777), claims[0].Amount)

	// the next-gen shape is a deliberate no-op
	err = p.Process(ctx, &model.ClaimAdminFeeEvent{
		EventMeta: testMeta("0xclaim2", 6, 107, 1_700_000_700),
		Admin:     testUser,
		Tokens:    big.NewInt(111),
		NG:        true,
	})
	require.NoError(t, err)

	pool, err = mem.GetPool(ctx, model.PoolID(1, testPool))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(777), pool.TotalClaimedAdminFees)
	require.Len(t, mem.FeeClaims(), 1)
}

func TestParameterChanges(t *testing.T) {
	mem := store.NewMemory()
	reader := newStubReader()
	p := NewProcessor(mem, reader, nil)
	ctx := context.Background()

	deployTestPool(t, p)

	err := p.Process(ctx, &model.CommitNewParametersEvent{
		EventMeta: testMeta("0xcommit", 7, 108, 1_700_000_800),
		AdminFee:  big.NewInt(4000000000),
		Deadline:  big.NewInt(1_700_100_000),
	})
	require.NoError(t, err)

	pool, err := mem.GetPool(ctx, model.PoolID(1, testPool))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(4000000000), pool.FutureAdminFeeRate)
	require.Equal(t, big.NewInt(1_700_100_000), pool.FutureAdminFeeDeadline)
	// nothing applied yet
	require.Equal(t, big.NewInt(5000000000), pool.AdminFeeRate)

	reader.feeRate = big.NewInt(2500000)
	err = p.Process(ctx, &model.NewParametersEvent{
		EventMeta: testMeta("0xapply", 8, 109, 1_700_000_900),
		AdminFee:  big.NewInt(4000000000),
	})
	require.NoError(t, err)

	pool, err = mem.GetPool(ctx, model.PoolID(1, testPool))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(4000000000), pool.AdminFeeRate)
	require.Equal(t, big.NewInt(2500000), pool.FeeRate)
}

func TestEventForUnknownPoolIsIgnored(t *testing.T) {
	mem := store.NewMemory()
	reader := newStubReader()
	p := NewProcessor(mem, reader, nil)
	ctx := context.Background()

	err := p.Process(ctx, &model.TokenExchangeEvent{
		EventMeta:    testMeta("0xswap", 0, 50, 1_700_000_000),
		SoldID:       0,
		TokensSold:   big.NewInt(1),
		BoughtID:     1,
		TokensBought: big.NewInt(1),
	})
	require.NoError(t, err)

	tx, err := mem.GetTransaction(ctx, model.TransactionID(1, "0xswap", 0))
	require.NoError(t, err)
	require.Nil(t, tx)
}

func TestReadFailuresDegradeToDefaults(t *testing.T) {
	mem := store.NewMemory()
	reader := newStubReader()
	p := NewProcessor(mem, reader, nil)
	ctx := context.Background()

	deployTestPool(t, p)

	// with the spot read failing the valuation is disabled, not the event
	reader.fail["spot"] = true
	addTestLiquidity(t, p, reader, 1_000_000, 500_000, 1_400_000)

	pool, err := mem.GetPool(ctx, model.PoolID(1, testPool))
	require.NoError(t, err)
	require.Zero(t, pool.SpotPrice.Sign())
	require.Equal(t, uint64(1), pool.TransactionCount)

	tx, err := mem.GetTransaction(ctx, model.TransactionID(1, "0xadd", 1))
	require.NoError(t, err)
	require.NotNil(t, tx)
	require.Zero(t, tx.ValueUnderlying.Sign())

	ibtFlow, err := mem.GetAssetFlow(ctx, pool.IBTFlowID)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_000_000), ibtFlow.Amount)
}
