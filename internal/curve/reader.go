package curve

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"ptscope/internal/ledger"
	"ptscope/internal/model"
)

// Caller performs read-only contract calls pinned to a block.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Reader answers the processor's chain-state questions against one RPC
// client per chain. Historical state at a fixed block never changes, so raw
// call results are memoized by (chain, address, block, calldata); variant
// classification is memoized per (chain, address) for the life of the
// Reader.
type Reader struct {
	logger *zap.Logger

	mu       sync.RWMutex
	callers  map[uint64]Caller
	variants map[string]model.PoolVariant
	results  map[string][]byte
}

func NewReader(callers map[uint64]Caller, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		logger:   logger,
		callers:  callers,
		variants: make(map[string]model.PoolVariant),
		results:  make(map[string][]byte),
	}
}

var _ ledger.ChainReader = (*Reader)(nil)

func (r *Reader) callerFor(chainID uint64) (Caller, error) {
	r.mu.RLock()
	caller, ok := r.callers[chainID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no rpc client for chain %d", chainID)
	}
	return caller, nil
}

// call packs and executes one view call, memoizing the raw response.
func (r *Reader) call(ctx context.Context, chainID uint64, addr common.Address, parsed abi.ABI, method string, block uint64, args ...interface{}) ([]interface{}, error) {
	caller, err := r.callerFor(chainID)
	if err != nil {
		return nil, err
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	key := fmt.Sprintf("%d-%s-%d-%s", chainID, addr.Hex(), block, hexutil.Encode(data))
	r.mu.RLock()
	resp, cached := r.results[key]
	r.mu.RUnlock()

	if !cached {
		var blockPtr *big.Int
		if block > 0 {
			blockPtr = new(big.Int).SetUint64(block)
		}
		msg := ethereum.CallMsg{To: &addr, Data: data}
		resp, err = caller.CallContract(ctx, msg, blockPtr)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		r.mu.Lock()
		r.results[key] = resp
		r.mu.Unlock()
	}

	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// PoolVariant classifies a pool by probing generation-specific views:
// stableswap-ng pools are their own ERC-20 and answer decimals, next-gen
// crypto pools answer ma_time, classic pools answer ma_half_time. A pool
// answering none of them is unknown, which is not an error.
func (r *Reader) PoolVariant(ctx context.Context, chainID uint64, pool common.Address, block uint64) (model.PoolVariant, error) {
	key := model.PoolID(chainID, pool.Hex())
	r.mu.RLock()
	variant, ok := r.variants[key]
	r.mu.RUnlock()
	if ok {
		return variant, nil
	}

	sng, err := StableNGPoolABI()
	if err != nil {
		return model.VariantUnknown, err
	}
	ng, err := CryptoNGPoolABI()
	if err != nil {
		return model.VariantUnknown, err
	}
	crypto, err := CryptoPoolABI()
	if err != nil {
		return model.VariantUnknown, err
	}

	variant = model.VariantUnknown
	if _, err := r.call(ctx, chainID, pool, sng, "decimals", block); err == nil {
		variant = model.VariantStableNG
	} else if _, err := r.call(ctx, chainID, pool, ng, "ma_time", block); err == nil {
		variant = model.VariantCryptoNG
	} else if _, err := r.call(ctx, chainID, pool, crypto, "ma_half_time", block); err == nil {
		variant = model.VariantCrypto
	} else {
		r.logger.Warn("pool answered no classification probe", zap.String("pool", pool.Hex()), zap.Uint64("chain_id", chainID))
	}

	r.mu.Lock()
	r.variants[key] = variant
	r.mu.Unlock()
	return variant, nil
}

// SpotPrice reads the pool's last traded PT price in IBT terms. Stableswap-ng
// pools report a raw price that must be composed with their stored rates:
// stored_rates[1] * last_price(0) / stored_rates[0].
func (r *Reader) SpotPrice(ctx context.Context, chainID uint64, pool common.Address, variant model.PoolVariant, block uint64) (*big.Int, error) {
	if variant == model.VariantStableNG {
		sng, err := StableNGPoolABI()
		if err != nil {
			return nil, err
		}
		values, err := r.call(ctx, chainID, pool, sng, "last_price", block, big.NewInt(0))
		if err != nil {
			return nil, err
		}
		lastPrice, err := asBigInt(values[0])
		if err != nil {
			return nil, err
		}
		values, err = r.call(ctx, chainID, pool, sng, "stored_rates", block)
		if err != nil {
			return nil, err
		}
		rates, err := asAmountPair(values[0])
		if err != nil {
			return nil, err
		}
		if rates[0].Sign() <= 0 {
			return big.NewInt(0), nil
		}
		out := new(big.Int).Mul(rates[1], lastPrice)
		return out.Quo(out, rates[0]), nil
	}

	crypto, err := CryptoPoolABI()
	if err != nil {
		return nil, err
	}
	values, err := r.call(ctx, chainID, pool, crypto, "last_prices", block)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

func (r *Reader) AdminBalances(ctx context.Context, chainID uint64, pool common.Address, block uint64) (*big.Int, *big.Int, error) {
	sng, err := StableNGPoolABI()
	if err != nil {
		return nil, nil, err
	}
	values, err := r.call(ctx, chainID, pool, sng, "admin_balances", block, big.NewInt(0))
	if err != nil {
		return nil, nil, err
	}
	ibt, err := asBigInt(values[0])
	if err != nil {
		return nil, nil, err
	}
	values, err = r.call(ctx, chainID, pool, sng, "admin_balances", block, big.NewInt(1))
	if err != nil {
		return nil, nil, err
	}
	pt, err := asBigInt(values[0])
	if err != nil {
		return nil, nil, err
	}
	return ibt, pt, nil
}

func (r *Reader) FeeRate(ctx context.Context, chainID uint64, pool common.Address, block uint64) (*big.Int, error) {
	return r.callUint(ctx, chainID, pool, "fee", block)
}

func (r *Reader) AdminFeeRate(ctx context.Context, chainID uint64, pool common.Address, block uint64) (*big.Int, error) {
	return r.callUint(ctx, chainID, pool, "admin_fee", block)
}

func (r *Reader) FutureAdminFeeRate(ctx context.Context, chainID uint64, pool common.Address, block uint64) (*big.Int, error) {
	return r.callUint(ctx, chainID, pool, "future_admin_fee", block)
}

func (r *Reader) VirtualPrice(ctx context.Context, chainID uint64, pool common.Address, block uint64) (*big.Int, error) {
	return r.callUint(ctx, chainID, pool, "get_virtual_price", block)
}

func (r *Reader) callUint(ctx context.Context, chainID uint64, addr common.Address, method string, block uint64) (*big.Int, error) {
	crypto, err := CryptoPoolABI()
	if err != nil {
		return nil, err
	}
	values, err := r.call(ctx, chainID, addr, crypto, method, block)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// LPToken resolves the pool's LP token. Stableswap-ng pools are their own LP
// token; older generations expose it via token().
func (r *Reader) LPToken(ctx context.Context, chainID uint64, pool common.Address, variant model.PoolVariant, block uint64) (common.Address, error) {
	if variant == model.VariantStableNG {
		return pool, nil
	}
	crypto, err := CryptoPoolABI()
	if err != nil {
		return common.Address{}, err
	}
	values, err := r.call(ctx, chainID, pool, crypto, "token", block)
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

func (r *Reader) TotalSupply(ctx context.Context, chainID uint64, token common.Address, block uint64) (*big.Int, error) {
	erc20, err := erc20StringABI()
	if err != nil {
		return nil, err
	}
	values, err := r.call(ctx, chainID, token, erc20, "totalSupply", block)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// IBTRate converts one whole IBT share (10^decimals) to underlying assets
// via the vault's convertToAssets.
func (r *Reader) IBTRate(ctx context.Context, chainID uint64, ibt common.Address, decimals uint8, block uint64) (*big.Int, error) {
	vault, err := erc4626ABI()
	if err != nil {
		return nil, err
	}
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	values, err := r.call(ctx, chainID, ibt, vault, "convertToAssets", block, unit)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

func (r *Reader) PTRate(ctx context.Context, chainID uint64, pt common.Address, block uint64) (*big.Int, error) {
	principal, err := principalTokenABI()
	if err != nil {
		return nil, err
	}
	values, err := r.call(ctx, chainID, pt, principal, "getPTRate", block)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// TokenMeta reads ERC-20 metadata. Decimals are required; symbol and name
// tolerate both string and legacy bytes32 returns and stay empty on failure.
func (r *Reader) TokenMeta(ctx context.Context, chainID uint64, token common.Address, block uint64) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}

	stringABI, err := erc20StringABI()
	if err != nil {
		return meta, err
	}
	bytes32ABI, err := erc20Bytes32ABI()
	if err != nil {
		return meta, err
	}

	values, err := r.call(ctx, chainID, token, stringABI, "decimals", block)
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	if values, err := r.call(ctx, chainID, token, stringABI, "symbol", block); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := r.call(ctx, chainID, token, bytes32ABI, "symbol", block); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else {
		r.logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := r.call(ctx, chainID, token, stringABI, "name", block); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = name
		}
	} else if values, err := r.call(ctx, chainID, token, bytes32ABI, "name", block); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			meta.Name = name
		}
	} else {
		r.logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}
