package curve

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"ptscope/internal/model"
)

// TxContext carries the transaction-level fields a raw log does not include.
// The runner resolves them once per transaction and hands them to the
// decoder.
type TxContext struct {
	From     string
	GasUsed  uint64
	GasPrice *big.Int
}

// eventKey identifies which pool generation's shape a topic0 belongs to.
// The same logical event has a different signature per generation, so the
// topic hash alone pins down both the event and the shape.
type eventKey struct {
	name    string
	variant model.PoolVariant
}

// Decoder converts raw pool and factory logs into normalized pool events.
type Decoder struct {
	topics map[string]eventKey
	crypto abi.ABI
	ng     abi.ABI
	sng    abi.ABI
	fact   abi.ABI
}

func NewDecoder() (*Decoder, error) {
	crypto, err := CryptoPoolABI()
	if err != nil {
		return nil, err
	}
	ng, err := CryptoNGPoolABI()
	if err != nil {
		return nil, err
	}
	sng, err := StableNGPoolABI()
	if err != nil {
		return nil, err
	}
	fact, err := FactoryABI()
	if err != nil {
		return nil, err
	}

	topics := make(map[string]eventKey)
	register := func(parsed abi.ABI, variant model.PoolVariant) {
		for name, event := range parsed.Events {
			topics[strings.ToLower(event.ID.Hex())] = eventKey{name: name, variant: variant}
		}
	}
	register(crypto, model.VariantCrypto)
	register(ng, model.VariantCryptoNG)
	register(sng, model.VariantStableNG)
	register(fact, model.VariantUnknown)

	return &Decoder{topics: topics, crypto: crypto, ng: ng, sng: sng, fact: fact}, nil
}

// Topics returns every topic0 the decoder understands, for log filtering.
func (d *Decoder) Topics() []common.Hash {
	out := make([]common.Hash, 0, len(d.topics))
	for topic := range d.topics {
		out = append(out, common.HexToHash(topic))
	}
	return out
}

// CanDecode checks if the topic0 is supported.
func (d *Decoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topics[strings.ToLower(topic0)]
	return ok
}

// Decode converts a raw log into a normalized pool event.
func (d *Decoder) Decode(log model.LogRecord, tx TxContext) (model.PoolEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	key, ok := d.topics[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid emitter address: %s", log.Address)
	}

	meta := model.EventMeta{
		ChainID:     log.ChainID,
		Address:     strings.ToLower(log.Address),
		BlockNumber: log.BlockNumber,
		Timestamp:   log.Timestamp,
		TxHash:      strings.ToLower(log.TxHash),
		TxFrom:      strings.ToLower(tx.From),
		LogIndex:    log.LogIndex,
		GasUsed:     tx.GasUsed,
		GasPrice:    tx.GasPrice,
	}

	switch key.name {
	case "CurvePoolDeployed":
		return d.decodePoolDeployed(log, meta)
	case "TokenExchange":
		return d.decodeTokenExchange(log, meta, key.variant)
	case "AddLiquidity":
		return d.decodeAddLiquidity(log, meta, key.variant)
	case "RemoveLiquidity", "RemoveLiquidityImbalance":
		return d.decodeRemoveLiquidity(log, meta, key)
	case "RemoveLiquidityOne":
		return d.decodeRemoveLiquidityOne(log, meta, key.variant)
	case "ClaimAdminFee":
		return d.decodeClaimAdminFee(log, meta, key.variant)
	case "CommitNewParameters":
		return d.decodeCommitNewParameters(log, meta)
	case "NewParameters":
		return d.decodeNewParameters(log, meta, key.variant)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", key.name)
	}
}

func (d *Decoder) abiFor(variant model.PoolVariant) abi.ABI {
	switch variant {
	case model.VariantCryptoNG:
		return d.ng
	case model.VariantStableNG:
		return d.sng
	default:
		return d.crypto
	}
}

func (d *Decoder) decodePoolDeployed(log model.LogRecord, meta model.EventMeta) (model.PoolEvent, error) {
	values, err := unpackNonIndexed(d.fact.Events["CurvePoolDeployed"], log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("unexpected pool deployed values: %d", len(values))
	}
	pool, err := asAddress(values[0])
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}
	ibt, err := asAddress(values[1])
	if err != nil {
		return nil, fmt.Errorf("ibt: %w", err)
	}
	pt, err := asAddress(values[2])
	if err != nil {
		return nil, fmt.Errorf("pt: %w", err)
	}

	return &model.PoolDeployedEvent{
		EventMeta: meta,
		Pool:      strings.ToLower(pool.Hex()),
		IBT:       strings.ToLower(ibt.Hex()),
		PT:        strings.ToLower(pt.Hex()),
		Factory:   meta.Address,
	}, nil
}

func (d *Decoder) decodeTokenExchange(log model.LogRecord, meta model.EventMeta, variant model.PoolVariant) (model.PoolEvent, error) {
	event := d.abiFor(variant).Events["TokenExchange"]
	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	// The next-gen shape appends fee and price-scale fields; the first four
	// values line up across all generations.
	if len(values) < 4 {
		return nil, fmt.Errorf("unexpected token exchange values: %d", len(values))
	}
	soldID, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	tokensSold, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}
	boughtID, err := asBigInt(values[2])
	if err != nil {
		return nil, err
	}
	tokensBought, err := asBigInt(values[3])
	if err != nil {
		return nil, err
	}

	return &model.TokenExchangeEvent{
		EventMeta:    meta,
		SoldID:       soldID.Int64(),
		TokensSold:   tokensSold,
		BoughtID:     boughtID.Int64(),
		TokensBought: tokensBought,
	}, nil
}

func (d *Decoder) decodeAddLiquidity(log model.LogRecord, meta model.EventMeta, variant model.PoolVariant) (model.PoolEvent, error) {
	event := d.abiFor(variant).Events["AddLiquidity"]
	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("unexpected add liquidity values: %d", len(values))
	}
	amounts, err := asAmountPair(values[0])
	if err != nil {
		return nil, err
	}

	// The stableswap-ng event carries per-coin fee arrays instead of one
	// aggregate fee; its flat fee is defined as zero and the admin share is
	// recovered from balance reconciliation instead.
	fee := big.NewInt(0)
	if variant != model.VariantStableNG {
		fee, err = asBigInt(values[1])
		if err != nil {
			return nil, err
		}
	}

	return &model.AddLiquidityEvent{
		EventMeta:    meta,
		TokenAmounts: amounts,
		RawFee:       fee,
	}, nil
}

func (d *Decoder) decodeRemoveLiquidity(log model.LogRecord, meta model.EventMeta, key eventKey) (model.PoolEvent, error) {
	event := d.abiFor(key.variant).Events[key.name]
	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("unexpected remove liquidity values: %d", len(values))
	}
	amounts, err := asAmountPair(values[0])
	if err != nil {
		return nil, err
	}
	tokenSupply, err := asBigInt(values[len(values)-1])
	if err != nil {
		return nil, err
	}

	return &model.RemoveLiquidityEvent{
		EventMeta:    meta,
		TokenAmounts: amounts,
		TokenSupply:  tokenSupply,
	}, nil
}

func (d *Decoder) decodeRemoveLiquidityOne(log model.LogRecord, meta model.EventMeta, variant model.PoolVariant) (model.PoolEvent, error) {
	event := d.abiFor(variant).Events["RemoveLiquidityOne"]
	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) < 3 {
		return nil, fmt.Errorf("unexpected remove liquidity one values: %d", len(values))
	}

	// Crypto shapes order (token_amount, coin_index, coin_amount); the
	// stableswap-ng shape orders (token_id, token_amount, coin_amount).
	var burned, index, coinAmount *big.Int
	if variant == model.VariantStableNG {
		index, err = asBigInt(values[0])
		if err != nil {
			return nil, err
		}
		burned, err = asBigInt(values[1])
		if err != nil {
			return nil, err
		}
	} else {
		burned, err = asBigInt(values[0])
		if err != nil {
			return nil, err
		}
		index, err = asBigInt(values[1])
		if err != nil {
			return nil, err
		}
	}
	coinAmount, err = asBigInt(values[2])
	if err != nil {
		return nil, err
	}

	return &model.RemoveLiquidityOneEvent{
		EventMeta:  meta,
		CoinAmount: coinAmount,
		CoinIndex:  index.Int64(),
		BurnedLP:   burned,
	}, nil
}

func (d *Decoder) decodeClaimAdminFee(log model.LogRecord, meta model.EventMeta, variant model.PoolVariant) (model.PoolEvent, error) {
	event := d.abiFor(variant).Events["ClaimAdminFee"]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, err
	}
	var indexed struct {
		Admin common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) < 1 {
		return nil, fmt.Errorf("unexpected claim admin fee values: %d", len(values))
	}
	tokens, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}

	return &model.ClaimAdminFeeEvent{
		EventMeta: meta,
		Admin:     strings.ToLower(indexed.Admin.Hex()),
		Tokens:    tokens,
		NG:        variant == model.VariantCryptoNG,
	}, nil
}

func (d *Decoder) decodeCommitNewParameters(log model.LogRecord, meta model.EventMeta) (model.PoolEvent, error) {
	event := d.crypto.Events["CommitNewParameters"]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, err
	}
	var indexed struct {
		Deadline *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) < 1 {
		return nil, fmt.Errorf("unexpected commit parameters values: %d", len(values))
	}
	adminFee, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}

	return &model.CommitNewParametersEvent{
		EventMeta: meta,
		AdminFee:  adminFee,
		Deadline:  indexed.Deadline,
	}, nil
}

func (d *Decoder) decodeNewParameters(log model.LogRecord, meta model.EventMeta, variant model.PoolVariant) (model.PoolEvent, error) {
	if variant == model.VariantCryptoNG {
		// The next-gen shape carries no admin fee; handling is a no-op
		// downstream.
		return &model.NewParametersEvent{EventMeta: meta, AdminFee: big.NewInt(0), NG: true}, nil
	}

	event := d.crypto.Events["NewParameters"]
	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) < 1 {
		return nil, fmt.Errorf("unexpected new parameters values: %d", len(values))
	}
	adminFee, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}

	return &model.NewParametersEvent{EventMeta: meta, AdminFee: adminFee}, nil
}

func asAmountPair(value interface{}) ([2]*big.Int, error) {
	switch v := value.(type) {
	case [2]*big.Int:
		return [2]*big.Int{v[0], v[1]}, nil
	case []*big.Int:
		if len(v) != 2 {
			return [2]*big.Int{}, fmt.Errorf("expected 2 token amounts, got %d", len(v))
		}
		return [2]*big.Int{v[0], v[1]}, nil
	default:
		return [2]*big.Int{}, fmt.Errorf("unsupported token amounts type %T", value)
	}
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
