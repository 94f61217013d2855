package curve

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Three pool generations emit the events this indexer consumes. The classic
// crypto pool and its next-gen successor use fixed two-coin arrays; the
// stableswap-ng pool uses dynamic arrays and int128 coin indices, and doubles
// as its own LP token.

const cryptoPoolABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "buyer", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "sold_id", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "tokens_sold", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "bought_id", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "tokens_bought", "type": "uint256"}
    ],
    "name": "TokenExchange",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "provider", "type": "address"},
      {"indexed": false, "internalType": "uint256[2]", "name": "token_amounts", "type": "uint256[2]"},
      {"indexed": false, "internalType": "uint256", "name": "fee", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "token_supply", "type": "uint256"}
    ],
    "name": "AddLiquidity",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "provider", "type": "address"},
      {"indexed": false, "internalType": "uint256[2]", "name": "token_amounts", "type": "uint256[2]"},
      {"indexed": false, "internalType": "uint256", "name": "token_supply", "type": "uint256"}
    ],
    "name": "RemoveLiquidity",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "provider", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "token_amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "coin_index", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "coin_amount", "type": "uint256"}
    ],
    "name": "RemoveLiquidityOne",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "admin", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "tokens", "type": "uint256"}
    ],
    "name": "ClaimAdminFee",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "deadline", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "admin_fee", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "mid_fee", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "out_fee", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "fee_gamma", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "allowed_extra_profit", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "adjustment_step", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "ma_half_time", "type": "uint256"}
    ],
    "name": "CommitNewParameters",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint256", "name": "admin_fee", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "mid_fee", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "out_fee", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "fee_gamma", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "allowed_extra_profit", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "adjustment_step", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "ma_half_time", "type": "uint256"}
    ],
    "name": "NewParameters",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "ma_half_time",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "last_prices",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "token",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "fee",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "admin_fee",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "future_admin_fee",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "get_virtual_price",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const cryptoNGPoolABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "buyer", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "sold_id", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "tokens_sold", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "bought_id", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "tokens_bought", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "fee", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "packed_price_scale", "type": "uint256"}
    ],
    "name": "TokenExchange",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "provider", "type": "address"},
      {"indexed": false, "internalType": "uint256[2]", "name": "token_amounts", "type": "uint256[2]"},
      {"indexed": false, "internalType": "uint256", "name": "fee", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "token_supply", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "packed_price_scale", "type": "uint256"}
    ],
    "name": "AddLiquidity",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "provider", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "token_amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "coin_index", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "coin_amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "approx_fee", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "packed_price_scale", "type": "uint256"}
    ],
    "name": "RemoveLiquidityOne",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "admin", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "tokens", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "supply", "type": "uint256"}
    ],
    "name": "ClaimAdminFee",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint256", "name": "mid_fee", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "out_fee", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "fee_gamma", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "allowed_extra_profit", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "adjustment_step", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "ma_time", "type": "uint256"}
    ],
    "name": "NewParameters",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "ma_time",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "last_prices",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "token",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const stableNGPoolABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "buyer", "type": "address"},
      {"indexed": false, "internalType": "int128", "name": "sold_id", "type": "int128"},
      {"indexed": false, "internalType": "uint256", "name": "tokens_sold", "type": "uint256"},
      {"indexed": false, "internalType": "int128", "name": "bought_id", "type": "int128"},
      {"indexed": false, "internalType": "uint256", "name": "tokens_bought", "type": "uint256"}
    ],
    "name": "TokenExchange",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "provider", "type": "address"},
      {"indexed": false, "internalType": "uint256[]", "name": "token_amounts", "type": "uint256[]"},
      {"indexed": false, "internalType": "uint256[]", "name": "fees", "type": "uint256[]"},
      {"indexed": false, "internalType": "uint256", "name": "invariant", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "token_supply", "type": "uint256"}
    ],
    "name": "AddLiquidity",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "provider", "type": "address"},
      {"indexed": false, "internalType": "uint256[]", "name": "token_amounts", "type": "uint256[]"},
      {"indexed": false, "internalType": "uint256[]", "name": "fees", "type": "uint256[]"},
      {"indexed": false, "internalType": "uint256", "name": "token_supply", "type": "uint256"}
    ],
    "name": "RemoveLiquidity",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "provider", "type": "address"},
      {"indexed": false, "internalType": "uint256[]", "name": "token_amounts", "type": "uint256[]"},
      {"indexed": false, "internalType": "uint256[]", "name": "fees", "type": "uint256[]"},
      {"indexed": false, "internalType": "uint256", "name": "invariant", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "token_supply", "type": "uint256"}
    ],
    "name": "RemoveLiquidityImbalance",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "provider", "type": "address"},
      {"indexed": false, "internalType": "int128", "name": "token_id", "type": "int128"},
      {"indexed": false, "internalType": "uint256", "name": "token_amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "coin_amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "token_supply", "type": "uint256"}
    ],
    "name": "RemoveLiquidityOne",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "decimals",
    "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "i", "type": "uint256"}],
    "name": "last_price",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "stored_rates",
    "outputs": [{"internalType": "uint256[2]", "name": "", "type": "uint256[2]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "i", "type": "uint256"}],
    "name": "admin_balances",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const factoryABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "poolAddress", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "ibt", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "pt", "type": "address"}
    ],
    "name": "CurvePoolDeployed",
    "type": "event"
  }
]`

const erc20StringABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const erc20Bytes32ABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

const erc4626ABIJSON = `[
  {
    "inputs": [{"internalType": "uint256", "name": "shares", "type": "uint256"}],
    "name": "convertToAssets",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const principalTokenABIJSON = `[
  {
    "inputs": [],
    "name": "getPTRate",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

type parsedABI struct {
	once sync.Once
	abi  abi.ABI
	err  error
}

func (p *parsedABI) load(source string) (abi.ABI, error) {
	p.once.Do(func() {
		p.abi, p.err = abi.JSON(strings.NewReader(source))
	})
	return p.abi, p.err
}

var (
	cryptoPoolParsed   parsedABI
	cryptoNGPoolParsed parsedABI
	stableNGPoolParsed parsedABI
	factoryParsed      parsedABI
	erc20StringParsed  parsedABI
	erc20Bytes32Parsed parsedABI
	erc4626Parsed      parsedABI
	principalParsed    parsedABI
)

// CryptoPoolABI returns the parsed classic crypto pool ABI.
func CryptoPoolABI() (abi.ABI, error) { return cryptoPoolParsed.load(cryptoPoolABIJSON) }

// CryptoNGPoolABI returns the parsed next-gen crypto pool ABI.
func CryptoNGPoolABI() (abi.ABI, error) { return cryptoNGPoolParsed.load(cryptoNGPoolABIJSON) }

// StableNGPoolABI returns the parsed stableswap-ng pool ABI.
func StableNGPoolABI() (abi.ABI, error) { return stableNGPoolParsed.load(stableNGPoolABIJSON) }

// FactoryABI returns the parsed pool factory ABI.
func FactoryABI() (abi.ABI, error) { return factoryParsed.load(factoryABIJSON) }

func erc20StringABI() (abi.ABI, error)  { return erc20StringParsed.load(erc20StringABIJSON) }
func erc20Bytes32ABI() (abi.ABI, error) { return erc20Bytes32Parsed.load(erc20Bytes32ABIJSON) }
func erc4626ABI() (abi.ABI, error)      { return erc4626Parsed.load(erc4626ABIJSON) }
func principalTokenABI() (abi.ABI, error) {
	return principalParsed.load(principalTokenABIJSON)
}
