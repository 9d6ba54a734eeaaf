package constants

import "time"

// Redis keys
const (
	RedisKeyRecentSwaps = "autoswap:recent"
	RedisKeyPricePrefix = "price:"
)

// Redis Pub/Sub channels
const (
	PubSubChannelSwaps      = "autoswap:executions"
	PubSubChannelPairPrefix = "autoswap:pair:"
)

// Limits
const (
	MaxRecentSwaps = 100
	PageSize       = 10 // subscriptions and activity log pages
)

// Cache lifetimes
const (
	PriceTTL = 30 * time.Second
)

// Ekubo pool tier used for every auto-swap. Only one tier is ever selected;
// the values are the ones the core contract was deployed against.
const (
	// EkuboPoolFee is 0.05% expressed as a 0.128 fixed point number.
	EkuboPoolFee = "170141183460469235273462165868118016"
	// EkuboTickSpacing matches the fee tier above.
	EkuboTickSpacing = 1000
	// EkuboSqrtRatioLimit is the minimum sqrt ratio accepted by the core.
	EkuboSqrtRatioLimit = "18446748437148339061"
	// EkuboSkipAhead disables tick skipping.
	EkuboSkipAhead = 0
)

// Contract entry points
const (
	EntrypointTransfer    = "transfer"
	EntrypointApprove     = "approve"
	EntrypointSwap        = "swap"
	EntrypointRoutedSwap  = "anvu_swap"
	EntrypointETHUSDPrice = "get_eth_usd_price"
	EntrypointSTRKUSD     = "get_strk_usd_price"
)

// Block tags
const (
	BlockTagPending = "pending"
	BlockTagLatest  = "latest"
)

// Well known Starknet chain ids as short strings.
const (
	ChainIDMainnet = "SN_MAIN"
	ChainIDSepolia = "SN_SEPOLIA"
)

// Token symbols served by the price oracle
var OracleTokens = map[string]string{
	"ETH":  EntrypointETHUSDPrice,
	"STRK": EntrypointSTRKUSD,
}

// Token addresses on Starknet mainnet, used for display only.
var TokenSymbols = map[string]string{
	"0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7": "ETH",
	"0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d": "STRK",
	"0x053c91253bc9682c04929ca02ed00b3e423f6710d2ee7e0d5ebb06f3ecf368a8": "USDC",
	"0x068f5c6a61780768455de69077e07e89787839bf8166decfbf92b645209c0fb8": "USDT",
	"0x03fe2b97c1fd336e750087d68b9b867997fd64a2661ff3ca5a7c771641e8e7ac": "WBTC",
	"0x00da114221cb83fa859dbdb4c44beeaa0bb37c7537ad5ae66fe5e0efd20e6eb3": "DAI",
}
