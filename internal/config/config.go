package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/autoswappr/autoswappr-backend/internal/constants"
	"github.com/autoswappr/autoswappr-backend/internal/starknet"
	"github.com/autoswappr/autoswappr-backend/internal/wallet"
)

type Config struct {
	Environment string

	// API settings
	APIAddr   string
	APIKey    string
	DevMode   bool
	LogLevel  string
	LogFormat string

	// Postgres
	DatabaseURL      string
	DatabasePoolSize int

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Starknet RPC settings
	RPCURL       string
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Account
	PrivateKey     string
	AccountAddress string
	ChainID        string

	// Contracts
	ContractAddress    string // Ekubo core, target of transfer + swap
	ExchangeAddress    string // routed swaps; empty means ContractAddress
	PriceOracleAddress string

	SwapDecimalExponent int

	// INVOKE v3 resource bounds. Prices are decimal base units.
	L1GasMaxAmount     uint64
	L1GasMaxPrice      string
	L2GasMaxAmount     uint64
	L2GasMaxPrice      string
	L1DataGasMaxAmount uint64
	L1DataGasMaxPrice  string

	// Ethereum RPC for ERC-20 allowance lookups; optional
	EthRPCURL string
}

func Load() *Config {
	return &Config{
		Environment: getEnv("APP_ENVIRONMENT", "local"),

		// API
		APIAddr:   getEnv("API_ADDR", ":8080"),
		APIKey:    getEnv("API_KEY", ""),
		DevMode:   getBoolEnv("DEV_MODE", false),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		// Postgres
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DatabasePoolSize: getIntEnv("DATABASE_POOL_MAX_SIZE", 10),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "autoswappr"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// RPC
		RPCURL:       getEnv("RPC_URL", ""),
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 3),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", time.Second),

		// Account
		PrivateKey:     getEnv("PRIVATE_KEY", ""),
		AccountAddress: getEnv("ACCOUNT_ADDRESS", ""),
		ChainID:        getEnv("CHAIN_ID", constants.ChainIDMainnet),

		// Contracts
		ContractAddress:    getEnv("CONTRACT_ADDRESS", ""),
		ExchangeAddress:    getEnv("EXCHANGE_CONTRACT_ADDRESS", ""),
		PriceOracleAddress: getEnv("PRICE_ORACLE_ADDRESS", ""),

		SwapDecimalExponent: getIntEnv("SWAP_DECIMAL_EXPONENT", 18),

		// Resource bounds
		L1GasMaxAmount:     getUint64Env("L1_GAS_MAX_AMOUNT", 50_000),
		L1GasMaxPrice:      getEnv("L1_GAS_MAX_PRICE", "100000000000000"),
		L2GasMaxAmount:     getUint64Env("L2_GAS_MAX_AMOUNT", 20_000_000),
		L2GasMaxPrice:      getEnv("L2_GAS_MAX_PRICE", "20000000000"),
		L1DataGasMaxAmount: getUint64Env("L1_DATA_GAS_MAX_AMOUNT", 1_000),
		L1DataGasMaxPrice:  getEnv("L1_DATA_GAS_MAX_PRICE", "10000000000000"),

		EthRPCURL: getEnv("ETH_RPC_URL", ""),
	}
}

// Validate checks what the API server needs to start.
func (c *Config) Validate() error {
	var errs []error
	if c.APIAddr == "" {
		errs = append(errs, errors.New("API_ADDR is required"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required"))
	}
	if c.DatabasePoolSize <= 0 {
		errs = append(errs, errors.New("DATABASE_POOL_MAX_SIZE must be positive"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be text or json", c.LogFormat))
	}
	if c.PriceOracleAddress != "" && !starknet.IsAddress(c.PriceOracleAddress) {
		errs = append(errs, errors.New("PRICE_ORACLE_ADDRESS is not a starknet address"))
	}
	return errors.Join(errs...)
}

// ValidateSwap checks what submitting swaps needs.
func (c *Config) ValidateSwap() error {
	var errs []error
	if c.RPCURL == "" {
		errs = append(errs, errors.New("RPC_URL is required"))
	}
	if c.PrivateKey == "" {
		errs = append(errs, errors.New("PRIVATE_KEY is required"))
	}
	if !starknet.IsAddress(c.AccountAddress) {
		errs = append(errs, errors.New("ACCOUNT_ADDRESS is not a starknet address"))
	}
	if !starknet.IsAddress(c.ContractAddress) {
		errs = append(errs, errors.New("CONTRACT_ADDRESS is not a starknet address"))
	}
	if c.ExchangeAddress != "" && !starknet.IsAddress(c.ExchangeAddress) {
		errs = append(errs, errors.New("EXCHANGE_CONTRACT_ADDRESS is not a starknet address"))
	}
	if c.SwapDecimalExponent < 0 || c.SwapDecimalExponent > 38 {
		errs = append(errs, errors.New("SWAP_DECIMAL_EXPONENT must be within 0..38"))
	}
	if _, err := c.ResourceBounds(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ResourceBounds parses the configured gas caps.
func (c *Config) ResourceBounds() (wallet.ResourceBounds, error) {
	var rb wallet.ResourceBounds
	for _, b := range []struct {
		key    string
		amount uint64
		price  string
		dst    *wallet.ResourceBound
	}{
		{"L1_GAS_MAX_PRICE", c.L1GasMaxAmount, c.L1GasMaxPrice, &rb.L1Gas},
		{"L2_GAS_MAX_PRICE", c.L2GasMaxAmount, c.L2GasMaxPrice, &rb.L2Gas},
		{"L1_DATA_GAS_MAX_PRICE", c.L1DataGasMaxAmount, c.L1DataGasMaxPrice, &rb.L1DataGas},
	} {
		price, err := uint256.FromDecimal(b.price)
		if err != nil || price.BitLen() > 128 {
			return rb, fmt.Errorf("%s must be a decimal u128", b.key)
		}
		b.dst.MaxAmount = b.amount
		b.dst.MaxPricePerUnit = *price
	}
	return rb, nil
}

// ConfigureLogger applies LOG_LEVEL and LOG_FORMAT.
func (c *Config) ConfigureLogger(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	logger.SetLevel(level)
	if strings.EqualFold(c.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

// WalletConfig maps the account and RPC settings for wallet.NewWallet.
func (c *Config) WalletConfig(logger *logrus.Logger) (wallet.WalletConfig, error) {
	bounds, err := c.ResourceBounds()
	if err != nil {
		return wallet.WalletConfig{}, err
	}
	return wallet.WalletConfig{
		RPCURL:         c.RPCURL,
		Timeout:        c.HTTPTimeout,
		MaxRetries:     c.MaxRetries,
		RetryBackoff:   c.RetryBackoff,
		PrivateKey:     c.PrivateKey,
		AccountAddress: c.AccountAddress,
		ChainID:        c.ChainID,
		ResourceBounds: bounds,
		Logger:         logger,
	}, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getUint64Env(key string, defaultVal uint64) uint64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseUint(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
