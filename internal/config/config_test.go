package config

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_ADDR", "")
	t.Setenv("SWAP_DECIMAL_EXPONENT", "")
	t.Setenv("CHAIN_ID", "")
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.APIAddr)
	assert.Equal(t, 18, cfg.SwapDecimalExponent)
	assert.Equal(t, "SN_MAIN", cfg.ChainID)
	assert.Equal(t, 3, cfg.MaxRetries, "unparsable values fall back")
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DEV_MODE", "true")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("L2_GAS_MAX_AMOUNT", "123")
	t.Setenv("CHAIN_ID", "SN_SEPOLIA")

	cfg := Load()
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, uint64(123), cfg.L2GasMaxAmount)
	assert.Equal(t, "SN_SEPOLIA", cfg.ChainID)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.DatabaseURL = "postgres://localhost/autoswappr"
	cfg.RedisAddr = "localhost:6379"
	cfg.LogFormat = "json"
	cfg.PriceOracleAddress = ""
	require.NoError(t, cfg.Validate())

	cfg.DatabaseURL = ""
	cfg.LogFormat = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "LOG_FORMAT")
}

func TestValidateSwap(t *testing.T) {
	cfg := Load()
	cfg.RPCURL = "http://localhost:5050/rpc"
	cfg.PrivateKey = "0x1"
	cfg.AccountAddress = "0x0517ef48f33a2e7de7e8dac84d2ff4e4ea4b04d63da4dd6f45ae7a5fe8fcdf53"
	cfg.ContractAddress = "0x00000005dd3d2f4429af886cd1a3b08289dbcea99a294197e9eb43b0e0325b4b"
	cfg.ExchangeAddress = ""
	cfg.SwapDecimalExponent = 18
	require.NoError(t, cfg.ValidateSwap())

	cfg.AccountAddress = "account"
	cfg.SwapDecimalExponent = 40
	cfg.L1GasMaxPrice = "0x10"
	err := cfg.ValidateSwap()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCOUNT_ADDRESS")
	assert.Contains(t, err.Error(), "SWAP_DECIMAL_EXPONENT")
	assert.Contains(t, err.Error(), "L1_GAS_MAX_PRICE")
}

func TestResourceBounds(t *testing.T) {
	cfg := &Config{
		L1GasMaxAmount: 100000, L1GasMaxPrice: "100000000000000",
		L2GasMaxAmount: 1, L2GasMaxPrice: "2",
		L1DataGasMaxAmount: 3, L1DataGasMaxPrice: "4",
	}
	rb, err := cfg.ResourceBounds()
	require.NoError(t, err)
	assert.Equal(t, uint64(100000), rb.L1Gas.MaxAmount)
	assert.Equal(t, "100000000000000", rb.L1Gas.MaxPricePerUnit.Dec())
	assert.Equal(t, "4", rb.L1DataGas.MaxPricePerUnit.Dec())

	cfg.L2GasMaxPrice = "340282366920938463463374607431768211456"
	_, err = cfg.ResourceBounds()
	assert.ErrorContains(t, err, "L2_GAS_MAX_PRICE")
}

func TestConfigureLogger(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	require.NoError(t, cfg.ConfigureLogger(logger))
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	cfg.LogLevel = "loud"
	assert.Error(t, cfg.ConfigureLogger(logger))
}

func TestWalletConfig(t *testing.T) {
	cfg := Load()
	cfg.RPCURL = "http://localhost:5050"
	cfg.PrivateKey = "0x1"
	cfg.AccountAddress = "0x123"

	wc, err := cfg.WalletConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5050", wc.RPCURL)
	assert.Equal(t, cfg.HTTPTimeout, wc.Timeout)
	assert.Equal(t, cfg.L2GasMaxAmount, wc.ResourceBounds.L2Gas.MaxAmount)

	cfg.L1GasMaxPrice = "-1"
	_, err = cfg.WalletConfig(nil)
	assert.Error(t, err)
}
