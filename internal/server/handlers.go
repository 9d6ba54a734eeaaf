package server

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/autoswappr/autoswappr-backend/internal/constants"
	"github.com/autoswappr/autoswappr-backend/internal/erc20"
	"github.com/autoswappr/autoswappr-backend/internal/flags"
	"github.com/autoswappr/autoswappr-backend/internal/oracle"
	"github.com/autoswappr/autoswappr-backend/internal/rpc"
	"github.com/autoswappr/autoswappr-backend/internal/starknet"
	"github.com/autoswappr/autoswappr-backend/internal/storage"
	"github.com/autoswappr/autoswappr-backend/internal/swapengine"
)

// Swapper runs swaps. *swapengine.Engine implements it.
type Swapper interface {
	AutoSwap(ctx context.Context, req swapengine.AutoSwapRequest) (*swapengine.AutoSwapResult, error)
	RoutedSwap(ctx context.Context, req swapengine.RoutedSwapRequest) (*swapengine.AutoSwapResult, error)
}

// FlagStore is the CRUD surface of *flags.Store
type FlagStore interface {
	Upsert(ctx context.Context, key string, value bool) (*flags.Flag, error)
	Get(ctx context.Context, key string) (*flags.Flag, error)
	List(ctx context.Context) ([]*flags.Flag, error)
	Delete(ctx context.Context, key string) error
}

// PriceFeed returns USD prices. *oracle.Feed implements it.
type PriceFeed interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// AllowanceReader reads ERC-20 allowances. *erc20.Reader implements it.
type AllowanceReader interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// TransactionReader reports transaction finality. *wallet.Wallet implements it.
type TransactionReader interface {
	TransactionStatus(ctx context.Context, hash *felt.Felt) (*rpc.TransactionStatus, error)
}

// Handlers contains all dependencies for API endpoint handlers. Prices,
// Allowances and Transactions are optional; their routes answer 400 when unset.
type Handlers struct {
	DB           storage.Database  // Postgres subscriptions and activity log
	Cache        storage.SwapCache // Redis-backed swap data cache
	Flags        FlagStore         // Redis-backed feature flags store
	Swaps        Swapper           // Auto-swap engine
	Prices       PriceFeed
	Allowances   AllowanceReader
	Transactions TransactionReader
	DevMode      bool           // Enable detailed error responses in development
	Logger       *logrus.Logger // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) log() *logrus.Logger {
	if h.Logger == nil {
		h.Logger = logrus.New()
	}
	return h.Logger
}

// Health pings the database and the cache
func (h *Handlers) Health(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{OK: true, Services: map[string]string{}}
	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			h.log().WithError(err).WithField("service", name).Warn("Health check failed")
			resp.OK = false
			resp.Services[name] = "down"
			return
		}
		resp.Services[name] = "ok"
	}
	if h.DB != nil {
		check("postgres", h.DB.Ping)
	}
	if h.Cache != nil {
		check("redis", h.Cache.Ping)
	}

	code := http.StatusOK
	if !resp.OK {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

// RecentSwaps returns the most recent auto-swaps with optional limit parameter
// Accepts limit query parameter (default and max: constants.MaxRecentSwaps)
func (h *Handlers) RecentSwaps(c echo.Context) error {
	limitStr := c.QueryParam("limit")
	limit := constants.MaxRecentSwaps
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > constants.MaxRecentSwaps {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max " + strconv.Itoa(constants.MaxRecentSwaps)})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.GetRecentSwaps(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get swaps", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// Price returns the USD price for a given token symbol
// Token parameter is case-insensitive and will be normalized to uppercase
func (h *Handlers) Price(c echo.Context) error {
	if h.Prices == nil {
		return h.err(c, http.StatusBadRequest, "price oracle is not configured", nil)
	}
	token := strings.ToUpper(strings.TrimSpace(c.Param("token")))
	if token == "" {
		return h.err(c, http.StatusBadRequest, "invalid token", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	price, err := h.Prices.Price(ctx, token)
	if errors.Is(err, oracle.ErrUnsupportedToken) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unsupported token",
			Code:    http.StatusBadRequest,
			Details: map[string]any{"supported": oracle.Symbols()},
		})
	}
	if err != nil {
		return h.err(c, http.StatusBadGateway, "failed to get price", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, PriceResponse{Token: token, Price: price})
}

// Allowance returns an ERC-20 allowance read from Ethereum
func (h *Handlers) Allowance(c echo.Context) error {
	if h.Allowances == nil {
		return h.err(c, http.StatusBadRequest, "ethereum rpc is not configured", nil)
	}

	params := map[string]common.Address{}
	for _, name := range []string{"token", "owner", "spender"} {
		addr, err := erc20.ParseAddress(strings.TrimSpace(c.QueryParam(name)))
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid " + name,
				Code:    http.StatusBadRequest,
				Details: map[string]any{name: "must be a 20-byte hex address"},
			})
		}
		params[name] = addr
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	amount, err := h.Allowances.Allowance(ctx, params["token"], params["owner"], params["spender"])
	if err != nil {
		return h.err(c, http.StatusBadGateway, "failed to read allowance", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, AllowanceResponse{
		Token:     params["token"].Hex(),
		Owner:     params["owner"].Hex(),
		Spender:   params["spender"].Hex(),
		Allowance: amount.String(),
	})
}

// TransactionStatus reports how far a submitted swap has progressed
func (h *Handlers) TransactionStatus(c echo.Context) error {
	if h.Transactions == nil {
		return h.err(c, http.StatusBadRequest, "starknet rpc is not configured", nil)
	}
	hash, err := starknet.FeltFromHex(c.Param("hash"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid transaction hash", Code: http.StatusBadRequest})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	st, err := h.Transactions.TransactionStatus(ctx, hash)
	if err != nil {
		var rpcErr *rpc.RPCError
		if errors.As(err, &rpcErr) {
			return h.err(c, http.StatusNotFound, "transaction not found", map[string]any{"rpc": rpcErr.Message})
		}
		return h.err(c, http.StatusBadGateway, "failed to get transaction status", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, TransactionStatusResponse{
		TxHash:          starknet.PaddedHex(hash),
		FinalityStatus:  st.FinalityStatus,
		ExecutionStatus: st.ExecutionStatus,
		FailureReason:   st.FailureReason,
	})
}

// FlagsUpsert creates or updates a feature flag with the given key and value
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	h.log().WithFields(logrus.Fields{"flag": out.Key, "value": out.Value}).Info("Flag updated")
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate updates an existing feature flag with the given key
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	h.log().WithFields(logrus.Fields{"flag": out.Key, "value": out.Value}).Info("Flag updated")
	return c.JSON(http.StatusOK, out)
}

// FlagsGet retrieves a feature flag by its key
// Known switches that were never written report their default
func (h *Handlers) FlagsGet(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			if def, ok := flags.Defaults[key]; ok {
				return c.JSON(http.StatusOK, &flags.Flag{Key: key, Value: def, Default: true})
			}
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsList returns all feature flags in the system
func (h *Handlers) FlagsList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes a feature flag by its key
// Returns 204 No Content on successful deletion
func (h *Handlers) FlagsDelete(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}
