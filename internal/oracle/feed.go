// Package oracle reads USD prices from the on-chain price oracle and keeps
// them in the shared cache for a short while.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/autoswappr/autoswappr-backend/internal/constants"
	"github.com/autoswappr/autoswappr-backend/internal/rpc"
	"github.com/autoswappr/autoswappr-backend/internal/starknet"
)

var ErrUnsupportedToken = errors.New("unsupported token")

// ContractCaller runs read-only calls. *rpc.Client implements it.
type ContractCaller interface {
	CallContract(ctx context.Context, call rpc.FunctionCall, blockTag string) ([]string, error)
}

// PriceCache is the cache half of storage.SwapCache.
type PriceCache interface {
	SetPrice(ctx context.Context, token string, price decimal.Decimal) error
	GetPrice(ctx context.Context, token string) (decimal.Decimal, error)
}

type Feed struct {
	caller ContractCaller
	oracle *felt.Felt
	cache  PriceCache
	logger *logrus.Logger
}

// NewFeed binds the feed to the oracle contract. cache may be nil.
func NewFeed(caller ContractCaller, oracleAddress string, cache PriceCache, logger *logrus.Logger) (*Feed, error) {
	if caller == nil {
		return nil, errors.New("contract caller is nil")
	}
	addr, err := starknet.ParseAddress(oracleAddress)
	if err != nil {
		return nil, fmt.Errorf("oracle address: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Feed{caller: caller, oracle: addr, cache: cache, logger: logger}, nil
}

// Symbols lists the tokens the oracle prices.
func Symbols() []string {
	return []string{"ETH", "STRK"}
}

// Price returns the USD price of symbol, from the cache when fresh.
func (f *Feed) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	entrypoint, ok := constants.OracleTokens[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedToken, symbol)
	}

	if f.cache != nil {
		if price, err := f.cache.GetPrice(ctx, symbol); err == nil {
			return price, nil
		}
	}

	out, err := f.caller.CallContract(ctx, rpc.FunctionCall{
		ContractAddress:    starknet.PaddedHex(f.oracle),
		EntryPointSelector: starknet.Selector(entrypoint).String(),
	}, constants.BlockTagLatest)
	if err != nil {
		return decimal.Zero, fmt.Errorf("call %s: %w", entrypoint, err)
	}
	price, err := decodePrice(out)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode %s: %w", entrypoint, err)
	}

	if f.cache != nil {
		if err := f.cache.SetPrice(ctx, symbol, price); err != nil {
			f.logger.WithError(err).WithField("token", symbol).Warn("Failed to cache price")
		}
	}
	return price, nil
}

// decodePrice reads (price: u128, decimals: u32).
func decodePrice(out []string) (decimal.Decimal, error) {
	felts := make([]*felt.Felt, len(out))
	for i, s := range out {
		f, err := starknet.FeltFromHex(s)
		if err != nil {
			return decimal.Zero, err
		}
		felts[i] = f
	}

	r := starknet.NewReader(felts)
	price := r.U128("price")
	decimals := r.Uint64("decimals")
	if err := r.Err(); err != nil {
		return decimal.Zero, err
	}
	if decimals > 38 {
		return decimal.Zero, fmt.Errorf("decimals %d out of range", decimals)
	}
	return decimal.NewFromBigInt(price.ToBig(), -int32(decimals)), nil
}
