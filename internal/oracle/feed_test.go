package oracle

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoswappr/autoswappr-backend/internal/rpc"
	"github.com/autoswappr/autoswappr-backend/internal/starknet"
)

const oracleAddr = "0x2a85bd616f912537c50a49a4076db02c00b29b2cdc8a197ce92ed1837fa875b"

type fakeCaller struct {
	calls []rpc.FunctionCall
	out   []string
	err   error
}

func (f *fakeCaller) CallContract(_ context.Context, call rpc.FunctionCall, _ string) ([]string, error) {
	f.calls = append(f.calls, call)
	return f.out, f.err
}

type memCache struct {
	prices map[string]decimal.Decimal
	err    error
}

func (m *memCache) SetPrice(_ context.Context, token string, price decimal.Decimal) error {
	if m.err != nil {
		return m.err
	}
	m.prices[token] = price
	return nil
}

func (m *memCache) GetPrice(_ context.Context, token string) (decimal.Decimal, error) {
	p, ok := m.prices[token]
	if !ok {
		return decimal.Zero, errors.New("miss")
	}
	return p, nil
}

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestPriceFromOracle(t *testing.T) {
	caller := &fakeCaller{out: []string{"0x2e90edd000", "0x8"}} // 2000.00000000
	cache := &memCache{prices: map[string]decimal.Decimal{}}
	feed, err := NewFeed(caller, oracleAddr, cache, quiet())
	require.NoError(t, err)

	price, err := feed.Price(context.Background(), "eth")
	require.NoError(t, err)
	assert.Equal(t, "2000", price.String())

	require.Len(t, caller.calls, 1)
	assert.Equal(t, starknet.Selector("get_eth_usd_price").String(), caller.calls[0].EntryPointSelector)
	assert.True(t, cache.prices["ETH"].Equal(price))

	// served from cache
	_, err = feed.Price(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Len(t, caller.calls, 1)
}

func TestPriceWithoutCache(t *testing.T) {
	caller := &fakeCaller{out: []string{"0x3039", "0x4"}}
	feed, err := NewFeed(caller, oracleAddr, nil, quiet())
	require.NoError(t, err)

	price, err := feed.Price(context.Background(), "STRK")
	require.NoError(t, err)
	assert.Equal(t, "1.2345", price.String())
	assert.Equal(t, starknet.Selector("get_strk_usd_price").String(), caller.calls[0].EntryPointSelector)
}

func TestPriceCacheWriteFailureIsIgnored(t *testing.T) {
	caller := &fakeCaller{out: []string{"0x64", "0x0"}}
	feed, err := NewFeed(caller, oracleAddr, &memCache{prices: map[string]decimal.Decimal{}, err: errors.New("down")}, quiet())
	require.NoError(t, err)

	price, err := feed.Price(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, "100", price.String())
}

func TestPriceErrors(t *testing.T) {
	feed, err := NewFeed(&fakeCaller{}, oracleAddr, nil, quiet())
	require.NoError(t, err)
	_, err = feed.Price(context.Background(), "DOGE")
	assert.ErrorIs(t, err, ErrUnsupportedToken)

	feed, err = NewFeed(&fakeCaller{err: errors.New("timeout")}, oracleAddr, nil, quiet())
	require.NoError(t, err)
	_, err = feed.Price(context.Background(), "ETH")
	assert.ErrorContains(t, err, "call get_eth_usd_price")

	feed, err = NewFeed(&fakeCaller{out: []string{"0x1"}}, oracleAddr, nil, quiet())
	require.NoError(t, err)
	_, err = feed.Price(context.Background(), "ETH")
	assert.ErrorIs(t, err, starknet.ErrShortInput)

	_, err = NewFeed(&fakeCaller{}, "oracle", nil, quiet())
	assert.Error(t, err)
	_, err = NewFeed(nil, oracleAddr, nil, quiet())
	assert.Error(t, err)
}
