package swapengine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoswappr/autoswappr-backend/internal/flags"
	"github.com/autoswappr/autoswappr-backend/internal/models"
	"github.com/autoswappr/autoswappr-backend/internal/starknet"
	"github.com/autoswappr/autoswappr-backend/internal/storage"
	"github.com/autoswappr/autoswappr-backend/internal/wallet"
)

const subscriber = "0x0000000000000000000000000000000000000000000000000000000000001234"

type fakeSubscriptions struct {
	subs    map[string]*models.Subscription
	lookups int
}

func (f *fakeSubscriptions) GetSubscription(_ context.Context, wallet string) (*models.Subscription, error) {
	f.lookups++
	sub, ok := f.subs[wallet]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return sub, nil
}

type fakeActivity struct {
	mu      sync.Mutex
	entries []*models.ActivityLog
	err     error
}

func (f *fakeActivity) LogActivity(_ context.Context, e *models.ActivityLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

type fakeFlags struct {
	values map[string]bool
	err    error
}

func (f *fakeFlags) Enabled(_ context.Context, key string, def bool) (bool, error) {
	if f.err != nil {
		return def, f.err
	}
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return def, nil
}

type fakeEvents struct {
	mu        sync.Mutex
	recent    []*models.SwapEvent
	published []*models.SwapEvent
	inserted  []*models.SwapEvent
	err       error
}

func (f *fakeEvents) AddRecentSwap(_ context.Context, ev *models.SwapEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recent = append(f.recent, ev)
	return f.err
}

func (f *fakeEvents) PublishSwap(_ context.Context, ev *models.SwapEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, ev)
	return f.err
}

func (f *fakeEvents) InsertSwap(_ context.Context, ev *models.SwapEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, ev)
	return f.err
}

type engineFixture struct {
	engine   *Engine
	account  *fakeAccount
	subs     *fakeSubscriptions
	activity *fakeActivity
	flags    *fakeFlags
	events   *fakeEvents
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		account: newFakeAccount(t),
		subs: &fakeSubscriptions{subs: map[string]*models.Subscription{
			subscriber: {
				WalletAddress: subscriber,
				ToToken:       tokenUSDC,
				IsActive:      true,
				Preferences:   []models.Preference{{FromToken: tokenETH, Percentage: 70}},
			},
		}},
		activity: &fakeActivity{},
		flags:    &fakeFlags{values: map[string]bool{}},
		events:   &fakeEvents{},
	}

	e, err := NewEngine(EngineConfig{
		Account:       f.account,
		AMMContract:   ammAddr,
		DecimalFactor: uint256.NewInt(1),
		Subscriptions: f.subs,
		Activity:      f.activity,
		Flags:         f.flags,
		Events:        f.events,
		Analytics:     f.events,
		Logger:        quietLogger(),
	})
	require.NoError(t, err)
	f.engine = e
	return f
}

func TestAutoSwapEndToEnd(t *testing.T) {
	f := newEngineFixture(t)

	res, err := f.engine.AutoSwap(context.Background(), AutoSwapRequest{Wallet: "0x1234", Value: 1_000_000})
	require.NoError(t, err)

	assert.Equal(t, "700000", res.SwapAmount)
	assert.Equal(t, tokenETH, res.FromToken)
	assert.Equal(t, tokenUSDC, res.ToToken)
	assert.Equal(t, 70, res.Percentage)
	assert.Equal(t, starknet.PaddedHex(f.account.hash), res.TxHash)
	assert.Equal(t, "Successfully swapped 700000 ETH to USDC", res.Message)

	id, err := uuid.Parse(res.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	require.Equal(t, 1, f.account.submissions())
	bundle := f.account.calls[0]
	require.Len(t, bundle, 2)
	assert.Equal(t, []string{mustAddr(t, ammAddr).String(), "0xaae60", "0x0"}, starknet.HexFelts(bundle[0].Calldata))

	// caller in SwapData is the submitting account
	assert.True(t, bundle[1].Calldata[11].Equal(f.account.address))

	require.Len(t, f.activity.entries, 1)
	entry := f.activity.entries[0]
	assert.Equal(t, subscriber, entry.WalletAddress)
	assert.Equal(t, "700000", entry.AmountFrom.String())
	assert.Equal(t, res.TxHash, entry.TxHash)

	require.Len(t, f.events.recent, 1)
	require.Len(t, f.events.published, 1)
	require.Len(t, f.events.inserted, 1)
	ev := f.events.published[0]
	assert.Equal(t, res.ExecutionID, ev.ExecutionID)
	assert.Equal(t, "ETH-USDC", ev.Pair)
	assert.False(t, ev.Routed)
}

func TestAutoSwapSelectsPreferenceByToken(t *testing.T) {
	f := newEngineFixture(t)
	f.subs.subs[subscriber].Preferences = append(f.subs.subs[subscriber].Preferences,
		models.Preference{FromToken: "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d", Percentage: 25})

	res, err := f.engine.AutoSwap(context.Background(), AutoSwapRequest{
		Wallet:    subscriber,
		Value:     400,
		FromToken: "0x4718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d",
	})
	require.NoError(t, err)
	assert.Equal(t, "100", res.SwapAmount)
	assert.Equal(t, 25, res.Percentage)
	assert.Equal(t, "Successfully swapped 100 STRK to USDC", res.Message)
}

func TestAutoSwapNotFound(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *engineFixture)
		req    AutoSwapRequest
	}{
		{"unknown wallet", func(*engineFixture) {}, AutoSwapRequest{Wallet: "0x999", Value: 10}},
		{"inactive", func(f *engineFixture) { f.subs.subs[subscriber].IsActive = false }, AutoSwapRequest{Wallet: subscriber, Value: 10}},
		{"no preferences", func(f *engineFixture) { f.subs.subs[subscriber].Preferences = nil }, AutoSwapRequest{Wallet: subscriber, Value: 10}},
		{"token not subscribed", func(*engineFixture) {}, AutoSwapRequest{Wallet: subscriber, Value: 10, FromToken: tokenUSDC}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t)
			tt.mutate(f)

			res, err := f.engine.AutoSwap(context.Background(), tt.req)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.Zero(t, f.account.submissions())
		})
	}
}

func TestAutoSwapZeroPercentageFailsBeforeEncoding(t *testing.T) {
	f := newEngineFixture(t)
	f.subs.subs[subscriber].Preferences[0].Percentage = 0

	_, err := f.engine.AutoSwap(context.Background(), AutoSwapRequest{Wallet: subscriber, Value: 1000})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Zero(t, f.account.submissions())
	assert.Empty(t, f.activity.entries)
}

func TestAutoSwapBadTokenIsNotSubmitted(t *testing.T) {
	f := newEngineFixture(t)
	f.subs.subs[subscriber].ToToken = "0xnot-an-address"

	_, err := f.engine.AutoSwap(context.Background(), AutoSwapRequest{Wallet: subscriber, Value: 1000})
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Zero(t, f.account.submissions())
}

func TestAutoSwapInvalidRequest(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.AutoSwap(context.Background(), AutoSwapRequest{Wallet: "wallet", Value: 1})
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = f.engine.AutoSwap(context.Background(), AutoSwapRequest{Wallet: subscriber, Value: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.engine.AutoSwap(context.Background(), AutoSwapRequest{Wallet: subscriber, Value: 5, FromToken: "eth"})
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.Zero(t, f.subs.lookups)
}

func TestAutoSwapDisabled(t *testing.T) {
	f := newEngineFixture(t)
	f.flags.values[flags.KeyAutoSwapEnabled] = false

	_, err := f.engine.AutoSwap(context.Background(), AutoSwapRequest{Wallet: subscriber, Value: 1000})
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Zero(t, f.subs.lookups)
	assert.Zero(t, f.account.submissions())
}

func TestAutoSwapFlagErrorUsesDefault(t *testing.T) {
	f := newEngineFixture(t)
	f.flags.err = errors.New("redis down")

	_, err := f.engine.AutoSwap(context.Background(), AutoSwapRequest{Wallet: subscriber, Value: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, f.account.submissions())
}

func TestAutoSwapProviderRejection(t *testing.T) {
	f := newEngineFixture(t)
	f.account.err = &wallet.RejectionError{Code: 41, Message: "Transaction execution error"}

	_, err := f.engine.AutoSwap(context.Background(), AutoSwapRequest{Wallet: subscriber, Value: 1000})
	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, ProviderRejected, pErr.Kind)
	assert.ErrorIs(t, err, ErrRejected)

	assert.Empty(t, f.activity.entries)
	assert.Empty(t, f.events.published)
}

func TestAutoSwapBookkeepingFailuresAreIgnored(t *testing.T) {
	f := newEngineFixture(t)
	f.activity.err = errors.New("db down")
	f.events.err = errors.New("redis down")

	res, err := f.engine.AutoSwap(context.Background(), AutoSwapRequest{Wallet: subscriber, Value: 1000})
	require.NoError(t, err)
	assert.NotEmpty(t, res.TxHash)
	assert.Len(t, f.events.inserted, 1)
}

func TestPlanDoesNotSubmit(t *testing.T) {
	f := newEngineFixture(t)
	f.flags.values[flags.KeyAutoSwapEnabled] = false

	plan, err := f.engine.Plan(context.Background(), AutoSwapRequest{Wallet: subscriber, Value: 1_000_000})
	require.NoError(t, err)
	assert.Equal(t, "700000", plan.SwapAmount)
	require.Len(t, plan.Calls, 2)
	assert.Equal(t, starknet.PaddedHex(mustAddr(t, tokenETH)), plan.Calls[0].To)
	assert.Equal(t, starknet.Selector("swap").String(), plan.Calls[1].Selector)
	assert.Len(t, plan.Calls[1].Calldata, 12)
	assert.Len(t, plan.Bundle(), 2)
	assert.Zero(t, f.account.submissions())
}

func routedRequest() RoutedSwapRequest {
	return RoutedSwapRequest{
		TokenFrom:   tokenETH,
		AmountFrom:  "5000",
		TokenTo:     tokenUSDC,
		AmountTo:    "4900",
		MinAmountTo: "4800",
		Routes: []RouteRequest{
			{TokenFrom: tokenETH, TokenTo: tokenUSDC, Exchange: ammAddr, Percent: 100},
		},
	}
}

func TestRoutedSwapRequiresSwitch(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.RoutedSwap(context.Background(), routedRequest())
	assert.ErrorIs(t, err, ErrDisabled, "routed swaps are off by default")
	assert.Zero(t, f.account.submissions())
}

func TestRoutedSwap(t *testing.T) {
	f := newEngineFixture(t)
	f.flags.values[flags.KeyRoutedEnabled] = true

	res, err := f.engine.RoutedSwap(context.Background(), routedRequest())
	require.NoError(t, err)
	assert.Equal(t, "5000", res.SwapAmount)
	assert.Equal(t, "Successfully swapped 5000 ETH to USDC", res.Message)

	require.Equal(t, 1, f.account.submissions())
	bundle := f.account.calls[0]
	assert.True(t, bundle[0].Selector.Equal(starknet.Selector("approve")))
	assert.True(t, bundle[1].Selector.Equal(starknet.Selector("anvu_swap")))

	require.Len(t, f.events.published, 1)
	assert.True(t, f.events.published[0].Routed)
}

func TestRoutedSwapUsesExchangeContract(t *testing.T) {
	f := newEngineFixture(t)
	f.flags.values[flags.KeyRoutedEnabled] = true

	exchange := "0x04270219d365d6b017231b52e92b3fb5d7c8378b05e9abc97724537a80e93b0f"
	e, err := NewEngine(EngineConfig{
		Account:          f.account,
		AMMContract:      ammAddr,
		ExchangeContract: exchange,
		DecimalFactor:    uint256.NewInt(1),
		Subscriptions:    f.subs,
		Flags:            f.flags,
		Logger:           quietLogger(),
	})
	require.NoError(t, err)

	_, err = e.RoutedSwap(context.Background(), routedRequest())
	require.NoError(t, err)
	bundle := f.account.calls[0]
	assert.True(t, bundle[1].To.Equal(mustAddr(t, exchange)))
	assert.True(t, bundle[0].Calldata[0].Equal(mustAddr(t, exchange)), "approval is granted to the exchange")
}

func TestNewEngineValidation(t *testing.T) {
	acct := newFakeAccount(t)
	subs := &fakeSubscriptions{}

	_, err := NewEngine(EngineConfig{Account: acct, AMMContract: ammAddr, DecimalFactor: uint256.NewInt(1)})
	assert.Error(t, err, "subscriptions required")

	_, err = NewEngine(EngineConfig{Account: acct, AMMContract: ammAddr, Subscriptions: subs})
	assert.Error(t, err, "decimal factor required")

	_, err = NewEngine(EngineConfig{Account: acct, AMMContract: "amm", DecimalFactor: uint256.NewInt(1), Subscriptions: subs})
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = NewEngine(EngineConfig{AMMContract: ammAddr, DecimalFactor: uint256.NewInt(1), Subscriptions: subs})
	assert.Error(t, err, "account required")
}
