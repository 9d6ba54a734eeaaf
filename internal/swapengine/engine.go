package swapengine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/autoswappr/autoswappr-backend/internal/constants"
	"github.com/autoswappr/autoswappr-backend/internal/flags"
	"github.com/autoswappr/autoswappr-backend/internal/models"
	"github.com/autoswappr/autoswappr-backend/internal/starknet"
	"github.com/autoswappr/autoswappr-backend/internal/storage"
)

// SubscriptionReader looks up a wallet's preferences.
type SubscriptionReader interface {
	GetSubscription(ctx context.Context, wallet string) (*models.Subscription, error)
}

type ActivityLogger interface {
	LogActivity(ctx context.Context, entry *models.ActivityLog) error
}

// FlagReader reads runtime switches. On error it still returns a usable value.
type FlagReader interface {
	Enabled(ctx context.Context, key string, def bool) (bool, error)
}

// EventPublisher feeds the recent swaps list and live subscribers.
type EventPublisher interface {
	AddRecentSwap(ctx context.Context, swap *models.SwapEvent) error
	PublishSwap(ctx context.Context, swap *models.SwapEvent) error
}

type AnalyticsSink interface {
	InsertSwap(ctx context.Context, swap *models.SwapEvent) error
}

// EngineConfig wires the engine. Account, AMMContract, DecimalFactor and
// Subscriptions are required; the rest are optional and skipped when nil.
type EngineConfig struct {
	Account       Account
	AMMContract   string
	DecimalFactor *uint256.Int

	// ExchangeContract receives routed swaps. Defaults to AMMContract.
	ExchangeContract string

	Subscriptions SubscriptionReader
	Activity      ActivityLogger
	Flags         FlagReader
	Events        EventPublisher
	Analytics     AnalyticsSink

	Logger *logrus.Logger
}

// Engine runs one auto-swap per request: subscription lookup, amount,
// bundle, submission, then best-effort bookkeeping.
type Engine struct {
	executor      *Executor
	composer      *Composer
	routed        *Composer
	decimalFactor *uint256.Int

	subscriptions SubscriptionReader
	activity      ActivityLogger
	flags         FlagReader
	events        EventPublisher
	analytics     AnalyticsSink

	logger *logrus.Logger
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Subscriptions == nil {
		return nil, errors.New("subscription store is required")
	}
	if cfg.DecimalFactor == nil || cfg.DecimalFactor.IsZero() {
		return nil, errors.New("decimal factor must be greater than zero")
	}

	executor, err := NewExecutor(cfg.Account, cfg.Logger)
	if err != nil {
		return nil, err
	}
	composer, err := NewComposer(cfg.AMMContract)
	if err != nil {
		return nil, fmt.Errorf("amm contract: %w", err)
	}
	routed := composer
	if cfg.ExchangeContract != "" {
		if routed, err = NewComposer(cfg.ExchangeContract); err != nil {
			return nil, fmt.Errorf("exchange contract: %w", err)
		}
	}

	return &Engine{
		executor:      executor,
		composer:      composer,
		routed:        routed,
		decimalFactor: new(uint256.Int).Set(cfg.DecimalFactor),
		subscriptions: cfg.Subscriptions,
		activity:      cfg.Activity,
		flags:         cfg.Flags,
		events:        cfg.Events,
		analytics:     cfg.Analytics,
		logger:        cfg.Logger,
	}, nil
}

func (e *Engine) enabled(ctx context.Context, key string) bool {
	def := flags.Defaults[key]
	if e.flags == nil {
		return def
	}
	on, err := e.flags.Enabled(ctx, key, def)
	if err != nil {
		e.logger.WithError(err).WithField("flag", key).Warn("Flag lookup failed, using default")
	}
	return on
}

// Plan resolves the subscription and composes the bundle without submitting
// it. The kill switch is not consulted.
func (e *Engine) Plan(ctx context.Context, req AutoSwapRequest) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	wallet, _ := starknet.NormalizeAddress(req.Wallet)
	fromToken := ""
	if req.FromToken != "" {
		fromToken, _ = starknet.NormalizeAddress(req.FromToken)
	}

	sub, err := e.subscriptions.GetSubscription(ctx, wallet)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	if !sub.IsActive {
		return nil, ErrNotFound
	}
	pref, ok := sub.Preference(fromToken)
	if !ok {
		return nil, ErrNotFound
	}

	amount, err := CalculateSwapAmount(req.Value, pref.Percentage, e.decimalFactor)
	if err != nil {
		return nil, err
	}
	bundle, err := e.composer.Compose(pref.FromToken, sub.ToToken, amount, e.executor.Account().Address())
	if err != nil {
		return nil, err
	}

	return &Plan{
		Wallet:     wallet,
		FromToken:  pref.FromToken,
		ToToken:    sub.ToToken,
		Percentage: pref.Percentage,
		SwapAmount: amount.Dec(),
		Calls:      describeCalls(bundle),
		bundle:     bundle,
	}, nil
}

// AutoSwap swaps the subscribed share of an incoming transfer. ErrNotFound
// means the wallet has nothing to swap.
func (e *Engine) AutoSwap(ctx context.Context, req AutoSwapRequest) (*AutoSwapResult, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !e.enabled(ctx, flags.KeyAutoSwapEnabled) {
		return nil, ErrDisabled
	}

	plan, err := e.Plan(ctx, req)
	if err != nil {
		e.logFailure(req.Wallet, err)
		return nil, err
	}

	sub, err := e.executor.Execute(ctx, plan.bundle)
	if err != nil {
		e.logFailure(plan.Wallet, err)
		return nil, err
	}

	result := &AutoSwapResult{
		ExecutionID: newExecutionID(),
		TxHash:      starknet.PaddedHex(sub.TxHash),
		SwapAmount:  plan.SwapAmount,
		FromToken:   plan.FromToken,
		ToToken:     plan.ToToken,
		Percentage:  plan.Percentage,
		Message: fmt.Sprintf("Successfully swapped %s %s to %s",
			plan.SwapAmount, tokenLabel(plan.FromToken), tokenLabel(plan.ToToken)),
		Duration: time.Since(start),
	}

	e.logger.WithFields(logrus.Fields{
		"execution_id": result.ExecutionID,
		"wallet":       plan.Wallet,
		"tx_hash":      result.TxHash,
		"amount":       plan.SwapAmount,
		"pair":         pairOf(plan.FromToken, plan.ToToken),
	}).Info("Auto-swap submitted")

	e.record(ctx, plan.Wallet, result, false)
	return result, nil
}

// RoutedSwap submits a swap through caller-supplied routes. It is gated by
// both the kill switch and the routed switch.
func (e *Engine) RoutedSwap(ctx context.Context, req RoutedSwapRequest) (*AutoSwapResult, error) {
	start := time.Now()

	if !e.enabled(ctx, flags.KeyAutoSwapEnabled) || !e.enabled(ctx, flags.KeyRoutedEnabled) {
		return nil, ErrDisabled
	}

	account := e.executor.Account().Address()
	swap, err := req.Parse(account)
	if err != nil {
		return nil, err
	}
	bundle, err := e.routed.ComposeRouted(swap)
	if err != nil {
		e.logFailure(starknet.PaddedHex(account), err)
		return nil, err
	}

	sub, err := e.executor.Execute(ctx, bundle)
	if err != nil {
		e.logFailure(starknet.PaddedHex(account), err)
		return nil, err
	}

	from := starknet.PaddedHex(&swap.From.Address)
	to := starknet.PaddedHex(&swap.To.Address)
	amount := swap.From.Amount.Dec()
	result := &AutoSwapResult{
		ExecutionID: newExecutionID(),
		TxHash:      starknet.PaddedHex(sub.TxHash),
		SwapAmount:  amount,
		FromToken:   from,
		ToToken:     to,
		Percentage:  100,
		Message:     fmt.Sprintf("Successfully swapped %s %s to %s", amount, tokenLabel(from), tokenLabel(to)),
		Duration:    time.Since(start),
	}

	e.logger.WithFields(logrus.Fields{
		"execution_id": result.ExecutionID,
		"tx_hash":      result.TxHash,
		"routes":       len(swap.Routes),
		"pair":         pairOf(from, to),
	}).Info("Routed swap submitted")

	e.record(ctx, starknet.PaddedHex(account), result, true)
	return result, nil
}

// record writes the activity row, the swap event and the analytics row.
// The transaction is already submitted, so failures are only logged.
func (e *Engine) record(ctx context.Context, wallet string, r *AutoSwapResult, routed bool) {
	log := e.logger.WithField("execution_id", r.ExecutionID)
	now := time.Now().UTC()

	if e.activity != nil {
		amountFrom, _ := decimal.NewFromString(r.SwapAmount)
		entry := &models.ActivityLog{
			WalletAddress: wallet,
			FromToken:     r.FromToken,
			ToToken:       r.ToToken,
			Percentage:    r.Percentage,
			AmountFrom:    amountFrom,
			AmountTo:      decimal.Zero, // unknown until the transaction lands
			TxHash:        r.TxHash,
			CreatedAt:     now,
		}
		if err := e.activity.LogActivity(ctx, entry); err != nil {
			log.WithError(err).Warn("Failed to log activity")
		}
	}

	ev := &models.SwapEvent{
		ExecutionID: r.ExecutionID,
		TxHash:      r.TxHash,
		Timestamp:   now,
		Wallet:      wallet,
		FromToken:   r.FromToken,
		ToToken:     r.ToToken,
		Pair:        pairOf(r.FromToken, r.ToToken),
		Amount:      r.SwapAmount,
		Percentage:  r.Percentage,
		Routed:      routed,
		DurationMS:  r.Duration.Milliseconds(),
	}
	if e.events != nil {
		if err := e.events.AddRecentSwap(ctx, ev); err != nil {
			log.WithError(err).Warn("Failed to cache swap")
		}
		if err := e.events.PublishSwap(ctx, ev); err != nil {
			log.WithError(err).Warn("Failed to publish swap")
		}
	}
	if e.analytics != nil {
		if err := e.analytics.InsertSwap(ctx, ev); err != nil {
			log.WithError(err).Warn("Failed to insert swap analytics")
		}
	}
}

func (e *Engine) logFailure(wallet string, err error) {
	var encErr *starknet.EncodingError
	var pErr *ProviderError
	entry := e.logger.WithField("wallet", wallet).WithError(err)
	switch {
	case errors.As(err, &encErr):
		entry.WithField("field", encErr.Field).Error("Swap parameters failed to encode")
	case errors.As(err, &pErr):
		// already logged by the executor
	case errors.Is(err, ErrNotFound):
		entry.Debug("No active subscription")
	default:
		entry.Warn("Auto-swap rejected")
	}
}

func newExecutionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// tokenLabel returns the token's symbol when it is a known token.
func tokenLabel(addr string) string {
	if sym, ok := constants.TokenSymbols[strings.ToLower(addr)]; ok {
		return sym
	}
	return addr
}

func pairOf(from, to string) string {
	return tokenLabel(from) + "-" + tokenLabel(to)
}
