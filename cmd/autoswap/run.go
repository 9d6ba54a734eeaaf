package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/autoswappr/autoswappr-backend/internal/cache"
	"github.com/autoswappr/autoswappr-backend/internal/config"
	"github.com/autoswappr/autoswappr-backend/internal/flags"
	"github.com/autoswappr/autoswappr-backend/internal/rpc"
	"github.com/autoswappr/autoswappr-backend/internal/starknet"
	"github.com/autoswappr/autoswappr-backend/internal/storage/postgres"
	"github.com/autoswappr/autoswappr-backend/internal/swapengine"
	"github.com/autoswappr/autoswappr-backend/internal/wallet"
)

const finalityReceived = "RECEIVED"

// runtimeEnv is what every subcommand shares
type runtimeEnv struct {
	cfg    *config.Config
	logger *logrus.Logger
}

func loadRuntime(cmd *cobra.Command) (*runtimeEnv, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile == "" {
		_, filename, _, _ := runtime.Caller(0)
		envFile = filepath.Join(filepath.Dir(filename), "../..", ".env")
	}
	if err := godotenv.Load(envFile); err != nil {
		logger.Debugf("no .env file found at %s, using system environment variables", envFile)
	}

	cfg := config.Load()
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if err := cfg.ConfigureLogger(logger); err != nil {
		return nil, err
	}
	return &runtimeEnv{cfg: cfg, logger: logger}, nil
}

// engineEnv holds an engine and the resources behind it
type engineEnv struct {
	*runtimeEnv
	engine  *swapengine.Engine
	account *wallet.Wallet
	closers []io.Closer
}

func (e *engineEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i].Close()
	}
}

func buildEngine(ctx context.Context, rt *runtimeEnv) (*engineEnv, error) {
	cfg := rt.cfg
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if err := cfg.ValidateSwap(); err != nil {
		return nil, err
	}

	env := &engineEnv{runtimeEnv: rt}
	db, err := postgres.NewStore(ctx, postgres.Config{DSN: cfg.DatabaseURL, MaxConns: 2, Logger: rt.logger})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	env.closers = append(env.closers, db)

	walletCfg, err := cfg.WalletConfig(rt.logger)
	if err != nil {
		env.Close()
		return nil, err
	}
	account, err := wallet.NewWallet(walletCfg)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.account = account

	factor, err := swapengine.DecimalFactor(uint8(cfg.SwapDecimalExponent))
	if err != nil {
		env.Close()
		return nil, err
	}

	engineCfg := swapengine.EngineConfig{
		Account:          account,
		AMMContract:      cfg.ContractAddress,
		DecimalFactor:    factor,
		ExchangeContract: cfg.ExchangeAddress,
		Subscriptions:    db,
		Activity:         db,
		Logger:           rt.logger,
	}

	// Redis carries the kill switch and the swap feed. Without it the
	// switches read as their defaults.
	redisCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	swapCache, err := cache.NewRedisCache(redisCtx, cache.RedisConfig{Addr: cfg.RedisAddr, Logger: rt.logger})
	cancel()
	if err != nil {
		rt.logger.WithError(err).Warn("redis unavailable, using default flags")
	} else {
		env.closers = append(env.closers, swapCache)
		flagStore, err := flags.NewStore(swapCache.Client())
		if err != nil {
			env.Close()
			return nil, err
		}
		engineCfg.Flags = flagStore
		engineCfg.Events = swapCache
	}

	if env.engine, err = swapengine.NewEngine(engineCfg); err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

func swapRequest(cmd *cobra.Command) swapengine.AutoSwapRequest {
	walletAddr, _ := cmd.Flags().GetString("wallet")
	value, _ := cmd.Flags().GetInt64("value")
	fromToken, _ := cmd.Flags().GetString("from-token")
	return swapengine.AutoSwapRequest{Wallet: walletAddr, Value: value, FromToken: fromToken}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := buildEngine(ctx, rt)
	if err != nil {
		return err
	}
	defer env.Close()

	plan, err := env.engine.Plan(ctx, swapRequest(cmd))
	if errors.Is(err, swapengine.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "no active subscription, nothing to swap")
		return nil
	}
	if err != nil {
		return err
	}
	return printJSON(cmd, plan)
}

func runExecute(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := buildEngine(ctx, rt)
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.engine.AutoSwap(ctx, swapRequest(cmd))
	if errors.Is(err, swapengine.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "no active subscription, nothing to swap")
		return nil
	}
	if err != nil {
		return err
	}
	if err := printJSON(cmd, res); err != nil {
		return err
	}

	if wait, _ := cmd.Flags().GetBool("wait"); !wait {
		return nil
	}
	hash, err := starknet.FeltFromHex(res.TxHash)
	if err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-waitCtx.Done():
			return fmt.Errorf("waiting for %s: %w", res.TxHash, waitCtx.Err())
		case <-ticker.C:
			st, err := env.account.TransactionStatus(waitCtx, hash)
			if err != nil {
				rt.logger.WithError(err).Debug("status not available yet")
				continue
			}
			if st.FinalityStatus == finalityReceived {
				continue
			}
			return printJSON(cmd, st)
		}
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	if rt.cfg.RPCURL == "" {
		return errors.New("RPC_URL is required")
	}
	hash, err := starknet.FeltFromHex(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      rt.cfg.RPCURL,
		Timeout:      rt.cfg.HTTPTimeout,
		MaxRetries:   rt.cfg.MaxRetries,
		RetryBackoff: rt.cfg.RetryBackoff,
		Logger:       rt.logger,
	})
	st, err := client.GetTransactionStatus(ctx, hash.String())
	if err != nil {
		return err
	}
	return printJSON(cmd, st)
}
