package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/autoswappr/autoswappr-backend/internal/cache"
	"github.com/autoswappr/autoswappr-backend/internal/config"
	"github.com/autoswappr/autoswappr-backend/internal/erc20"
	"github.com/autoswappr/autoswappr-backend/internal/flags"
	"github.com/autoswappr/autoswappr-backend/internal/oracle"
	"github.com/autoswappr/autoswappr-backend/internal/server"
	"github.com/autoswappr/autoswappr-backend/internal/storage/postgres"
	"github.com/autoswappr/autoswappr-backend/internal/swapengine"
	"github.com/autoswappr/autoswappr-backend/internal/wallet"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main wires storage, the signing account and the swap engine behind the
// HTTP API and serves until SIGINT/SIGTERM
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.ConfigureLogger(logger); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if err := errors.Join(cfg.Validate(), cfg.ValidateSwap()); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Postgres: subscriptions and the activity log
	db, err := postgres.NewStore(ctx, postgres.Config{
		DSN:      cfg.DatabaseURL,
		MaxConns: int32(cfg.DatabasePoolSize),
		Logger:   logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Postgres")
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.WithError(err).Fatal("failed to migrate database")
	}

	// Redis: prices, recent swaps, swap events and feature flags
	swapCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr, Logger: logger})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer swapCache.Close()

	flagStore, err := flags.NewStore(swapCache.Client())
	if err != nil {
		logger.WithError(err).Fatal("failed to create flags store")
	}

	// ClickHouse analytics are optional
	var analytics swapengine.AnalyticsSink
	if cfg.ClickHouseAddr != "" {
		ch, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("clickhouse unavailable, swap analytics disabled")
		} else {
			analytics = ch
			defer ch.Close()
		}
	}

	// Signing account
	walletCfg, err := cfg.WalletConfig(logger)
	if err != nil {
		logger.WithError(err).Fatal("invalid resource bounds")
	}
	account, err := wallet.NewWallet(walletCfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to create wallet")
	}
	defer account.Close()

	verifyCtx, verifyCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := account.VerifyChain(verifyCtx); err != nil {
		logger.WithError(err).Warn("could not verify chain id")
	}
	verifyCancel()

	factor, err := swapengine.DecimalFactor(uint8(cfg.SwapDecimalExponent))
	if err != nil {
		logger.WithError(err).Fatal("invalid SWAP_DECIMAL_EXPONENT")
	}
	engine, err := swapengine.NewEngine(swapengine.EngineConfig{
		Account:          account,
		AMMContract:      cfg.ContractAddress,
		DecimalFactor:    factor,
		ExchangeContract: cfg.ExchangeAddress,
		Subscriptions:    db,
		Activity:         db,
		Flags:            flagStore,
		Events:           swapCache,
		Analytics:        analytics,
		Logger:           logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create swap engine")
	}

	h := &server.Handlers{
		DB:           db,
		Cache:        swapCache,
		Flags:        flagStore,
		Swaps:        engine,
		Transactions: account,
		DevMode:      cfg.DevMode,
		Logger:       logger,
	}

	if cfg.PriceOracleAddress != "" {
		feed, err := oracle.NewFeed(account.RPC(), cfg.PriceOracleAddress, swapCache, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to create price feed")
		}
		h.Prices = feed
	}

	if cfg.EthRPCURL != "" {
		reader, err := erc20.Dial(ctx, cfg.EthRPCURL)
		if err != nil {
			logger.WithError(err).Warn("ethereum rpc unavailable, allowance lookups disabled")
		} else {
			h.Allowances = reader
			defer reader.Close()
		}
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithFields(logrus.Fields{
		"addr":    cfg.APIAddr,
		"account": account.Address().String(),
		"chain":   cfg.ChainID,
	}).Info("api server starting")
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("api server failed")
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer waitCancel()
	if err := srv.WaitClosed(waitCtx); err != nil {
		logger.WithError(err).Warn("shutdown did not complete")
	}
}
