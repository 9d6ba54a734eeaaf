package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/autoswappr/autoswappr-backend/internal/models"
	"github.com/autoswappr/autoswappr-backend/internal/storage"
)

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// ClickHouseStore archives every submitted swap for analytics.
type ClickHouseStore struct {
	conn driver.Conn
}

var _ storage.SwapStore = (*ClickHouseStore)(nil)

const createSwapExecutions = `
	CREATE TABLE IF NOT EXISTS swap_executions (
		execution_id String,
		tx_hash      String,
		timestamp    DateTime64(3, 'UTC'),
		wallet       String,
		from_token   String,
		to_token     String,
		pair         LowCardinality(String),
		amount       String,
		percentage   UInt8,
		routed       Bool,
		duration_ms  Int64
	) ENGINE = MergeTree
	ORDER BY (wallet, timestamp)
`

const insertSwapExecution = `
	INSERT INTO swap_executions (
		execution_id, tx_hash, timestamp, wallet, from_token, to_token,
		pair, amount, percentage, routed, duration_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("clickhouse addr is required")
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	if err := conn.Exec(ctx, createSwapExecutions); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create swap_executions: %w", err)
	}

	cfg.Logger.WithField("database", cfg.Database).Info("Connected to ClickHouse")
	return &ClickHouseStore{conn: conn}, nil
}

func (c *ClickHouseStore) InsertSwap(ctx context.Context, swap *models.SwapEvent) error {
	err := c.conn.Exec(ctx, insertSwapExecution,
		swap.ExecutionID,
		swap.TxHash,
		swap.Timestamp,
		swap.Wallet,
		swap.FromToken,
		swap.ToToken,
		swap.Pair,
		swap.Amount,
		uint8(swap.Percentage),
		swap.Routed,
		swap.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to insert swap: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
