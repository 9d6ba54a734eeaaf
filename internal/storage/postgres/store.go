// Package postgres stores subscriptions and the activity log in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/autoswappr/autoswappr-backend/internal/models"
	"github.com/autoswappr/autoswappr-backend/internal/storage"
)

type Config struct {
	DSN      string
	MaxConns int32
	Logger   *logrus.Logger
}

// Store implements storage.Database on a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

var _ storage.Database = (*Store)(nil)

func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse pg dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Store{pool: pool, logger: cfg.Logger}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// UpsertSubscription creates or reactivates the subscription and upserts each
// preference, all in one transaction.
func (s *Store) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO swap_subscription (wallet_address, to_token, is_active, created_at, updated_at)
			VALUES ($1, $2, TRUE, now(), now())
			ON CONFLICT (wallet_address)
			DO UPDATE SET
				to_token = EXCLUDED.to_token,
				is_active = TRUE,
				updated_at = now()
		`, sub.WalletAddress, sub.ToToken); err != nil {
			return fmt.Errorf("upsert subscription: %w", err)
		}

		batch := &pgx.Batch{}
		for _, p := range sub.Preferences {
			batch.Queue(`
				INSERT INTO swap_subscription_from_token (wallet_address, from_token, percentage, created_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (wallet_address, from_token)
				DO UPDATE SET percentage = EXCLUDED.percentage
			`, sub.WalletAddress, p.FromToken, p.Percentage)
		}
		br := tx.SendBatch(ctx, batch)
		for range sub.Preferences {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("upsert preference: %w", err)
			}
		}
		return br.Close()
	})
}

func (s *Store) GetSubscription(ctx context.Context, wallet string) (*models.Subscription, error) {
	sub := &models.Subscription{WalletAddress: wallet}
	err := s.pool.QueryRow(ctx, `
		SELECT to_token, is_active, created_at, updated_at
		FROM swap_subscription
		WHERE wallet_address = $1
	`, wallet).Scan(&sub.ToToken, &sub.IsActive, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT from_token, percentage
		FROM swap_subscription_from_token
		WHERE wallet_address = $1
		ORDER BY created_at, id
	`, wallet)
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	prefs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Preference, error) {
		var p models.Preference
		var pct int16
		err := row.Scan(&p.FromToken, &pct)
		p.Percentage = int(pct)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan preferences: %w", err)
	}
	sub.Preferences = prefs
	return sub, nil
}

func (s *Store) ListSubscriptionEntries(ctx context.Context, wallet string, before time.Time, limit int) ([]models.SubscriptionEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ft.from_token, s.to_token, ft.percentage, s.is_active, ft.created_at
		FROM swap_subscription_from_token ft
		JOIN swap_subscription s ON s.wallet_address = ft.wallet_address
		WHERE ft.wallet_address = $1 AND ft.created_at < $2
		ORDER BY ft.created_at DESC, ft.id DESC
		LIMIT $3
	`, wallet, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SubscriptionEntry, error) {
		var e models.SubscriptionEntry
		var pct int16
		err := row.Scan(&e.FromToken, &e.ToToken, &pct, &e.IsActive, &e.CreatedAt)
		e.Percentage = int(pct)
		return e, err
	})
}

func (s *Store) DeletePreference(ctx context.Context, wallet, fromToken string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM swap_subscription_from_token
		WHERE wallet_address = $1 AND from_token = $2
	`, wallet, fromToken)
	if err != nil {
		return false, fmt.Errorf("delete preference: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) UpdatePercentage(ctx context.Context, wallet, fromToken string, percentage int) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE swap_subscription_from_token
		SET percentage = $3
		WHERE wallet_address = $1 AND from_token = $2
	`, wallet, fromToken, percentage)
	if err != nil {
		return false, fmt.Errorf("update percentage: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) LogActivity(ctx context.Context, e *models.ActivityLog) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var txHash *string
	if e.TxHash != "" {
		txHash = &e.TxHash
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions_log (
			wallet_address, from_token, to_token, percentage, amount_from, amount_to, tx_hash, created_at
		) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8)
	`, e.WalletAddress, e.FromToken, e.ToToken, e.Percentage,
		e.AmountFrom.String(), e.AmountTo.String(), txHash, createdAt)
	if err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	return nil
}

func (s *Store) ListActivity(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, error) {
	query, args := activityQuery(filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ActivityLog, error) {
		var (
			e                    models.ActivityLog
			pct                  int16
			amountFrom, amountTo string
			txHash               *string
		)
		if err := row.Scan(&e.WalletAddress, &e.FromToken, &e.ToToken, &pct,
			&amountFrom, &amountTo, &txHash, &e.CreatedAt); err != nil {
			return e, err
		}
		e.Percentage = int(pct)
		if txHash != nil {
			e.TxHash = *txHash
		}
		var err error
		if e.AmountFrom, err = decimal.NewFromString(amountFrom); err != nil {
			return e, err
		}
		e.AmountTo, err = decimal.NewFromString(amountTo)
		return e, err
	})
}

// activityQuery builds the filtered log query. Values only ever travel as
// placeholders.
func activityQuery(f models.ActivityFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.WalletAddress != "" {
		add("wallet_address = $%d", f.WalletAddress)
	}
	if f.FromToken != "" {
		add("from_token = $%d", f.FromToken)
	}
	if f.ToToken != "" {
		add("to_token = $%d", f.ToToken)
	}
	if f.AmountTo != nil {
		add("amount_to = $%d::numeric", f.AmountTo.String())
	}
	if f.Cursor != nil {
		add("created_at < $%d", *f.Cursor)
	}

	var b strings.Builder
	b.WriteString(`SELECT wallet_address, from_token, to_token, percentage,
		amount_from::text, amount_to::text, tx_hash, created_at
		FROM transactions_log`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit)
	fmt.Fprintf(&b, " LIMIT $%d", len(args))
	return b.String(), args
}
