package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/autoswappr/autoswappr-backend/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// SubscriptionStore persists wallets' auto-swap preferences
type SubscriptionStore interface {
	// UpsertSubscription creates or replaces a subscription and adds its
	// preferences in one transaction
	UpsertSubscription(ctx context.Context, sub *models.Subscription) error

	// GetSubscription returns the subscription with all its preferences, or ErrNotFound
	GetSubscription(ctx context.Context, wallet string) (*models.Subscription, error)

	// ListSubscriptionEntries pages preference rows created before the cursor, newest first
	ListSubscriptionEntries(ctx context.Context, wallet string, before time.Time, limit int) ([]models.SubscriptionEntry, error)

	// DeletePreference removes one source token; false when nothing matched
	DeletePreference(ctx context.Context, wallet, fromToken string) (bool, error)

	// UpdatePercentage changes one preference; false when nothing matched
	UpdatePercentage(ctx context.Context, wallet, fromToken string, percentage int) (bool, error)
}

// ActivityStore persists the swap history shown to users
type ActivityStore interface {
	// LogActivity appends one activity row
	LogActivity(ctx context.Context, entry *models.ActivityLog) error

	// ListActivity returns rows matching the filter, newest first
	ListActivity(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, error)
}

// Database is the relational store behind the API
type Database interface {
	SubscriptionStore
	ActivityStore

	// Ping checks if the database is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// SwapCache defines the interface for caching swap data
type SwapCache interface {
	// AddRecentSwap adds a swap to the recent swaps list
	AddRecentSwap(ctx context.Context, swap *models.SwapEvent) error

	// GetRecentSwaps retrieves the most recent swaps
	GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error)

	// SetPrice caches the USD price of a token
	SetPrice(ctx context.Context, token string, price decimal.Decimal) error

	// GetPrice retrieves a cached price, or ErrNotFound when absent or expired
	GetPrice(ctx context.Context, token string) (decimal.Decimal, error)

	// PublishSwap publishes a swap event to the Pub/Sub channel
	PublishSwap(ctx context.Context, swap *models.SwapEvent) error

	// SubscribeSwaps subscribes to real-time swap events
	SubscribeSwaps(ctx context.Context) (<-chan *models.SwapEvent, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	// Close closes the cache connection
	io.Closer
}

// SwapStore defines the interface for the swap analytics store
type SwapStore interface {
	// InsertSwap inserts a swap event into the store
	InsertSwap(ctx context.Context, swap *models.SwapEvent) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close closes the store connection
	io.Closer
}
