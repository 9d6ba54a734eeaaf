package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/autoswappr/autoswappr-backend/internal/constants"
	"github.com/autoswappr/autoswappr-backend/internal/models"
	"github.com/autoswappr/autoswappr-backend/internal/storage"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PriceTTL time.Duration
	Logger   *logrus.Logger
}

// RedisCache implements storage.SwapCache.
type RedisCache struct {
	client   *redis.Client
	priceTTL time.Duration
	logger   *logrus.Logger
}

var _ storage.SwapCache = (*RedisCache)(nil)

func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return newRedisCache(client, cfg), nil
}

func newRedisCache(client *redis.Client, cfg RedisConfig) *RedisCache {
	if cfg.PriceTTL <= 0 {
		cfg.PriceTTL = constants.PriceTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &RedisCache{client: client, priceTTL: cfg.PriceTTL, logger: cfg.Logger}
}

// Client exposes the connection so the flag store can share it.
func (r *RedisCache) Client() *redis.Client { return r.client }

// AddRecentSwap pushes to the head of the recent list and trims it.
func (r *RedisCache) AddRecentSwap(ctx context.Context, swap *models.SwapEvent) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return fmt.Errorf("marshal swap: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentSwaps, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentSwaps, 0, constants.MaxRecentSwaps-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add recent swap: %w", err)
	}
	return nil
}

// GetRecentSwaps returns up to limit swaps, newest first.
func (r *RedisCache) GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error) {
	if limit <= 0 || limit > constants.MaxRecentSwaps {
		limit = constants.MaxRecentSwaps
	}
	raw, err := r.client.LRange(ctx, constants.RedisKeyRecentSwaps, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent swaps: %w", err)
	}

	swaps := make([]*models.SwapEvent, 0, len(raw))
	for _, item := range raw {
		var swap models.SwapEvent
		if err := json.Unmarshal([]byte(item), &swap); err != nil {
			r.logger.WithError(err).Warn("Skipping malformed cached swap")
			continue
		}
		swaps = append(swaps, &swap)
	}
	return swaps, nil
}

func (r *RedisCache) SetPrice(ctx context.Context, token string, price decimal.Decimal) error {
	return r.client.Set(ctx, constants.RedisKeyPricePrefix+token, price.String(), r.priceTTL).Err()
}

func (r *RedisCache) GetPrice(ctx context.Context, token string) (decimal.Decimal, error) {
	val, err := r.client.Get(ctx, constants.RedisKeyPricePrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, storage.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	price, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cached price for %s: %w", token, err)
	}
	return price, nil
}

// PublishSwap sends the event to the executions channel and to the channel
// of its pair.
func (r *RedisCache) PublishSwap(ctx context.Context, swap *models.SwapEvent) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return fmt.Errorf("marshal swap: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Publish(ctx, constants.PubSubChannelSwaps, data)
	if swap.Pair != "" {
		pipe.Publish(ctx, constants.PubSubChannelPairPrefix+swap.Pair, data)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// SubscribeSwaps streams events from the executions channel until ctx is
// done. Malformed payloads are skipped.
func (r *RedisCache) SubscribeSwaps(ctx context.Context) (<-chan *models.SwapEvent, error) {
	pubsub := r.client.Subscribe(ctx, constants.PubSubChannelSwaps)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", constants.PubSubChannelSwaps, err)
	}

	out := make(chan *models.SwapEvent, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var swap models.SwapEvent
				if err := json.Unmarshal([]byte(msg.Payload), &swap); err != nil {
					r.logger.WithError(err).Warn("Error unmarshaling swap")
					continue
				}
				select {
				case out <- &swap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
