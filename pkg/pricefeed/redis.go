package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/B0TMirage/cryptopulse/pkg/models"
)

var _ SnapshotCache = (*RedisCache)(nil)

const DefaultSnapshotTTL = 10 * time.Minute

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Ping checks the connection to the Redis server.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) keyForCoin(id string) string {
	return fmt.Sprintf("snapshot:%s", id)
}

func (c *RedisCache) keyForListing(page, perPage int) string {
	return fmt.Sprintf("listing:%d:%d", page, perPage)
}

func (c *RedisCache) PutSnapshots(ctx context.Context, snapshots []models.MarketSnapshot) error {
	pipe := c.client.Pipeline()
	for _, s := range snapshots {
		payload, err := json.Marshal(s)
		if err != nil {
			return err
		}
		pipe.Set(ctx, c.keyForCoin(s.ID), payload, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Error("failed to cache snapshots in redis", slog.Any("error", err))
		return err
	}
	return nil
}

func (c *RedisCache) Snapshots(ctx context.Context, ids []string) ([]models.MarketSnapshot, error) {
	if len(ids) == 0 {
		return []models.MarketSnapshot{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.keyForCoin(id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]models.MarketSnapshot, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var s models.MarketSnapshot
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			c.logger.Warn("could not decode cached snapshot", slog.String("key", keys[i]), slog.Any("error", err))
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *RedisCache) PutListing(ctx context.Context, page, perPage int, snapshots []models.MarketSnapshot) error {
	payload, err := json.Marshal(snapshots)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.keyForListing(page, perPage), payload, c.ttl).Err()
}

func (c *RedisCache) Listing(ctx context.Context, page, perPage int) ([]models.MarketSnapshot, error) {
	raw, err := c.client.Get(ctx, c.keyForListing(page, perPage)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snapshots []models.MarketSnapshot
	if err := json.Unmarshal(raw, &snapshots); err != nil {
		return nil, fmt.Errorf("decode cached listing: %w", err)
	}
	return snapshots, nil
}
