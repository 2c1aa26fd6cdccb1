package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/court-causelist/backend/pkg/logger"
	"github.com/court-causelist/backend/pkg/utils"
)

// Cache stores court hierarchy lists (states, districts, court complexes).
// Judges and cause lists are never cached.
type Cache interface {
	GetList(ctx context.Context, key string) ([]string, bool, error)
	SetList(ctx context.Context, key string, values []string) error
	Close() error
}

type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized",
		zap.String("addr", fmt.Sprintf("%s:%d", host, port)),
		zap.Duration("ttl", ttl),
	)

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// MetadataKey derives the cache key of one lookup, e.g. ("ecourts",
// "districts", "Delhi").
func MetadataKey(parts ...string) string {
	return fmt.Sprintf("meta:%s", utils.HashParts(parts...))
}

func (c *Client) SetList(ctx context.Context, key string, values []string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal list: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set metadata cache: %w", err)
	}

	logger.Debug("Metadata cached", zap.String("key", key), zap.Int("items", len(values)))
	return nil
}

func (c *Client) GetList(ctx context.Context, key string) ([]string, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get metadata cache: %w", err)
	}

	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal list: %w", err)
	}

	logger.Debug("Metadata cache hit", zap.String("key", key))
	return values, true, nil
}

// Invalidate drops every cached metadata list.
func (c *Client) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "meta:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Metadata cache invalidated")
	return nil
}

// Nop is used when Redis is disabled; every lookup misses.
type Nop struct{}

func (Nop) GetList(context.Context, string) ([]string, bool, error) { return nil, false, nil }
func (Nop) SetList(context.Context, string, []string) error         { return nil }
func (Nop) Close() error                                            { return nil }
