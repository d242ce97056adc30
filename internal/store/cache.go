package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leafsii/journal-backend/internal/metrics"
	"github.com/leafsii/journal-backend/pkg/kv"
	memkv "github.com/leafsii/journal-backend/pkg/kv/memory"
	rediskv "github.com/leafsii/journal-backend/pkg/kv/redis"
)

// Cache is the read cache and change-feed bus. With Redis reachable both go
// through Redis; otherwise values live in an in-memory kv.Store and pub/sub
// stays inside the process.
type Cache struct {
	kvStore kv.Store
	// Set only in Redis mode
	redis *rediskv.Store
	// In-memory pubsub hub for when Redis is unavailable
	pubsubHub *PubSubHub

	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewCache(addr string, logger *zap.SugaredLogger, metrics *metrics.Metrics) (*Cache, error) {
	store, err := rediskv.New(addr)
	if err != nil {
		if logger != nil {
			logger.Warnw("Redis unavailable; using in-memory cache and pubsub", "addr", addr, "error", err)
		}
		return NewInMemoryCache(logger, metrics), nil
	}

	return &Cache{
		kvStore: store,
		redis:   store,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// NewInMemoryCache creates a process-local cache
func NewInMemoryCache(logger *zap.SugaredLogger, metrics *metrics.Metrics) *Cache {
	return &Cache{
		kvStore:   memkv.New(time.Minute),
		pubsubHub: NewPubSubHub(),
		logger:    logger,
		metrics:   metrics,
	}
}

// Cache keys
const (
	KeyCategories = "journal:cache:categories"
	KeyEntries    = "journal:cache:entries"
	keyEntry      = "journal:cache:entry"
)

// EntryKey is the cache key of a single entry with its category
func EntryKey(id int64) string {
	return fmt.Sprintf("%s:%d", keyEntry, id)
}

// keyKind strips ids so metrics stay low-cardinality
func keyKind(key string) string {
	kind := strings.TrimPrefix(key, "journal:cache:")
	if i := strings.IndexByte(kind, ':'); i >= 0 {
		kind = kind[:i]
	}
	return kind
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.kvStore.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			if c.metrics != nil {
				c.metrics.RecordCacheMiss(ctx, keyKind(key))
			}
			return ErrCacheMiss
		}
		if c.logger != nil {
			c.logger.Errorw("Cache get error", "key", key, "error", err)
		}
		return fmt.Errorf("cache get error: %w", err)
	}
	if c.metrics != nil {
		c.metrics.RecordCacheHit(ctx, keyKind(key))
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if err := c.kvStore.Set(ctx, key, data, ttl); err != nil {
		if c.logger != nil {
			c.logger.Errorw("Cache set error", "key", key, "error", err)
		}
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := c.kvStore.Del(ctx, keys...); err != nil {
		if c.logger != nil {
			c.logger.Errorw("Cache delete error", "keys", keys, "error", err)
		}
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

// Pub/Sub methods for real-time updates
func (c *Cache) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("pubsub marshal error: %w", err)
	}

	if c.redis != nil {
		if err := c.redis.Client().Publish(ctx, channel, data).Err(); err != nil {
			if c.logger != nil {
				c.logger.Errorw("Publish error", "channel", channel, "error", err)
			}
			return fmt.Errorf("pubsub publish error: %w", err)
		}
		return nil
	}

	c.pubsubHub.Publish(channel, string(data))
	if c.logger != nil {
		c.logger.Debugw("Published to in-memory pubsub", "channel", channel)
	}
	return nil
}

// Subscribe opens a subscription that ends when ctx is done or it is closed
func (c *Cache) Subscribe(ctx context.Context, channels ...string) Subscription {
	if c.redis != nil {
		return newRedisSubscription(ctx, c.redis.Client().Subscribe(ctx, channels...))
	}
	return c.pubsubHub.Subscribe(ctx, channels...)
}

// IsInMemoryMode returns true if the cache is running in in-memory mode
func (c *Cache) IsInMemoryMode() bool {
	return c.redis == nil
}

// Health check
func (c *Cache) Ping(ctx context.Context) error {
	return c.kvStore.Ping(ctx)
}

// Close connection
func (c *Cache) Close() error {
	return c.kvStore.Close()
}

// Error types
var (
	ErrCacheMiss = errors.New("cache miss")
)
