package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shopopti/backend/internal/domain/extraction"
)

const defaultExtractionTTL = 15 * time.Minute

// RedisExtractionCache stores settled extraction records keyed by source URL.
// Entries expire on a TTL; a product page is re-extracted once its snapshot
// is considered stale.
type RedisExtractionCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// RedisExtractionCacheOption is a functional option for configuring the cache
type RedisExtractionCacheOption func(*RedisExtractionCache)

// WithExtractionTTL sets the entry lifetime
func WithExtractionTTL(ttl time.Duration) RedisExtractionCacheOption {
	return func(c *RedisExtractionCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithExtractionLogger sets the logger for the cache
func WithExtractionLogger(logger *zap.Logger) RedisExtractionCacheOption {
	return func(c *RedisExtractionCache) {
		c.logger = logger
	}
}

// NewRedisExtractionCache creates a cache on an existing Redis client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisExtractionCache(client *redis.Client, opts ...RedisExtractionCacheOption) *RedisExtractionCache {
	cache := &RedisExtractionCache{
		client: client,
		ttl:    defaultExtractionTTL,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// extractionCacheKey generates the cache key for a source URL. The URL is
// hashed so key length stays bounded regardless of query-string noise.
func extractionCacheKey(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return fmt.Sprintf("extraction:%s", hex.EncodeToString(sum[:]))
}

// Get retrieves a cached extraction. A miss returns (nil, nil).
func (c *RedisExtractionCache) Get(ctx context.Context, sourceURL string) (*extraction.RawExtraction, error) {
	data, err := c.client.Get(ctx, extractionCacheKey(sourceURL)).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Cache miss for extraction", zap.String("url", sourceURL))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get extraction from cache: %w", err)
	}

	var raw extraction.RawExtraction
	if err := json.Unmarshal(data, &raw); err != nil {
		// a corrupt entry is dropped rather than served
		c.logger.Warn("Dropping undecodable extraction cache entry",
			zap.String("url", sourceURL),
			zap.Error(err))
		_ = c.client.Del(ctx, extractionCacheKey(sourceURL)).Err()
		return nil, nil
	}
	return &raw, nil
}

// Set stores an extraction with the configured TTL.
func (c *RedisExtractionCache) Set(ctx context.Context, sourceURL string, raw *extraction.RawExtraction) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal extraction: %w", err)
	}

	if err := c.client.Set(ctx, extractionCacheKey(sourceURL), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set extraction in cache: %w", err)
	}
	return nil
}

// Invalidate removes the entry for a source URL.
func (c *RedisExtractionCache) Invalidate(ctx context.Context, sourceURL string) error {
	if err := c.client.Del(ctx, extractionCacheKey(sourceURL)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate extraction cache: %w", err)
	}
	return nil
}
