package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/dishcovery/backend/internal/models"
)

// Cache memoizes search responses in redis. Every failure path degrades to
// a cache miss: the search request never fails because redis is down.
type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewCache(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger,
	}
}

// Cache key constants
const (
	SearchResultsKey = "search:results:%s"
	SystemHealthKey  = "system:health"
)

// Get retrieves a cached search response. The second return value reports
// whether the lookup hit; errors are logged and reported as misses.
func (c *Cache) Get(ctx context.Context, key string) (*models.SearchResponse, bool) {
	data, err := c.client.Get(ctx, fmt.Sprintf(SearchResultsKey, key)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("Search cache read failed, treating as miss")
		}
		return nil, false
	}

	var resp models.SearchResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.WithError(err).Warn("Corrupt search cache entry, treating as miss")
		return nil, false
	}
	return &resp, true
}

// Set stores a search response with the tier-dependent TTL. Last write
// wins under concurrent writers.
func (c *Cache) Set(ctx context.Context, key string, resp *models.SearchResponse, ttl time.Duration) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal search response for cache")
		return
	}

	if err := c.client.Set(ctx, fmt.Sprintf(SearchResultsKey, key), data, ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Failed to cache search response")
	}
}

// CacheSystemHealth caches system health status
func (c *Cache) CacheSystemHealth(ctx context.Context, health []models.SystemHealth, expiration time.Duration) error {
	data, err := json.Marshal(health)
	if err != nil {
		return fmt.Errorf("failed to marshal system health: %w", err)
	}

	return c.client.Set(ctx, SystemHealthKey, data, expiration).Err()
}

// GetCachedSystemHealth retrieves cached system health
func (c *Cache) GetCachedSystemHealth(ctx context.Context) ([]models.SystemHealth, error) {
	data, err := c.client.Get(ctx, SystemHealthKey).Result()
	if err != nil {
		return nil, err
	}

	var health []models.SystemHealth
	err = json.Unmarshal([]byte(data), &health)
	return health, err
}
