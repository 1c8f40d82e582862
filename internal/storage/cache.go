package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"salesforce-analytics/internal/common/config"
	stderrors "salesforce-analytics/internal/common/errors"
	"salesforce-analytics/internal/common/logger"
)

// Cache keeps the most recent result per analysis type in redis so the
// dashboard can render without an object storage round trip.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

func NewCache(client *redis.Client, cfg config.RedisConfig, log logger.Logger) *Cache {
	ttl := time.Duration(cfg.TTL) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{client: client, ttl: ttl, log: log}
}

func latestKeyFor(analysisType string) string {
	return fmt.Sprintf("analytics:latest:%s", analysisType)
}

// SetLatest stores the payload under the analysis type's latest key.
func (c *Cache) SetLatest(ctx context.Context, analysisType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return stderrors.NewCacheFailedError(err)
	}
	if err := c.client.Set(ctx, latestKeyFor(analysisType), data, c.ttl).Err(); err != nil {
		return stderrors.NewCacheFailedError(err)
	}
	c.log.Debug("Cached latest results", map[string]interface{}{
		"analysis_type": analysisType,
		"bytes":         len(data),
	})
	return nil
}

// GetLatest returns the cached payload, or a not-found error when the
// key is absent or expired.
func (c *Cache) GetLatest(ctx context.Context, analysisType string) (json.RawMessage, error) {
	data, err := c.client.Get(ctx, latestKeyFor(analysisType)).Bytes()
	if err == redis.Nil {
		return nil, stderrors.NewResultNotFoundError(analysisType)
	}
	if err != nil {
		return nil, stderrors.NewCacheFailedError(err)
	}
	return data, nil
}
