package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesforce-analytics/internal/common/config"
	stderrors "salesforce-analytics/internal/common/errors"
	"salesforce-analytics/internal/common/logger"
)

func testCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cache := NewCache(client, config.RedisConfig{TTL: 3600}, logger.Nop())
	return cache, mr
}

func TestCacheSetAndGetLatest(t *testing.T) {
	cache, _ := testCache(t)
	ctx := context.Background()

	payload := map[string]interface{}{"score": 87.5, "rating": "Excellent"}
	require.NoError(t, cache.SetLatest(ctx, "pipeline_health", payload))

	data, err := cache.GetLatest(ctx, "pipeline_health")
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 87.5, out["score"])
	assert.Equal(t, "Excellent", out["rating"])
}

func TestCacheGetLatestMissing(t *testing.T) {
	cache, _ := testCache(t)

	_, err := cache.GetLatest(context.Background(), "lead_scoring")
	require.Error(t, err)

	se, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeResultNotFound, se.Code)
}

func TestCacheEntryExpires(t *testing.T) {
	cache, mr := testCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetLatest(ctx, "churn_prediction", map[string]int{"total_accounts": 5}))

	mr.FastForward(cache.ttl * 2)

	_, err := cache.GetLatest(ctx, "churn_prediction")
	require.Error(t, err)

	se, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeResultNotFound, se.Code)
}

func TestCacheKeysAreScopedByType(t *testing.T) {
	cache, _ := testCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetLatest(ctx, "lead_scoring", map[string]string{"which": "leads"}))
	require.NoError(t, cache.SetLatest(ctx, "churn_prediction", map[string]string{"which": "churn"}))

	data, err := cache.GetLatest(ctx, "lead_scoring")
	require.NoError(t, err)
	assert.Contains(t, string(data), "leads")
}

func TestCacheSetLatestServerError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, config.RedisConfig{TTL: 3600}, logger.Nop())

	mock.ExpectSet("analytics:latest:lead_scoring", []byte(`{"total_leads":1}`), cache.ttl).
		SetErr(errors.New("READONLY You can't write against a read only replica"))

	err := cache.SetLatest(context.Background(), "lead_scoring", map[string]int{"total_leads": 1})
	require.Error(t, err)

	se, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeCacheFailed, se.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheGetLatestServerError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, config.RedisConfig{TTL: 3600}, logger.Nop())

	mock.ExpectGet("analytics:latest:churn_prediction").SetErr(errors.New("connection refused"))

	_, err := cache.GetLatest(context.Background(), "churn_prediction")
	require.Error(t, err)

	se, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeCacheFailed, se.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
