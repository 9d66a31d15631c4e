package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/product_catalog/internal/config"
)

func redisConfig(host, port string) *config.Config {
	return &config.Config{Redis: config.RedisConfig{Host: host, Port: port}}
}

func TestNewRedisClient_Success(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), redisConfig(mr.Host(), mr.Port()))
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestWaitForRedis_GivesUp(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	_, err := WaitForRedis(context.Background(), redisConfig(host, port), 2, 10*time.Millisecond)
	assert.ErrorContains(t, err, "after 2 retries")
}
