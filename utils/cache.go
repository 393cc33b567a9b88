// File: utils/cache.go
package utils

import (
	"context"
	"fmt"
	"time"

	"enaya/config"

	"github.com/go-redis/redis/v8"
)

// CacheClient is the generic cache client. It stays nil while redis is disabled.
var CacheClient *redis.Client

// InitCache connects the generic Redis cache client and pings it.
func InitCache() error {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to Redis (Cache): %w", err)
	}
	CacheClient = client
	return nil
}

// GetCacheClient returns the generic cache client or nil when redis is disabled.
func GetCacheClient() *redis.Client {
	return CacheClient
}

// RedisPinger adapts a redis client to the health monitor.
type RedisPinger struct {
	Client *redis.Client
}

func (p RedisPinger) Name() string { return "redis" }

func (p RedisPinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}
