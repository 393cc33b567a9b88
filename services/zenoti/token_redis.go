package zenoti

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

const tokenKey = "zenoti:token"

// RedisTokenCache keeps the lease in redis until it expires.
type RedisTokenCache struct {
	client *redis.Client
}

func NewRedisTokenCache(client *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{client: client}
}

func (c *RedisTokenCache) Get(ctx context.Context) (Token, bool, error) {
	data, err := c.client.Get(ctx, tokenKey).Result()
	if err == redis.Nil {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, err
	}
	var t Token
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return Token{}, false, err
	}
	return t, true, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, t Token) error {
	ttl := time.Until(t.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, tokenKey, b, ttl).Err()
}

func (c *RedisTokenCache) Clear(ctx context.Context) error {
	return c.client.Del(ctx, tokenKey).Err()
}
