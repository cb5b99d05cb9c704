package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sarvcast-next/internal/config"

	"github.com/redis/go-redis/v9"
)

// Store 读穿缓存接口（get/put/forget + TTL）
type Store interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisStore 基于 Redis 的缓存实现
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 创建 Redis 缓存；未启用时返回 nil
func NewRedisStore(cfg *config.RedisConfig) *RedisStore {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	addr := strings.TrimSpace(cfg.Host)
	if addr == "" {
		addr = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "sc"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", addr, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisStoreWithClient(client, prefix)
}

// NewRedisStoreWithClient 使用已有客户端创建缓存
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: strings.TrimSpace(prefix)}
}

// Client 获取 Redis 客户端
func (s *RedisStore) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.client
}

// Ping 检查 Redis 连通性
func (s *RedisStore) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Close 关闭连接
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// GetJSON 获取 JSON 缓存
func (s *RedisStore) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := s.client.Get(ctx, s.buildKey(key)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存
func (s *RedisStore) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.buildKey(key), payload, ttl).Err()
}

// Del 删除缓存
func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	built := make([]string, 0, len(keys))
	for _, key := range keys {
		built = append(built, s.buildKey(key))
	}
	return s.client.Del(ctx, built...).Err()
}

func (s *RedisStore) buildKey(key string) string {
	trimmed := strings.TrimSpace(key)
	if s.prefix == "" {
		return trimmed
	}
	if trimmed == "" {
		return s.prefix
	}
	return fmt.Sprintf("%s:%s", s.prefix, trimmed)
}
