package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache 基于Redis实现的缓存
// 条目数量由Redis自身的maxmemory策略约束，这里只负责TTL
type RedisCache struct {
	client     *redis.Client
	ctx        context.Context
	prefix     string
	defaultTTL time.Duration
}

// NewRedisCache 创建一个新的Redis缓存
func NewRedisCache(config Config) (Cache, error) {
	// 配置Redis客户端
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	// 测试连接
	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.RedisAddr, err)
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = DefaultConfig().KeyPrefix
	}

	return &RedisCache{
		client:     client,
		ctx:        ctx,
		prefix:     prefix,
		defaultTTL: config.DefaultTTL,
	}, nil
}

func (r *RedisCache) key(key string) string {
	return GenerateCacheKey(r.prefix, key)
}

// Get 获取缓存内容
func (r *RedisCache) Get(key string) (string, bool, error) {
	value, err := r.client.Get(r.ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		// 键不存在
		return "", false, nil
	} else if err != nil {
		// 其他错误
		return "", false, err
	}

	return value, true, nil
}

// Set 设置缓存内容，ttl为0时使用默认过期时间
func (r *RedisCache) Set(key string, value string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = r.defaultTTL
	}
	return r.client.Set(r.ctx, r.key(key), value, ttl).Err()
}

// Delete 删除缓存项
func (r *RedisCache) Delete(key string) error {
	return r.client.Del(r.ctx, r.key(key)).Err()
}

// Clear 删除所有带前缀的缓存项，不影响同一数据库中的其他数据
func (r *RedisCache) Clear() error {
	iter := r.client.Scan(r.ctx, 0, r.prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(r.ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(r.ctx, keys...).Err()
}

// Close 关闭Redis连接
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// 在包初始化时注册Redis缓存
func init() {
	RegisterCache("redis", NewRedisCache)
}
