package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache 基于go-cache实现的内存缓存
// 设置了MaxEntries时条目数有上限，写入新键前淘汰最早过期的条目
type MemoryCache struct {
	cache      *gocache.Cache
	maxEntries int
	mu         sync.Mutex
}

// NewMemoryCache 创建一个新的内存缓存
func NewMemoryCache(config Config) (Cache, error) {
	// 默认过期时间和清理间隔
	defaultExpiration := config.DefaultTTL
	if defaultExpiration == 0 {
		defaultExpiration = 24 * time.Hour
	}

	cleanupInterval := config.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 10 * time.Minute
	}

	return &MemoryCache{
		cache:      gocache.New(defaultExpiration, cleanupInterval),
		maxEntries: config.MaxEntries,
	}, nil
}

// Get 获取缓存内容
func (m *MemoryCache) Get(key string) (string, bool, error) {
	if value, found := m.cache.Get(key); found {
		str, ok := value.(string)
		if !ok {
			return "", false, nil
		}
		return str, true, nil
	}
	return "", false, nil
}

// Set 设置缓存内容
func (m *MemoryCache) Set(key string, value string, ttl time.Duration) error {
	// 如果ttl为0，使用默认过期时间
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxEntries > 0 {
		if _, exists := m.cache.Get(key); !exists {
			m.cache.DeleteExpired()
			for m.cache.ItemCount() >= m.maxEntries {
				if !m.evictOldest() {
					// 剩余条目都已过期但尚未清理
					m.cache.DeleteExpired()
					break
				}
			}
		}
	}
	m.cache.Set(key, value, ttl)
	return nil
}

// evictOldest 淘汰过期时间最早的条目，相同TTL下即最早写入的条目
// 没有可淘汰的未过期条目时返回false
func (m *MemoryCache) evictOldest() bool {
	var (
		oldestKey string
		oldestExp int64
		found     bool
	)
	for key, item := range m.cache.Items() {
		if !found || item.Expiration < oldestExp {
			oldestKey, oldestExp, found = key, item.Expiration, true
		}
	}
	if !found {
		return false
	}
	m.cache.Delete(oldestKey)
	return true
}

// Len 返回当前缓存条目数
func (m *MemoryCache) Len() int {
	return m.cache.ItemCount()
}

// Delete 删除缓存项
func (m *MemoryCache) Delete(key string) error {
	m.cache.Delete(key)
	return nil
}

// Clear 清空所有缓存
func (m *MemoryCache) Clear() error {
	m.cache.Flush()
	return nil
}

// 在包初始化时注册内存缓存
func init() {
	RegisterCache("memory", NewMemoryCache)
}
