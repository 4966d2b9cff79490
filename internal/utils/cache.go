package utils

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/patrickmn/go-cache"
)

// Cache 全局缓存实例
var Cache *cache.Cache

// InitCache 初始化缓存
func InitCache() {
	// 默认过期时间5分钟，清理间隔10分钟
	Cache = cache.New(5*time.Minute, 10*time.Minute)
}

// CacheGet 获取缓存值
func CacheGet(key string) (interface{}, bool) {
	return Cache.Get(key)
}

// CacheSet 设置缓存值
func CacheSet(key string, value interface{}, duration time.Duration) {
	Cache.Set(key, value, duration)
}

// CacheDelete 删除缓存
func CacheDelete(key string) {
	Cache.Delete(key)
}

// CacheClear 清空所有缓存
func CacheClear() {
	Cache.Flush()
}

// LookupCache 外部查询结果缓存，容量有限且条目带 TTL
// 用于回复卡片的 TMDb 搜索：同一轮推荐常重复出现同一批标题，
// 未命中也会缓存占位卡片，避免对同一查询反复打外部接口
type LookupCache[T any] struct {
	storage *expirable.LRU[string, T]
}

// NewLookupCache 创建缓存，size 为最大条目数，ttl 为条目有效期
func NewLookupCache[T any](size int, ttl time.Duration) *LookupCache[T] {
	return &LookupCache[T]{
		storage: expirable.NewLRU[string, T](size, nil, ttl),
	}
}

// Set 写入，已有键直接覆盖并重置 TTL
func (c *LookupCache[T]) Set(key string, value T) {
	c.storage.Add(key, value)
}

// Get 读取，过期或被逐出的键按未命中处理
func (c *LookupCache[T]) Get(key string) (T, bool) {
	return c.storage.Get(key)
}

// Len 当前有效条目数
func (c *LookupCache[T]) Len() int {
	return c.storage.Len()
}
