package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// goCacheWrapper go-cache包装器
type goCacheWrapper struct {
	cache *gocache.Cache
}

// NewGoCache 创建基于go-cache的本地缓存
func NewGoCache(config LocalConfig) Cache {
	defaultExpiration := config.DefaultExpiration
	if defaultExpiration <= 0 {
		defaultExpiration = gocache.NoExpiration
	}
	return &goCacheWrapper{
		cache: gocache.New(defaultExpiration, config.CleanupInterval),
	}
}

// Get 获取缓存值
func (gc *goCacheWrapper) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if value, found := gc.cache.Get(key); found {
		b, ok := value.([]byte)
		return b, ok, nil
	}
	return nil, false, nil
}

// Set 设置缓存值
func (gc *goCacheWrapper) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = gocache.DefaultExpiration
	}
	gc.cache.Set(key, value, expiration)
	return nil
}

// Delete 删除缓存
func (gc *goCacheWrapper) Delete(ctx context.Context, key string) error {
	gc.cache.Delete(key)
	return nil
}

// DeletePrefix 删除前缀匹配的键
func (gc *goCacheWrapper) DeletePrefix(ctx context.Context, prefix string) error {
	for k := range gc.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			gc.cache.Delete(k)
		}
	}
	return nil
}

// Exists 检查键是否存在
func (gc *goCacheWrapper) Exists(ctx context.Context, key string) (bool, error) {
	_, found := gc.cache.Get(key)
	return found, nil
}

// Close go-cache不需要关闭连接
func (gc *goCacheWrapper) Close() error {
	return nil
}
