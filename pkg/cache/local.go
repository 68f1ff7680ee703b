package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// localCache 基于 golang-lru 的本地 LRU 缓存，过期时间统一由 DefaultExpiration 决定
type localCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewLocalCache 创建本地缓存
func NewLocalCache(config LocalConfig) Cache {
	size := config.MaxSize
	if size < 0 {
		size = 0
	}
	return &localCache{
		lru: expirable.NewLRU[string, []byte](size, nil, config.DefaultExpiration),
	}
}

// Get 获取缓存值
func (lc *localCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := lc.lru.Get(key)
	return v, ok, nil
}

// Set 设置缓存值
func (lc *localCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	lc.lru.Add(key, value)
	return nil
}

// Delete 删除缓存
func (lc *localCache) Delete(ctx context.Context, key string) error {
	lc.lru.Remove(key)
	return nil
}

// DeletePrefix 删除前缀匹配的键
func (lc *localCache) DeletePrefix(ctx context.Context, prefix string) error {
	for _, k := range lc.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			lc.lru.Remove(k)
		}
	}
	return nil
}

// Exists 检查键是否存在
func (lc *localCache) Exists(ctx context.Context, key string) (bool, error) {
	return lc.lru.Contains(key), nil
}

// Close 本地缓存不需要关闭连接
func (lc *localCache) Close() error {
	return nil
}
