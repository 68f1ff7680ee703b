package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// NewCache 创建缓存实例
func NewCache(config Config) (Cache, error) {
	switch strings.ToLower(config.Type) {
	case "", "local":
		return NewLocalCache(config.Local), nil
	case "gocache":
		return NewGoCache(config.Local), nil
	case "redis":
		return NewRedisCache(config.Redis)
	case "layered":
		distributed, err := NewRedisCache(config.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
		return NewLayeredCache(NewLocalCache(config.Local), distributed, config.Local.DefaultExpiration), nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
}

// NewLayeredCache 创建分层缓存（本地缓存 + 分布式缓存）
func NewLayeredCache(local, distributed Cache, localExpiration time.Duration) Cache {
	return &layeredCache{local: local, distributed: distributed, localExpiration: localExpiration}
}

// layeredCache 分层缓存实现
type layeredCache struct {
	local           Cache
	distributed     Cache
	localExpiration time.Duration
}

// Get 从本地缓存获取，如果没有则从分布式缓存获取并回填本地缓存
func (lc *layeredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if value, ok, _ := lc.local.Get(ctx, key); ok {
		return value, true, nil
	}

	value, ok, err := lc.distributed.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	// 回填到本地缓存
	_ = lc.local.Set(ctx, key, value, lc.localExpiration)
	return value, true, nil
}

// Set 先写分布式缓存，成功后再写本地缓存
func (lc *layeredCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if err := lc.distributed.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	return lc.local.Set(ctx, key, value, lc.localExpiration)
}

// Delete 从两个缓存层删除
func (lc *layeredCache) Delete(ctx context.Context, key string) error {
	if err := lc.local.Delete(ctx, key); err != nil {
		return err
	}
	return lc.distributed.Delete(ctx, key)
}

// DeletePrefix 从两个缓存层按前缀删除
func (lc *layeredCache) DeletePrefix(ctx context.Context, prefix string) error {
	if err := lc.local.DeletePrefix(ctx, prefix); err != nil {
		return err
	}
	return lc.distributed.DeletePrefix(ctx, prefix)
}

// Exists 检查键是否存在
func (lc *layeredCache) Exists(ctx context.Context, key string) (bool, error) {
	if ok, _ := lc.local.Exists(ctx, key); ok {
		return true, nil
	}
	return lc.distributed.Exists(ctx, key)
}

// Close 关闭缓存连接
func (lc *layeredCache) Close() error {
	if err := lc.local.Close(); err != nil {
		return err
	}
	return lc.distributed.Close()
}
