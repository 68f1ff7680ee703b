package cache

import (
	"context"
	"time"
)

// Cache 键值缓存接口，值为序列化后的文档字节
type Cache interface {
	// Get 获取缓存值，未命中时 ok 为 false；err 仅表示后端故障
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set 设置缓存值，expiration<=0 表示不过期（本地 LRU 使用配置的默认 TTL）
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	// Delete 删除缓存
	Delete(ctx context.Context, key string) error

	// DeletePrefix 删除指定前缀的全部键，用于资源级联删除
	DeletePrefix(ctx context.Context, prefix string) error

	// Exists 检查键是否存在
	Exists(ctx context.Context, key string) (bool, error)

	// Close 关闭缓存连接
	Close() error
}

// Config 后端选择：local（golang-lru）、gocache、redis 或 layered（本地 + redis）
type Config struct {
	Type  string
	Redis RedisConfig
	Local LocalConfig
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LocalConfig MaxSize 为 0 不限制条数；DefaultExpiration 为 0 不过期；CleanupInterval 仅 gocache 使用
type LocalConfig struct {
	MaxSize           int
	DefaultExpiration time.Duration
	CleanupInterval   time.Duration
}
