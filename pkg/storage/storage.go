package storage

import (
	"context"
	"io"
)

// Store 对象存储接口
type Store interface {
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Read(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, key string) error
	// DeletePrefix 删除前缀下的全部对象
	DeletePrefix(ctx context.Context, prefix string) error
	Exists(ctx context.Context, key string) (bool, error)
	PublicURL(key string) string
}
