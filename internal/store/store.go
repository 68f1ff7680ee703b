// Package store persists generated artifacts as opaque JSON documents keyed by ArtifactKey.
package store

import (
	"context"

	"VidyaSync/internal/models"
)

// Document 读取结果，Exists 为 false 时 Data 为空
type Document struct {
	Exists bool
	Data   []byte
}

// DocumentStore 产物文档存储
type DocumentStore interface {
	Get(ctx context.Context, key models.ArtifactKey) (Document, error)
	Set(ctx context.Context, key models.ArtifactKey, data []byte) error
	// DeleteByResource 删除某资源所有语言、所有类型的文档
	DeleteByResource(ctx context.Context, resourceID string) error
}
