package store

import (
	"context"

	"VidyaSync/internal/models"
	"VidyaSync/pkg/cache"
)

// CacheStore 以 pkg/cache 后端（本地 LRU、go-cache、redis）作为文档存储
type CacheStore struct {
	cache cache.Cache
}

func NewCacheStore(c cache.Cache) *CacheStore {
	return &CacheStore{cache: c}
}

func (s *CacheStore) Get(ctx context.Context, key models.ArtifactKey) (Document, error) {
	data, ok, err := s.cache.Get(ctx, key.String())
	if err != nil || !ok {
		return Document{}, err
	}
	return Document{Exists: true, Data: data}, nil
}

func (s *CacheStore) Set(ctx context.Context, key models.ArtifactKey, data []byte) error {
	return s.cache.Set(ctx, key.String(), data, 0)
}

func (s *CacheStore) DeleteByResource(ctx context.Context, resourceID string) error {
	return s.cache.DeletePrefix(ctx, models.ResourcePrefix(resourceID))
}
