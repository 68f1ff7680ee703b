package store

import (
	"context"
	"testing"

	"VidyaSync/internal/models"
	"VidyaSync/pkg/cache"
	"VidyaSync/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func stores(t *testing.T) map[string]DocumentStore {
	db, err := util.OpenDatabase(&gorm.Config{}, "sqlite", "")
	require.NoError(t, err)
	gs, err := NewGormStore(db)
	require.NoError(t, err)

	return map[string]DocumentStore{
		"gorm":  gs,
		"cache": NewCacheStore(cache.NewLocalCache(cache.LocalConfig{MaxSize: 100})),
	}
}

func TestDocumentStores(t *testing.T) {
	ctx := context.Background()
	hindi := models.ArtifactKey{Kind: models.KindTranscript, ResourceID: "r1", Language: "Hindi"}
	dub := models.ArtifactKey{Kind: models.KindDubbing, ResourceID: "r1", Language: "Hindi"}
	other := models.ArtifactKey{Kind: models.KindTranscript, ResourceID: "r2", Language: "Hindi"}

	for name, s := range stores(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			doc, err := s.Get(ctx, hindi)
			require.NoError(t, err)
			assert.False(t, doc.Exists)

			require.NoError(t, s.Set(ctx, hindi, []byte(`{"v":1}`)))
			require.NoError(t, s.Set(ctx, hindi, []byte(`{"v":2}`)))
			require.NoError(t, s.Set(ctx, dub, []byte(`{}`)))
			require.NoError(t, s.Set(ctx, other, []byte(`{}`)))

			doc, err = s.Get(ctx, hindi)
			require.NoError(t, err)
			assert.True(t, doc.Exists)
			assert.Equal(t, `{"v":2}`, string(doc.Data))

			require.NoError(t, s.DeleteByResource(ctx, "r1"))
			doc, _ = s.Get(ctx, hindi)
			assert.False(t, doc.Exists)
			doc, _ = s.Get(ctx, dub)
			assert.False(t, doc.Exists)
			doc, _ = s.Get(ctx, other)
			assert.True(t, doc.Exists)
		})
	}
}
