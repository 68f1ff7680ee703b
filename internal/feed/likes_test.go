package feed

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"VidyaSync/internal/models"
	"VidyaSync/pkg/errors"
	"VidyaSync/pkg/metrics"
	"VidyaSync/pkg/util"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newLikes(t *testing.T) (*Likes, *gorm.DB, *prometheus.Registry) {
	t.Helper()
	db, err := util.OpenDatabase(&gorm.Config{}, "sqlite", "")
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	l, err := NewLikes(db, nil, metrics.NewMetrics(reg))
	require.NoError(t, err)
	return l, db, reg
}

func TestToggleLikeAndUnlike(t *testing.T) {
	l, _, _ := newLikes(t)
	ctx := context.Background()
	post, err := l.CreatePost(ctx, "author-1", "Photosynthesis notes")
	require.NoError(t, err)

	st, err := l.Toggle(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, LikeState{Liked: true, Count: 1}, st)

	st, err = l.Toggle(ctx, post.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, LikeState{Liked: true, Count: 2}, st)

	st, err = l.Toggle(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, LikeState{Liked: false, Count: 1}, st)

	confirmed, err := l.State(ctx, post.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, LikeState{Liked: true, Count: 1}, confirmed)
}

func TestToggleRevertsOnTransactionFailure(t *testing.T) {
	l, db, reg := newLikes(t)
	ctx := context.Background()
	post, err := l.CreatePost(ctx, "author-1", "Cell division")
	require.NoError(t, err)

	boom := stderrors.New("disk full")
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_likes", func(tx *gorm.DB) {
		if tx.Statement.Table == "post_likes" {
			_ = tx.AddError(boom)
		}
	}))

	st, err := l.Toggle(ctx, post.ID, "u1")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, LikeState{Liked: false, Count: 0}, st, "confirmed state is returned")

	after, err := l.State(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, LikeState{}, after, "intent is not left behind")

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Zero(t, stored.LikeCount)
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP like_toggle_reverts_total Optimistic like toggles reverted after a failed transaction
# TYPE like_toggle_reverts_total counter
like_toggle_reverts_total 1
`), "like_toggle_reverts_total"))
}

func TestToggleErrors(t *testing.T) {
	l, _, _ := newLikes(t)
	ctx := context.Background()

	_, err := l.Toggle(ctx, 42, "u1")
	assert.True(t, errors.IsNotFound(err))

	_, err = l.Toggle(ctx, 1, "")
	assert.True(t, errors.IsValidation(err))

	_, err = l.CreatePost(ctx, "a", "")
	assert.True(t, errors.IsValidation(err))
}

func TestOverlay(t *testing.T) {
	tests := []struct {
		name      string
		confirmed LikeState
		intent    bool
		want      LikeState
	}{
		{"like", LikeState{Count: 3}, true, LikeState{Liked: true, Count: 4}},
		{"unlike", LikeState{Liked: true, Count: 3}, false, LikeState{Count: 2}},
		{"already liked", LikeState{Liked: true, Count: 3}, true, LikeState{Liked: true, Count: 3}},
		{"clamped", LikeState{Liked: true}, false, LikeState{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, overlay(tt.confirmed, tt.intent))
		})
	}
}
