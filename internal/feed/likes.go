// Package feed implements the community feed's like toggle.
package feed

import (
	"context"
	stderrors "errors"
	"sync"

	"VidyaSync/internal/models"
	"VidyaSync/pkg/errors"
	"VidyaSync/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LikeState 某用户视角下帖子的点赞状态
type LikeState struct {
	Liked bool `json:"liked"`
	Count int  `json:"count"`
}

type likeKey struct {
	postID uint
	userID string
}

// Likes 乐观点赞：先登记意图，事务确认后清除，事务失败时显式回滚意图
type Likes struct {
	db      *gorm.DB
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	intents map[likeKey]bool
}

func NewLikes(db *gorm.DB, logger *zap.Logger, m *metrics.Metrics) (*Likes, error) {
	if err := db.AutoMigrate(&models.Post{}, &models.PostLike{}); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Likes{db: db, logger: logger, metrics: m, intents: make(map[likeKey]bool)}, nil
}

// CreatePost 新建帖子
func (l *Likes) CreatePost(ctx context.Context, authorID, content string) (*models.Post, error) {
	if content == "" {
		return nil, errors.Validation("post content is required")
	}
	p := &models.Post{AuthorID: authorID, Content: content}
	if err := l.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// State 已确认状态叠加尚未确认的意图
func (l *Likes) State(ctx context.Context, postID uint, userID string) (LikeState, error) {
	confirmed, err := l.confirmed(ctx, l.db, postID, userID)
	if err != nil {
		return LikeState{}, err
	}
	l.mu.Lock()
	intent, ok := l.intents[likeKey{postID, userID}]
	l.mu.Unlock()
	if !ok {
		return confirmed, nil
	}
	return overlay(confirmed, intent), nil
}

// Toggle 翻转点赞。成功返回乐观状态；失败时撤销意图并返回已确认状态和错误
func (l *Likes) Toggle(ctx context.Context, postID uint, userID string) (LikeState, error) {
	if userID == "" {
		return LikeState{}, errors.Validation("user id is required")
	}
	confirmed, err := l.confirmed(ctx, l.db, postID, userID)
	if err != nil {
		return LikeState{}, err
	}

	key := likeKey{postID, userID}
	intent := !confirmed.Liked
	l.mu.Lock()
	if _, busy := l.intents[key]; busy {
		l.mu.Unlock()
		return confirmed, errors.Validation("a like change for this post is already in flight")
	}
	l.intents[key] = intent
	l.mu.Unlock()
	optimistic := overlay(confirmed, intent)

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if intent {
			return like(tx, postID, userID)
		}
		return unlike(tx, postID, userID)
	})

	l.mu.Lock()
	delete(l.intents, key)
	l.mu.Unlock()

	if err != nil {
		l.metrics.RecordLikeRevert()
		l.logger.Warn("like toggle reverted",
			zap.Uint("post_id", postID),
			zap.String("user_id", userID),
			zap.Bool("intent", intent),
			zap.Error(err))
		return confirmed, err
	}
	return optimistic, nil
}

func like(tx *gorm.DB, postID uint, userID string) error {
	if err := tx.Create(&models.PostLike{PostID: postID, UserID: userID}).Error; err != nil {
		return err
	}
	return tx.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("like_count", gorm.Expr("like_count + ?", 1)).Error
}

func unlike(tx *gorm.DB, postID uint, userID string) error {
	res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}
	return tx.Model(&models.Post{}).Where("id = ? AND like_count > 0", postID).
		UpdateColumn("like_count", gorm.Expr("like_count - ?", 1)).Error
}

func (l *Likes) confirmed(ctx context.Context, db *gorm.DB, postID uint, userID string) (LikeState, error) {
	var post models.Post
	if err := db.WithContext(ctx).First(&post, postID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return LikeState{}, errors.NotFound("post %d not found", postID)
		}
		return LikeState{}, err
	}
	var n int64
	if err := db.WithContext(ctx).Model(&models.PostLike{}).
		Where("post_id = ? AND user_id = ?", postID, userID).Count(&n).Error; err != nil {
		return LikeState{}, err
	}
	return LikeState{Liked: n > 0, Count: post.LikeCount}, nil
}

func overlay(confirmed LikeState, intent bool) LikeState {
	switch {
	case intent && !confirmed.Liked:
		return LikeState{Liked: true, Count: confirmed.Count + 1}
	case !intent && confirmed.Liked:
		c := confirmed.Count - 1
		if c < 0 {
			c = 0
		}
		return LikeState{Liked: false, Count: c}
	}
	return confirmed
}
