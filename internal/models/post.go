package models

import "time"

type Post struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	AuthorID  string    `json:"authorId" gorm:"size:64"`
	Content   string    `json:"content" gorm:"type:text"`
	LikeCount int       `json:"likeCount"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

type PostLike struct {
	ID        uint      `gorm:"primaryKey"`
	PostID    uint      `gorm:"uniqueIndex:idx_post_user"`
	UserID    string    `gorm:"size:64;uniqueIndex:idx_post_user"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
