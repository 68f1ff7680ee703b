package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Resource struct {
	ID          string    `json:"id" gorm:"primaryKey;size:64"`
	Title       string    `json:"title" gorm:"size:255"`
	Description string    `json:"description" gorm:"type:text"`
	Subject     string    `json:"subject" gorm:"size:128"`
	Language    string    `json:"language" gorm:"size:64"` // 原视频语言
	FileURL     string    `json:"fileUrl" gorm:"size:1024"`
	UploaderID  string    `json:"uploaderId" gorm:"size:64;index"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

var youTubeID = regexp.MustCompile(`^.*(youtu\.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*).*`)

// YouTubeID 返回外链视频ID，非 YouTube 链接返回空串
func YouTubeID(url string) string {
	m := youTubeID.FindStringSubmatch(url)
	if len(m) == 3 && len(m[2]) == 11 {
		return m[2]
	}
	return ""
}

// IsExternalVideo 外链视频无法静音控制，不做配音同步
func (r *Resource) IsExternalVideo() bool {
	return YouTubeID(r.FileURL) != ""
}

// CreateResource 创建资源，ID 为空时自动生成
func CreateResource(db *gorm.DB, r *Resource) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return db.Create(r).Error
}

// GetResource 按ID查询资源
func GetResource(db *gorm.DB, id string) (*Resource, error) {
	var r Resource
	if err := db.Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteResource 删除资源记录
func DeleteResource(db *gorm.DB, id string) error {
	return db.Where("id = ?", id).Delete(&Resource{}).Error
}
