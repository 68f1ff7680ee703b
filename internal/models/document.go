package models

import "time"

// Document 产物持久化记录，Data 为 Transcript/Dubbing 的 JSON
type Document struct {
	Key        string    `gorm:"column:doc_key;primaryKey;size:255"`
	ResourceID string    `gorm:"size:64;index"`
	Kind       string    `gorm:"size:32"`
	Language   string    `gorm:"size:64"`
	Data       []byte
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}
