package store

import (
	"context"
	"errors"

	"VidyaSync/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore 基于关系数据库的文档存储
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&models.Document{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, key models.ArtifactKey) (Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).Where("doc_key = ?", key.String()).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, nil
	}
	if err != nil {
		return Document{}, err
	}
	return Document{Exists: true, Data: doc.Data}, nil
}

// Set 覆盖写入
func (s *GormStore) Set(ctx context.Context, key models.ArtifactKey, data []byte) error {
	doc := models.Document{
		Key:        key.String(),
		ResourceID: key.ResourceID,
		Kind:       string(key.Kind),
		Language:   key.Language,
		Data:       data,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&doc).Error
}

func (s *GormStore) DeleteByResource(ctx context.Context, resourceID string) error {
	return s.db.WithContext(ctx).Where("resource_id = ?", resourceID).Delete(&models.Document{}).Error
}
