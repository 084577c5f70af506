package database

import (
	"errors"

	"kylas-whatsapp-bridge/internal/models"

	"gorm.io/gorm"
)

// TemplateStore persists per-user template sets.
type TemplateStore struct {
	db *gorm.DB
}

func NewTemplateStore(db *gorm.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// FindByUserID returns the template set for a Kylas user, or nil when the
// user has never saved a template.
func (s *TemplateStore) FindByUserID(kylasUserID string) (*models.TemplateSet, error) {
	var set models.TemplateSet
	err := s.db.Where("kylas_user_id = ?", kylasUserID).First(&set).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &set, nil
}

// Save inserts or updates a template set.
func (s *TemplateStore) Save(set *models.TemplateSet) error {
	return s.db.Save(set).Error
}
