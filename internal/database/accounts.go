package database

import (
	"kylas-whatsapp-bridge/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountStore persists LinkedAccount records. Updates are plain
// last-writer-wins saves; there is no optimistic locking.
type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

// FindByUserID looks up the account linked to a Kylas user id.
func (s *AccountStore) FindByUserID(kylasUserID string) (*models.LinkedAccount, error) {
	var acc models.LinkedAccount
	if err := s.db.Where("kylas_user_id = ?", kylasUserID).First(&acc).Error; err != nil {
		return nil, err
	}
	return &acc, nil
}

// FindByProjectID looks up the account linked to a Wapiy project id.
func (s *AccountStore) FindByProjectID(projectID string) (*models.LinkedAccount, error) {
	var acc models.LinkedAccount
	if err := s.db.Where("project_id = ?", projectID).First(&acc).Error; err != nil {
		return nil, err
	}
	return &acc, nil
}

// Upsert inserts the account or updates the existing row with the same
// Kylas user id.
func (s *AccountStore) Upsert(acc *models.LinkedAccount) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kylas_user_id"}},
		UpdateAll: true,
	}).Create(acc).Error
}

// Save writes back changes to an already-loaded account.
func (s *AccountStore) Save(acc *models.LinkedAccount) error {
	return s.db.Save(acc).Error
}
