package models

import (
	"time"
)

// LinkedAccount represents one Kylas user linked to a Wapiy messaging project.
// It carries both auth schemes the Kylas API went through: the OAuth token pair
// (older endpoints) and the static api-key (newer endpoints). The token pair is
// rotated in place by the token manager; the api-key never expires.
type LinkedAccount struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	KylasUserID           string    `gorm:"column:kylas_user_id;uniqueIndex;not null" json:"kylas_user_id"`
	Email                 string    `gorm:"type:varchar(255)" json:"email"`
	AccessToken           string    `gorm:"type:text" json:"-"`
	RefreshToken          string    `gorm:"type:text" json:"-"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	APIKey                string    `gorm:"column:api_key;type:text" json:"-"`
	BusinessID            string    `gorm:"type:varchar(255)" json:"business_id"`
	ProjectID             string    `gorm:"type:varchar(255);index" json:"project_id"`
	OTP                   string    `gorm:"type:varchar(10)" json:"-"`
	OTPExpiresAt          time.Time `json:"-"`
	Verified              bool      `gorm:"default:false" json:"verified"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LinkedAccount) TableName() string {
	return "linked_accounts"
}

// UsesAPIKey reports whether the account is on the api-key auth scheme.
// Accounts linked via OTP carry an api-key; OAuth-era accounts do not.
func (a *LinkedAccount) UsesAPIKey() bool {
	return a.APIKey != ""
}

// Connected reports whether a messaging project is linked. Messaging
// operations are refused while this is false.
func (a *LinkedAccount) Connected() bool {
	return a.ProjectID != ""
}

// TemplateSet stores one user's saved WhatsApp template definitions.
type TemplateSet struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	KylasUserID string    `gorm:"column:kylas_user_id;uniqueIndex;not null" json:"kylas_user_id"`
	Templates   string    `gorm:"type:text" json:"templates"` // JSON array of template definitions
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TemplateSet) TableName() string {
	return "template_sets"
}
