package models

import "time"

// OAuthToken persists the token pair for one external provider.
type OAuthToken struct {
	Provider     string `gorm:"primaryKey;size:32"`
	AccessToken  string `gorm:"type:text"`
	RefreshToken string `gorm:"type:text"`
	TokenType    string `gorm:"size:32"`
	Expiry       time.Time
	UpdatedAt    time.Time
}

// TableName pins the table name; the default naming would split "OAuth".
func (OAuthToken) TableName() string {
	return "oauth_tokens"
}
