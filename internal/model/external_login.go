package model

import "time"

// ExternalLogin links a third-party identity to a local user.
// At most one user per (provider, provider key).
type ExternalLogin struct {
	Provider    string    `json:"provider" gorm:"size:64;primaryKey"`
	ProviderKey string    `json:"provider_key" gorm:"size:191;primaryKey"`
	UserID      string    `json:"user_id" gorm:"type:char(36);not null;index"`
	CreatedAt   time.Time `json:"created_at"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
