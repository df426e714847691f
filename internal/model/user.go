package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a registered user, created either through the local
// registration form or on first successful external login.
type User struct {
	ID                string     `json:"id" gorm:"type:char(36);primaryKey"`
	Email             string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Username          string     `json:"username" gorm:"size:255;not null"`
	FirstName         string     `json:"first_name" gorm:"size:255"`
	LastName          string     `json:"last_name" gorm:"size:255"`
	PasswordHash      string     `json:"-" gorm:"size:255"` // Never expose in JSON
	LockoutEnabled    bool       `json:"-" gorm:"default:false"`
	AccessFailedCount int        `json:"-" gorm:"default:0"`
	LockoutEnd        *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Relations
	Images []Image `json:"images,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets a UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// IsLockedOut reports whether the user is inside an active lockout window.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnabled && u.LockoutEnd != nil && now.Before(*u.LockoutEnd)
}
