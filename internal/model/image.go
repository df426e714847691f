package model

import "time"

// Image is a gallery entry. A nil UserID marks a seeded community image with
// no owner. Rows exist only for uploads the moderation service accepted.
type Image struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	URL         string    `json:"url" gorm:"size:256;not null"`
	Description string    `json:"description" gorm:"size:128;not null"`
	UserID      *string   `json:"user_id,omitempty" gorm:"type:char(36);index"`
	CreatedAt   time.Time `json:"created_at"`

	User *User `json:"-" gorm:"foreignKey:UserID"`
}
