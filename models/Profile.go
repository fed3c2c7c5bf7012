package models

import "time"

// Profile is the public face of a user. A row is created at signup; when one
// is missing the profile route synthesizes a fallback from the auth account.
type Profile struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	UserID uint `json:"userID" gorm:"not null;uniqueIndex"`
	User   User `json:"-" gorm:"foreignKey:UserID"`

	Username  string `json:"username" gorm:"size:50;not null;uniqueIndex"`
	Name      string `json:"name" gorm:"size:100"`
	AvatarURL string `json:"avatarURL" gorm:"size:512"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
