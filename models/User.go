package models

import (
	"gorm.io/gorm"
)

// User is the authentication account. Everything the rest of the app shows
// about a person lives in Profile; User only carries credentials and
// account-level switches.
type User struct {
	gorm.Model
	Email               string `json:"email" gorm:"uniqueIndex;not null"`
	Password            string `json:"-"`
	AllowsNotifications *bool  `json:"allowsNotifications"`
}
