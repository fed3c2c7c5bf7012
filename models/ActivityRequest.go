package models

import "time"

// ActivityRequest represents one user's application to join one activity.
// At most one row exists per (activity, user) pair; the status moves from
// waiting to accepted or rejected exactly once and the row is never deleted.
type ActivityRequest struct {
	ID         uint     `json:"id" gorm:"primaryKey"`
	ActivityID uint     `json:"activityID" gorm:"not null;index"`
	Activity   Activity `json:"activity" gorm:"foreignKey:ActivityID"`

	UserID uint `json:"userID" gorm:"not null;index"`
	User   User `json:"-" gorm:"foreignKey:UserID"`

	Status string `json:"status" gorm:"size:16;index"` // waiting, accepted, rejected

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	RespondedAt *time.Time `json:"respondedAt"`
}
