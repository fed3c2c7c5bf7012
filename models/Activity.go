package models

import "time"

// Activity is a meetup posted by a host. Ending an activity is a soft delete:
// EndedAt is set and the row stays; the directory only lists rows where
// EndedAt is NULL.
type Activity struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	HostID uint `json:"hostID" gorm:"not null;index"`
	Host   User `json:"-" gorm:"foreignKey:HostID"`

	Title           string `json:"title" gorm:"size:100;not null"`
	Description     string `json:"description" gorm:"size:500"`
	ImageURL        string `json:"imageURL" gorm:"size:512"`
	MaxParticipants int    `json:"maxParticipants" gorm:"default:10"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	EndedAt   *time.Time `json:"endedAt" gorm:"index"`
}
