package models

import "time"

// ChatMessage stores a single message in an activity's chat. Append-only,
// ordered by creation time; never edited or deleted. Username is denormalized
// at write time so later profile renames do not rewrite history.
type ChatMessage struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	ChatID uint `json:"chatID" gorm:"not null;index"`
	Chat   Chat `json:"-" gorm:"foreignKey:ChatID"`

	SenderID uint `json:"senderID" gorm:"not null;index"`
	Sender   User `json:"-" gorm:"foreignKey:SenderID"`

	Username string `json:"username" gorm:"size:50"`
	Content  string `json:"content" gorm:"size:500;not null"`

	CreatedAt time.Time `json:"createdAt"`
}
