package models

import (
	"encoding/json"
	"time"

	"golang.org/x/exp/slices"
	"gorm.io/datatypes"
)

// Chat is the group chat attached 1:1 to an activity. Participants holds the
// roster as a JSON array of user IDs; the host is added at creation and
// accepted requesters are appended when their request is approved.
type Chat struct {
	ID         uint     `json:"id" gorm:"primaryKey"`
	ActivityID uint     `json:"activityID" gorm:"not null;uniqueIndex"`
	Activity   Activity `json:"-" gorm:"foreignKey:ActivityID"`

	Participants datatypes.JSON `json:"participants"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Chat) ParticipantIDs() []uint {
	var ids []uint
	if c.Participants != nil {
		_ = json.Unmarshal(c.Participants, &ids)
	}
	return ids
}

func (c *Chat) SetParticipantIDs(ids []uint) {
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	c.Participants = datatypes.JSON(raw)
}

func (c *Chat) HasParticipant(userID uint) bool {
	return slices.Contains(c.ParticipantIDs(), userID)
}

// AddParticipant appends userID to the roster, ignoring duplicates.
// Returns true when the roster changed.
func (c *Chat) AddParticipant(userID uint) bool {
	ids := c.ParticipantIDs()
	if slices.Contains(ids, userID) {
		return false
	}
	c.SetParticipantIDs(append(ids, userID))
	return true
}
