package services

import (
	"log"

	"meetup-app-server/models"
	"meetup-app-server/storage"
)

// NotificationService creates in-app notification records. Delivery to a
// device (push) is handled by external systems and is out of scope here.
type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// Notify records a notification for a user unless they turned notifications
// off. Failures are logged and swallowed: a missed notification never fails
// the operation that triggered it.
func (ns *NotificationService) Notify(userID uint, notifType, title, message, refType string, refID uint) {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		log.Printf("notifications: user %d not found: %v", userID, err)
		return
	}
	if user.AllowsNotifications != nil && !*user.AllowsNotifications {
		return
	}

	notification := models.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		RefType: refType,
		RefID:   refID,
	}
	if err := storage.DB.Create(&notification).Error; err != nil {
		log.Printf("notifications: failed to create for user %d: %v", userID, err)
	}
}

// NotifyRequestReceived tells a host someone asked to join their activity.
func (ns *NotificationService) NotifyRequestReceived(hostID uint, requesterName, activityTitle string, activityID uint) {
	ns.Notify(hostID, "request_received", "New Join Request",
		requesterName+" wants to join \""+activityTitle+"\"", "activity", activityID)
}

// NotifyRequestDecided tells a requester the host's decision.
func (ns *NotificationService) NotifyRequestDecided(requesterID uint, activityTitle string, activityID uint, accepted bool) {
	if accepted {
		ns.Notify(requesterID, "request_accepted", "Join Request Accepted",
			"Your request to join \""+activityTitle+"\" has been accepted. You can join the group chat.", "activity", activityID)
		return
	}
	ns.Notify(requesterID, "request_rejected", "Join Request Rejected",
		"Your request to join \""+activityTitle+"\" was rejected.", "activity", activityID)
}
