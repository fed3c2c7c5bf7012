package routes

import (
	"net/http"
	"time"

	"meetup-app-server/models"
	"meetup-app-server/services"
	"meetup-app-server/storage"
	"meetup-app-server/utils"
	"meetup-app-server/ws"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
)

// RequestToJoin creates a waiting join request for the viewer. Hosts cannot
// request their own activity and a (activity, user) pair gets at most one
// request, ever.
func RequestToJoin(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)
	activityID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}

	var activity models.Activity
	if err := storage.DB.First(&activity, activityID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if activity.EndedAt != nil {
		ctx.JSON(iris.Map{"success": false, "error": "activity_ended"})
		return
	}
	if activity.HostID == claims.ID {
		ctx.JSON(iris.Map{"success": false, "error": "own_activity"})
		return
	}

	// Check if user already requested
	var existingRequest models.ActivityRequest
	if err := storage.DB.Where("activity_id = ? AND user_id = ?", activityID, claims.ID).First(&existingRequest).Error; err == nil {
		ctx.JSON(iris.Map{"success": false, "error": "already_requested"})
		return
	}

	// Check if user is already on the chat roster
	var chat models.Chat
	if err := storage.DB.Where("activity_id = ?", activityID).First(&chat).Error; err == nil && chat.HasParticipant(claims.ID) {
		ctx.JSON(iris.Map{"success": false, "error": "already_member"})
		return
	}

	request := models.ActivityRequest{
		ActivityID: activityID,
		UserID:     claims.ID,
		Status:     "waiting",
	}
	if err := storage.DB.Create(&request).Error; err != nil {
		// The unique (activity_id, user_id) index catches races the check above
		// cannot.
		ctx.JSON(iris.Map{"success": false, "error": "already_requested"})
		return
	}

	var requesterProfile models.Profile
	storage.DB.Where("user_id = ?", claims.ID).Limit(1).Find(&requesterProfile)

	services.NewNotificationService().
		NotifyRequestReceived(activity.HostID, requesterProfile.Username, activity.Title, activity.ID)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "request": request})
}

// GetActivityRequests returns the join requests of an activity (host only),
// with requester profiles resolved in one batched lookup.
func GetActivityRequests(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)
	activityID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}

	var activity models.Activity
	if err := storage.DB.First(&activity, activityID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if activity.HostID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	query := storage.DB.Where("activity_id = ?", activityID)
	if status := ctx.URLParamDefault("status", ""); status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []models.ActivityRequest
	query.Order("created_at DESC").Find(&requests)

	userIDs := make([]uint, 0, len(requests))
	for _, r := range requests {
		userIDs = append(userIDs, r.UserID)
	}
	profiles := profilesByUserID(userIDs)

	items := make([]iris.Map, 0, len(requests))
	for _, r := range requests {
		items = append(items, iris.Map{"request": r, "profile": profiles[r.UserID]})
	}

	ctx.JSON(iris.Map{"success": true, "requests": items})
}

type respondToRequestInput struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
}

// RespondToRequest lets the host accept or reject one waiting request.
// Accepting also puts the requester on the chat roster and pushes a roster
// event to live subscribers.
func RespondToRequest(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)
	requestID, err := ctx.Params().GetUint("requestID")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}

	var input respondToRequestInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var request models.ActivityRequest
	if err := storage.DB.Preload("Activity").First(&request, requestID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if request.Activity.HostID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	if request.Status != "waiting" {
		ctx.JSON(iris.Map{"success": false, "error": "request_already_processed"})
		return
	}

	status := "rejected"
	if input.Action == "accept" {
		status = "accepted"
	}

	before := request
	now := time.Now()
	updates := map[string]interface{}{
		"status":       status,
		"responded_at": &now,
	}
	if err := storage.DB.Model(&request).Updates(updates).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.Audit(ctx, "request."+input.Action, "activity_request", request.ID, before, request)

	if status == "accepted" {
		addToChatRoster(request.ActivityID, request.UserID)
	}

	services.NewNotificationService().
		NotifyRequestDecided(request.UserID, request.Activity.Title, request.ActivityID, status == "accepted")

	ctx.JSON(iris.Map{"success": true, "request": request})
}

// GetMyRequests returns the viewer's own join requests with their activities.
func GetMyRequests(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	var requests []models.ActivityRequest
	storage.DB.Where("user_id = ?", claims.ID).
		Preload("Activity").
		Order("created_at DESC").
		Find(&requests)

	ctx.JSON(iris.Map{"success": true, "requests": requests})
}

// addToChatRoster appends the user to the activity's chat roster and emits a
// roster event so live participant views update.
func addToChatRoster(activityID, userID uint) {
	var chat models.Chat
	if err := storage.DB.Where("activity_id = ?", activityID).First(&chat).Error; err != nil {
		// Chat rows are created with the activity; recreate if missing.
		chat = models.Chat{ActivityID: activityID}
		chat.SetParticipantIDs([]uint{userID})
		storage.DB.Create(&chat)
	} else {
		if !chat.AddParticipant(userID) {
			return
		}
		storage.DB.Model(&chat).Update("participants", chat.Participants)
	}

	services.PublishChatEvent(ws.Event{
		Type:         "roster",
		ActivityID:   activityID,
		Participants: chat.ParticipantIDs(),
	})
}
