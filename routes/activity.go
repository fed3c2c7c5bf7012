package routes

import (
	"net/http"
	"time"

	"meetup-app-server/models"
	"meetup-app-server/storage"
	"meetup-app-server/utils"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
)

type createActivityInput struct {
	Title           string `json:"title" validate:"required,max=100"`
	Description     string `json:"description" validate:"omitempty,max=500"`
	ImageURL        string `json:"imageURL" validate:"omitempty,url,max=512"`
	MaxParticipants int    `json:"maxParticipants" validate:"omitempty,min=2,max=100"`
}

// CreateActivity inserts a new activity and opens its chat with the host as
// the only roster member.
func CreateActivity(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	var input createActivityInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	maxParticipants := input.MaxParticipants
	if maxParticipants == 0 {
		maxParticipants = 10
	}

	activity := models.Activity{
		HostID:          claims.ID,
		Title:           input.Title,
		Description:     input.Description,
		ImageURL:        input.ImageURL,
		MaxParticipants: maxParticipants,
	}
	if err := storage.DB.Create(&activity).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	chat := models.Chat{ActivityID: activity.ID}
	chat.SetParticipantIDs([]uint{claims.ID})
	storage.DB.Create(&chat)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "activity": activity})
}

// ListActivities returns non-ended activities, newest first. The optional q
// parameter is a case-insensitive substring match on the title.
func ListActivities(ctx iris.Context) {
	q := ctx.URLParamDefault("q", "")

	query := storage.DB.Where("ended_at IS NULL").Order("created_at DESC")
	if q != "" {
		query = query.Where("LOWER(title) LIKE LOWER(?)", "%"+q+"%")
	}

	var activities []models.Activity
	if err := query.Find(&activities).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	counts := participantCounts(activities)
	items := make([]iris.Map, 0, len(activities))
	for _, activity := range activities {
		items = append(items, iris.Map{
			"activity":         activity,
			"participantCount": counts[activity.ID],
		})
	}

	ctx.JSON(iris.Map{"success": true, "activities": items})
}

// GetActivity returns one activity with its host profile. The response is
// role-aware: hosts get the pending join requests with requester profiles,
// everyone else gets their own request status if any.
func GetActivity(ctx iris.Context) {
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

	var hostProfile models.Profile
	storage.DB.Where("user_id = ?", activity.HostID).Limit(1).Find(&hostProfile)

	isHost := activity.HostID == claims.ID
	resp := iris.Map{
		"success":          true,
		"activity":         activity,
		"hostProfile":      hostProfile,
		"isHost":           isHost,
		"participantCount": participantCounts([]models.Activity{activity})[activity.ID],
	}

	if isHost {
		var requests []models.ActivityRequest
		storage.DB.Where("activity_id = ? AND status = ?", activityID, "waiting").
			Order("created_at ASC").
			Find(&requests)

		userIDs := make([]uint, 0, len(requests))
		for _, r := range requests {
			userIDs = append(userIDs, r.UserID)
		}
		profiles := profilesByUserID(userIDs)

		items := make([]iris.Map, 0, len(requests))
		for _, r := range requests {
			items = append(items, iris.Map{"request": r, "profile": profiles[r.UserID]})
		}
		resp["requests"] = items
	} else {
		var myRequest models.ActivityRequest
		res := storage.DB.Where("activity_id = ? AND user_id = ?", activityID, claims.ID).Limit(1).Find(&myRequest)
		if res.Error == nil && res.RowsAffected > 0 {
			resp["myRequestStatus"] = myRequest.Status
		} else {
			resp["myRequestStatus"] = nil
		}
	}

	ctx.JSON(resp)
}

type updateActivityInput struct {
	Title       *string `json:"title" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	ImageURL    *string `json:"imageURL" validate:"omitempty,url,max=512"`
}

// UpdateActivity allows the host to edit title, description, or image.
func UpdateActivity(ctx iris.Context) {
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

	var input updateActivityInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if len(updates) > 0 {
		if err := storage.DB.Model(&activity).Updates(updates).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	ctx.JSON(iris.Map{"success": true, "activity": activity})
}

// EndActivity sets the end timestamp. Irreversible; the activity drops out of
// the directory but its chat and history remain readable.
func EndActivity(ctx iris.Context) {
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
	if activity.EndedAt != nil {
		ctx.JSON(iris.Map{"success": false, "error": "already_ended"})
		return
	}

	before := activity
	now := time.Now()
	if err := storage.DB.Model(&activity).Update("ended_at", &now).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.Audit(ctx, "activity.end", "activity", activity.ID, before, activity)

	ctx.JSON(iris.Map{"success": true, "activity": activity})
}

// participantCounts resolves roster sizes for a set of activities in one
// query.
func participantCounts(activities []models.Activity) map[uint]int {
	counts := make(map[uint]int, len(activities))
	if len(activities) == 0 {
		return counts
	}
	ids := make([]uint, 0, len(activities))
	for _, a := range activities {
		ids = append(ids, a.ID)
	}
	var chats []models.Chat
	storage.DB.Where("activity_id IN ?", ids).Find(&chats)
	for i := range chats {
		counts[chats[i].ActivityID] = len(chats[i].ParticipantIDs())
	}
	return counts
}

// profilesByUserID resolves profiles for a set of users in one query instead
// of one lookup per user.
func profilesByUserID(userIDs []uint) map[uint]models.Profile {
	profiles := make(map[uint]models.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles
	}
	var rows []models.Profile
	storage.DB.Where("user_id IN ?", userIDs).Find(&rows)
	for _, p := range rows {
		profiles[p.UserID] = p
	}
	return profiles
}
