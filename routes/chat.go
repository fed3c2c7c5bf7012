package routes

import (
	"net/http"
	"strings"

	"meetup-app-server/models"
	"meetup-app-server/services"
	"meetup-app-server/storage"
	"meetup-app-server/utils"
	"meetup-app-server/ws"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
)

type sendMessageInput struct {
	Content string `json:"content" validate:"required,max=500"`
}

// ListChatMessages returns the most recent messages of an activity's chat in
// chronological order (member only).
func ListChatMessages(ctx iris.Context) {
	chat, _, ok := requireChatMember(ctx)
	if !ok {
		return
	}

	limit := ctx.URLParamIntDefault("limit", 100)
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var msgs []models.ChatMessage
	storage.DB.Where("chat_id = ?", chat.ID).
		Order("id DESC").Limit(limit).Find(&msgs)
	// reverse to chronological
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	ctx.JSON(iris.Map{"success": true, "messages": msgs})
}

// SendChatMessage appends a message (member only). Whitespace-only content is
// rejected before any insert; the sender's username is denormalized into the
// row so old messages keep the name they were sent under.
func SendChatMessage(ctx iris.Context) {
	chat, claims, ok := requireChatMember(ctx)
	if !ok {
		return
	}

	var input sendMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Message cannot be empty.", ctx)
		return
	}

	var senderProfile models.Profile
	storage.DB.Where("user_id = ?", claims.ID).Limit(1).Find(&senderProfile)
	username := senderProfile.Username
	if username == "" {
		var sender models.User
		if err := storage.DB.First(&sender, claims.ID).Error; err == nil {
			username = strings.Split(sender.Email, "@")[0]
		}
	}

	msg := models.ChatMessage{
		ChatID:   chat.ID,
		SenderID: claims.ID,
		Username: username,
		Content:  content,
	}
	if err := storage.DB.Create(&msg).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	services.PublishChatEvent(ws.Event{
		Type:       "message",
		ActivityID: chat.ActivityID,
		Message:    &msg,
	})

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "message": msg})
}

// ListChatParticipants returns the roster with profiles, resolved in one
// batched lookup (member only).
func ListChatParticipants(ctx iris.Context) {
	chat, _, ok := requireChatMember(ctx)
	if !ok {
		return
	}

	ids := chat.ParticipantIDs()
	profiles := profilesByUserID(ids)

	participants := make([]iris.Map, 0, len(ids))
	for _, id := range ids {
		p, found := profiles[id]
		if !found {
			p = models.Profile{UserID: id, Username: "user"}
		}
		participants = append(participants, iris.Map{
			"userID":    id,
			"username":  p.Username,
			"name":      p.Name,
			"avatarURL": p.AvatarURL,
		})
	}

	ctx.JSON(iris.Map{"success": true, "participants": participants, "count": len(participants)})
}

// ServeChatWS upgrades the request into a live subscription carrying message
// and roster events for one activity (member only). The token may arrive via
// query param since websocket clients cannot always set headers.
func ServeChatWS(ctx iris.Context) {
	chat, claims, ok := requireChatMember(ctx)
	if !ok {
		return
	}

	var profile models.Profile
	storage.DB.Where("user_id = ?", claims.ID).Limit(1).Find(&profile)

	hub := services.ChatHub()
	if hub == nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if err := ws.Serve(hub, chat.ActivityID, claims.ID, profile.Username, ctx.ResponseWriter(), ctx.Request()); err != nil {
		// Upgrade failures already wrote the handshake error.
		return
	}
}

// requireChatMember loads the chat for the {activityID} path parameter and
// verifies the caller is on its roster.
func requireChatMember(ctx iris.Context) (*models.Chat, *utils.AccessToken, bool) {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return nil, nil, false
	}
	claims := tok.(*utils.AccessToken)

	activityID, err := ctx.Params().GetUint("activityID")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return nil, nil, false
	}

	var chat models.Chat
	if err := storage.DB.Where("activity_id = ?", activityID).First(&chat).Error; err != nil {
		utils.CreateNotFound(ctx)
		return nil, nil, false
	}
	if !chat.HasParticipant(claims.ID) {
		utils.CreateForbidden(ctx)
		return nil, nil, false
	}
	return &chat, claims, true
}
