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

// ListNotifications returns the viewer's notifications, newest first, paged.
func ListNotifications(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 20)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var total int64
	storage.DB.Model(&models.Notification{}).Where("user_id = ?", claims.ID).Count(&total)

	var notifications []models.Notification
	storage.DB.Where("user_id = ?", claims.ID).
		Order("created_at DESC").
		Limit(perPage).Offset((page - 1) * perPage).
		Find(&notifications)

	utils.JSONPage(ctx, notifications, page, perPage, total)
}

// MarkNotificationRead marks one of the viewer's notifications as read.
func MarkNotificationRead(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)
	notificationID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}

	var notification models.Notification
	if err := storage.DB.First(&notification, notificationID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if notification.UserID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	if !notification.IsRead {
		now := time.Now()
		storage.DB.Model(&notification).Updates(map[string]interface{}{
			"is_read": true,
			"read_at": &now,
		})
	}

	ctx.JSON(iris.Map{"success": true, "notification": notification})
}
