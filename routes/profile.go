package routes

import (
	"meetup-app-server/models"
	"meetup-app-server/storage"
	"meetup-app-server/utils"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
)

// GetProfile returns the viewer's profile, synthesizing a fallback from the
// auth account when no row exists.
func GetProfile(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	var user models.User
	if err := storage.DB.First(&user, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "profile": loadOrSynthesizeProfile(&user)})
}

type updateProfileInput struct {
	Name      *string `json:"name" validate:"omitempty,max=100"`
	AvatarURL *string `json:"avatarURL" validate:"omitempty,url,max=512"`
}

// UpdateProfile edits display name or avatar. The username is fixed at
// signup.
func UpdateProfile(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	var profile models.Profile
	res := storage.DB.Where("user_id = ?", claims.ID).Limit(1).Find(&profile)
	if res.Error != nil || res.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	var input updateProfileInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.AvatarURL != nil {
		updates["avatar_url"] = *input.AvatarURL
	}
	if len(updates) > 0 {
		if err := storage.DB.Model(&profile).Updates(updates).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	ctx.JSON(iris.Map{"success": true, "profile": profile})
}

// GetDashboard aggregates the viewer's hosted activities and their own join
// requests into stats and one badge-tagged list.
func GetDashboard(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	var hosted []models.Activity
	storage.DB.Where("host_id = ? AND ended_at IS NULL", claims.ID).
		Order("created_at DESC").
		Find(&hosted)

	var requests []models.ActivityRequest
	storage.DB.Where("user_id = ?", claims.ID).
		Preload("Activity").
		Order("created_at DESC").
		Find(&requests)

	waiting := 0
	accepted := 0
	for _, r := range requests {
		switch r.Status {
		case "waiting":
			waiting++
		case "accepted":
			accepted++
		}
	}

	counted := make([]models.Activity, 0, len(hosted)+len(requests))
	counted = append(counted, hosted...)
	for _, r := range requests {
		counted = append(counted, r.Activity)
	}
	counts := participantCounts(counted)

	items := make([]iris.Map, 0, len(hosted)+len(requests))
	for _, activity := range hosted {
		items = append(items, iris.Map{
			"activity":         activity,
			"participantCount": counts[activity.ID],
			"badge":            "hosted",
		})
	}
	for _, r := range requests {
		if r.Status == "rejected" {
			continue
		}
		items = append(items, iris.Map{
			"activity":         r.Activity,
			"participantCount": counts[r.ActivityID],
			"badge":            r.Status,
		})
	}

	var user models.User
	storage.DB.First(&user, claims.ID)

	ctx.JSON(iris.Map{
		"success": true,
		"profile": loadOrSynthesizeProfile(&user),
		"stats": iris.Map{
			"hosted":   len(hosted),
			"waiting":  waiting,
			"accepted": accepted,
		},
		"activities": items,
	})
}
