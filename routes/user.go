package routes

import (
	"strings"

	"meetup-app-server/models"
	"meetup-app-server/storage"
	"meetup-app-server/utils"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
	"golang.org/x/crypto/bcrypt"
)

func Register(ctx iris.Context) {
	var userInput RegisterUserInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var newUser models.User
	userExists, userExistsErr := getAndHandleUserExists(&newUser, userInput.Email)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if userExists {
		utils.CreateEmailAlreadyRegistered(ctx)
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(userInput.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	newUser = models.User{
		Email:    strings.ToLower(userInput.Email),
		Password: hashedPassword,
	}
	if err := storage.DB.Create(&newUser).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	profile := createProfileForUser(&newUser, userInput.Username)

	returnUser(newUser, profile, ctx)
}

func Login(ctx iris.Context) {
	var userInput LoginUserInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var existingUser models.User
	errorMsg := "Invalid email or password."
	userExists, userExistsErr := getAndHandleUserExists(&existingUser, userInput.Email)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if !userExists {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	passwordErr := bcrypt.CompareHashAndPassword([]byte(existingUser.Password), []byte(userInput.Password))
	if passwordErr != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	var profile models.Profile
	storage.DB.Where("user_id = ?", existingUser.ID).Limit(1).Find(&profile)

	returnUser(existingUser, &profile, ctx)
}

// Logout revokes the presented refresh token. The access token simply expires.
func Logout(ctx iris.Context) {
	var input utils.RefreshTokenInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	utils.RevokeRefreshToken(input.RefreshToken)
	ctx.StatusCode(iris.StatusNoContent)
}

// GetCurrentUser resolves the auth state for the client's session guard:
// the account plus its profile, synthesized from the account when missing.
func GetCurrentUser(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	var user models.User
	if err := storage.DB.First(&user, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	profile := loadOrSynthesizeProfile(&user)

	ctx.JSON(iris.Map{
		"success": true,
		"user":    user,
		"profile": profile,
	})
}

func getAndHandleUserExists(user *models.User, email string) (exists bool, err error) {
	userExistsQuery := storage.DB.Where("email = ?", strings.ToLower(email)).Limit(1).Find(&user)

	if userExistsQuery.Error != nil {
		return false, userExistsQuery.Error
	}

	return userExistsQuery.RowsAffected > 0, nil
}

func hashAndSaltPassword(password string) (hashedPassword string, err error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(bytes), nil
}

// createProfileForUser persists the signup profile. An omitted username
// defaults to the email local part; collisions get a random suffix.
func createProfileForUser(user *models.User, username string) *models.Profile {
	if username == "" {
		username = strings.Split(user.Email, "@")[0]
	}

	var taken int64
	storage.DB.Model(&models.Profile{}).Where("username = ?", username).Count(&taken)
	if taken > 0 {
		username = username + "-" + utils.GenerateShortToken(2)
	}

	profile := models.Profile{UserID: user.ID, Username: username}
	storage.DB.Create(&profile)
	return &profile
}

// loadOrSynthesizeProfile returns the stored profile, or a non-persisted
// fallback derived from the account when no row exists.
func loadOrSynthesizeProfile(user *models.User) *models.Profile {
	var profile models.Profile
	res := storage.DB.Where("user_id = ?", user.ID).Limit(1).Find(&profile)
	if res.Error == nil && res.RowsAffected > 0 {
		return &profile
	}
	return &models.Profile{UserID: user.ID, Username: strings.Split(user.Email, "@")[0]}
}

func returnUser(user models.User, profile *models.Profile, ctx iris.Context) {
	tokenPair, tokenErr := utils.CreateTokenPair(user.ID)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	resp := iris.Map{
		"ID":           user.ID,
		"email":        user.Email,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	}
	if profile != nil {
		resp["username"] = profile.Username
	}
	ctx.JSON(resp)
}

type RegisterUserInput struct {
	Email    string `json:"email" validate:"required,max=256,email"`
	Username string `json:"username" validate:"omitempty,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=256"`
}

type LoginUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
