package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"meetup-app-server/models"
	"meetup-app-server/storage"
	"meetup-app-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

// setupTestDB points the storage package at a fresh in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:routes_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	storage.Migrate(db)
	storage.DB = db
	return db
}

// buildTestApp assembles the API with the real route handlers and a JWT
// verifier backed by a test secret.
func buildTestApp(t *testing.T) *iris.Application {
	t.Helper()
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")
	os.Setenv("REFRESH_TOKEN_SECRET", "testrefreshsecret")
	app := iris.New()
	app.Validator = validator.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} { return new(utils.AccessToken) })

	user := app.Party("/api/user")
	{
		user.Post("/register", Register)
		user.Post("/login", Login)
		user.Get("/me", accessTokenVerifierMiddleware, GetCurrentUser)
	}
	activity := app.Party("/api/activity", accessTokenVerifierMiddleware)
	{
		activity.Post("/", CreateActivity)
		activity.Get("/", ListActivities)
		activity.Get("/{id:uint}", GetActivity)
		activity.Patch("/{id:uint}", UpdateActivity)
		activity.Post("/{id:uint}/end", EndActivity)
		activity.Post("/{id:uint}/requests", RequestToJoin)
		activity.Get("/{id:uint}/requests", GetActivityRequests)
	}
	requests := app.Party("/api/requests", accessTokenVerifierMiddleware)
	{
		requests.Get("/mine", GetMyRequests)
		requests.Post("/{requestID:uint}/respond", RespondToRequest)
	}
	profile := app.Party("/api/profile", accessTokenVerifierMiddleware)
	{
		profile.Get("/", GetProfile)
		profile.Patch("/", UpdateProfile)
		profile.Get("/dashboard", GetDashboard)
	}
	chat := app.Party("/api/chat", accessTokenVerifierMiddleware)
	{
		chat.Get("/{activityID:uint}/messages", ListChatMessages)
		chat.Post("/{activityID:uint}/messages", SendChatMessage)
		chat.Get("/{activityID:uint}/participants", ListChatParticipants)
	}
	notifications := app.Party("/api/notifications", accessTokenVerifierMiddleware)
	{
		notifications.Get("/", ListNotifications)
		notifications.Post("/{id:uint}/read", MarkNotificationRead)
	}

	if err := app.Build(); err != nil {
		t.Fatalf("build test app: %v", err)
	}
	return app
}

// signTestToken returns a signed access token for the given user.
func signTestToken(userID uint) string {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), time.Hour)
	token, _ := signer.Sign(utils.AccessToken{ID: userID})
	return string(token)
}

// createTestUser seeds a user with a profile.
func createTestUser(t *testing.T, email, username string) models.User {
	t.Helper()
	user := models.User{Email: email, Password: "x"}
	if err := storage.DB.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	profile := models.Profile{UserID: user.ID, Username: username}
	if err := storage.DB.Create(&profile).Error; err != nil {
		t.Fatalf("create profile %s: %v", username, err)
	}
	return user
}

// createTestActivity seeds an activity and its chat with the host on the
// roster, the same shape CreateActivity produces.
func createTestActivity(t *testing.T, hostID uint, title string) models.Activity {
	t.Helper()
	activity := models.Activity{HostID: hostID, Title: title, MaxParticipants: 10}
	if err := storage.DB.Create(&activity).Error; err != nil {
		t.Fatalf("create activity %s: %v", title, err)
	}
	chat := models.Chat{ActivityID: activity.ID}
	chat.SetParticipantIDs([]uint{hostID})
	if err := storage.DB.Create(&chat).Error; err != nil {
		t.Fatalf("create chat for %s: %v", title, err)
	}
	return activity
}

func activityPath(id uint) string {
	return fmt.Sprintf("/api/activity/%d", id)
}

// doJSON performs a request against the test app and returns the recorder.
func doJSON(t *testing.T, app *iris.Application, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

// decodeBody unmarshals a response body into a generic map.
func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", resp.Body.String(), err)
	}
	return out
}
