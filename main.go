package main

import (
	"os"

	"meetup-app-server/routes"
	"meetup-app-server/services"
	"meetup-app-server/storage"
	"meetup-app-server/utils"
	"meetup-app-server/ws"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	godotenv.Load()
	storage.InitializeDB()
	storage.InitializeRedis()

	hub := ws.NewHub()
	services.InitChatEvents(hub)

	app := iris.New()
	app.Validator = validator.New()

	// CORS for the web client
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	// Websocket clients cannot always set headers; accept the token as a
	// query param on the handshake too.
	accessTokenVerifier.Extractors = append(accessTokenVerifier.Extractors, func(ctx iris.Context) string {
		return ctx.URLParam("token")
	})
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}

		return tokenInput.RefreshToken
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Post("/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)
		user.Post("/logout", accessTokenVerifierMiddleware, routes.Logout)
		user.Get("/me", accessTokenVerifierMiddleware, routes.GetCurrentUser)
	}

	activity := app.Party("/api/activity", accessTokenVerifierMiddleware)
	{
		activity.Post("/", routes.CreateActivity)
		activity.Get("/", routes.ListActivities)
		activity.Get("/{id:uint}", routes.GetActivity)
		activity.Patch("/{id:uint}", routes.UpdateActivity)
		activity.Post("/{id:uint}/end", routes.EndActivity)
		activity.Post("/{id:uint}/requests", routes.RequestToJoin)
		activity.Get("/{id:uint}/requests", routes.GetActivityRequests)
	}

	requests := app.Party("/api/requests", accessTokenVerifierMiddleware)
	{
		requests.Get("/mine", routes.GetMyRequests)
		requests.Post("/{requestID:uint}/respond", routes.RespondToRequest)
	}

	profile := app.Party("/api/profile", accessTokenVerifierMiddleware)
	{
		profile.Get("/", routes.GetProfile)
		profile.Patch("/", routes.UpdateProfile)
		profile.Get("/dashboard", routes.GetDashboard)
	}

	chat := app.Party("/api/chat", accessTokenVerifierMiddleware)
	{
		chat.Get("/{activityID:uint}/messages", routes.ListChatMessages)
		chat.Post("/{activityID:uint}/messages", routes.SendChatMessage)
		chat.Get("/{activityID:uint}/participants", routes.ListChatParticipants)
		chat.Get("/{activityID:uint}/ws", routes.ServeChatWS)
	}

	notifications := app.Party("/api/notifications", accessTokenVerifierMiddleware)
	{
		notifications.Get("/", routes.ListNotifications)
		notifications.Post("/{id:uint}/read", routes.MarkNotificationRead)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	app.Listen(":" + port)
}
