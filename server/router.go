package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"postbridge/infrastructure/realtime"
	httpHandler "postbridge/interfaces/http"
	"postbridge/interfaces/middleware"
	"postbridge/usecase"
)

func InitiateRouter(
	authHandler httpHandler.IAuthHandler,
	oauthHandler httpHandler.IOAuthHandler,
	publishingHandler httpHandler.IPublishingHandler,
	sessions *usecase.SessionStore,
	jobHub *realtime.Hub,
	navigator *realtime.BrowserNavigator,
	allowedOrigins []string,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Routes reachable without a stored session
	router.POST("/login", authHandler.Login)
	router.POST("/register", authHandler.Register)
	router.GET("/verify-email", authHandler.VerifyEmail)
	router.POST("/verify-email/resend", authHandler.ResendVerificationGuest)
	router.POST("/password/reset-request", authHandler.RequestPasswordReset)
	router.POST("/password/reset", authHandler.SubmitPasswordReset)

	// The provider redirects back here; session checks happen inside the flow
	// so the page always gets a status it can render.
	router.GET("/oauth/:provider/callback", oauthHandler.Callback)

	api := router.Group("api")
	api.Use(middleware.RequireSession(sessions))

	api.GET("/session", authHandler.Session)
	api.POST("/logout", authHandler.Logout)
	api.POST("/verify-email/resend", authHandler.ResendVerification)
	api.GET("/onboarding", authHandler.Onboarding)
	api.POST("/onboarding", authHandler.SubmitOnboarding)
	api.GET("/devices", authHandler.Devices)
	api.DELETE("/devices/:deviceId", authHandler.RevokeDevice)

	api.GET("/connections", oauthHandler.Connections)
	api.DELETE("/connections/:id", oauthHandler.DeleteConnection)
	oauth := api.Group("/oauth/:provider")
	{
		oauth.POST("/start", oauthHandler.Start)
		oauth.GET("/status", oauthHandler.Status)
		oauth.POST("/select", oauthHandler.Select)
		oauth.POST("/confirm", oauthHandler.Confirm)
		oauth.DELETE("", oauthHandler.Reset)
	}

	publishing := api.Group("/publishing")
	{
		publishing.GET("/jobs", publishingHandler.List)
		publishing.POST("/jobs", publishingHandler.Create)
		publishing.GET("/jobs/:id/attempts", publishingHandler.Attempts)
		publishing.POST("/jobs/:id/retry", publishingHandler.Retry)
		publishing.POST("/jobs/:id/cancel", publishingHandler.Cancel)
		publishing.DELETE("/jobs/:id/local", publishingHandler.Remove)
		publishing.GET("/stream", func(c *gin.Context) { jobHub.Serve(c) })
	}

	// Navigation bridge for the oauth redirect fallback
	api.GET("/ui/navigation", func(c *gin.Context) { navigator.Serve(c) })
	api.POST("/ui/location", func(c *gin.Context) {
		var req struct {
			Location string `json:"location" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		navigator.SetLocation(req.Location)
		c.Status(http.StatusNoContent)
	})

	return router
}
