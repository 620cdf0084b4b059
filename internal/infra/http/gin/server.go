package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"pingme/internal/infra/config"
	"pingme/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	User           UserHTTP
	Chat           ChatHTTP
	Upload         UploadHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"Content-Disposition",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.User != nil {
		api.GET("/users/find", h.User.Find)
		api.POST("/users/status", h.User.UpdateStatus)
	}
	if h.Chat != nil {
		api.GET("/conversations", h.Chat.Feed)
		api.POST("/conversations/private", h.Chat.StartPrivate)
		api.POST("/conversations/group", h.Chat.CreateGroup)
		api.GET("/conversations/:id/messages", h.Chat.ListMessages)
		api.POST("/conversations/:id/messages", h.Chat.SendMessage)
		api.POST("/messages/seen", h.Chat.MarkSeen)
		api.GET("/messages/:id/status", h.Chat.MessageStatus)
	}
	if h.Upload != nil {
		api.POST("/conversations/:id/files", h.Upload.UploadFile)
		api.POST("/conversations/:id/audio", h.Upload.UploadAudio)
		api.GET("/messages/:id/download", h.Upload.Download)
		api.GET("/messages/:id/image", h.Upload.Image)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
