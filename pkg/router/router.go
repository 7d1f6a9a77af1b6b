package router

import (
	"lume-companion/backend/internal/api"
	"lume-companion/backend/internal/ws"
	"lume-companion/backend/pkg/di"
	"lume-companion/backend/pkg/errors"
	"lume-companion/backend/pkg/logger"
	"lume-companion/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Hub       *ws.Hub
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	if container.Config.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Logger middleware first to capture all requests
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	rateLimiter := middleware.NewRateLimiter(container.Logger, middleware.RateLimiterOptions{
		Limit:          rate.Limit(container.Config.Security.RateLimit),
		Burst:          container.Config.Security.RateLimitBurst,
		ExpiryDuration: middleware.DefaultRateLimiterOptions().ExpiryDuration,
		KeyFunc:        middleware.DefaultRateLimiterOptions().KeyFunc,
	})
	engine.Use(rateLimiter.Middleware())

	go container.Hub.Run()

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Hub:       container.Hub,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware())

	characterHandler := api.NewCharacterHandler(r.Container.Roster, r.Container.Chat, r.Container.ImageClient)
	messageHandler := api.NewMessageHandler(r.Container.Roster, r.Container.Chat)
	settingsHandler := api.NewSettingsHandler(r.Container.Roster, r.Container.GenClient, r.Container.ModelCache)
	healthHandler := api.NewHealthHandler(r.Container.Health)

	v1 := r.Engine.Group("/api/v1")

	healthHandler.RegisterRoutes(v1)
	characterHandler.RegisterRoutes(v1)
	messageHandler.RegisterRoutes(v1)
	settingsHandler.RegisterRoutes(v1)

	// WebSocket route
	r.Engine.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(r.Hub, c)
	})
}

// corsMiddleware allows the local UI shell and browser dev servers to reach
// the API, including the websocket upgrade headers.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
