package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lostfound/internal/auth"
	"github.com/vovakirdan/lostfound/internal/config"
	"github.com/vovakirdan/lostfound/internal/core"
	"github.com/vovakirdan/lostfound/internal/inbox"
	"github.com/vovakirdan/lostfound/internal/service/messages"
	"github.com/vovakirdan/lostfound/internal/store"
)

// Deps groups the collaborators served over HTTP.
type Deps struct {
	Hub      *core.Hub
	Auth     *auth.Service
	Messages *messages.Service
	Store    store.Store
	Labels   inbox.LabelResolver
}

// NewServer builds the HTTP server with REST and WebSocket routes.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(deps, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(deps Deps, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(deps.Hub, deps.Auth, cfg, logger)))

	apiHandlers := NewAPIHandlers(deps.Auth, logger)
	itemHandlers := NewItemHandlers(deps.Store, logger)
	messageHandlers := NewMessageHandlers(deps.Messages, logger)
	userHandlers := NewUserHandlers(deps.Store, deps.Labels, logger)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	protected := api.Group("")
	protected.Use(AuthMiddleware(deps.Auth, logger))
	{
		protected.GET("/items", itemHandlers.ListItems)
		protected.POST("/items", itemHandlers.CreateItem)

		protected.GET("/messages", messageHandlers.ListMessages)
		protected.POST("/messages", messageHandlers.SendMessage)
		protected.GET("/conversations", messageHandlers.ListConversations)
		protected.POST("/conversations/:counterpart_id/read", messageHandlers.MarkRead)

		protected.GET("/labels", userHandlers.Labels)
		protected.GET("/profiles/:id", userHandlers.Profile)
		protected.PATCH("/profile", userHandlers.UpdateProfile)
	}

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
