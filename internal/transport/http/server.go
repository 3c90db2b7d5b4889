package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yousefmohseen/chatroom/internal/config"
	"github.com/yousefmohseen/chatroom/internal/core"
)

// NewServer builds an HTTP server with the health, state and WebSocket routes.
func NewServer(hub core.Hub, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	api := NewAPIHandlers(hub, logger)
	router.GET("/health", api.Health)
	router.GET("/api/state", api.State)
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, WSOptions{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxMessageBytes:    cfg.MaxMessageBytes,
	}, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
