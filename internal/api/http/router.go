package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"ozzus/sitecheck/internal/api/http/middleware"
)

func NewRouter(healthController *HealthController, hub *Hub, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(log), middleware.Logger(log))

	router.GET("/health", healthController.Health)
	router.GET("/ready", healthController.Ready)
	router.GET("/status", healthController.Status)
	if hub != nil {
		router.GET("/ws", hub.ServeWS)
	}

	return router
}
