package admin

import (
	"nutribot/internal/auth"
	"nutribot/internal/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler, cfg *config.Config) {
	adminGroup := router.Group("/admin")
	adminGroup.Use(auth.AdminAuthMiddleware(cfg.Admin.Password))
	{
		keysGroup := adminGroup.Group("/api-keys")
		{
			keysGroup.GET("", handler.ListKeysHandler)
			keysGroup.POST("/reset", handler.ResetKeysHandler)
			keysGroup.POST("/health-check", handler.HealthCheckHandler)
		}

		adminGroup.DELETE("/memory", handler.ClearMemoryHandler)
	}
}
