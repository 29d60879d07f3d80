// internal/api/router.go
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Corphon/Chronicle/internal/services"
	"github.com/Corphon/Chronicle/internal/utils"
)

// RouterConfig 路由依赖
type RouterConfig struct {
	Game           *services.GameService
	Settings       *services.SettingsService
	Hub            *Hub
	Metrics        *utils.Metrics
	MetricsEnabled bool
	DebugMode      bool
	Version        string
}

// SetupRouter 配置HTTP路由
func SetupRouter(cfg RouterConfig) *gin.Engine {
	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := NewHandler(cfg.Game, cfg.Settings, cfg.Hub, cfg.Version)

	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(cfg.Metrics), corsMiddleware())

	// WebSocket 支持
	r.GET("/ws/game", cfg.Hub.ServeWS)

	if cfg.MetricsEnabled && cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/i18n", handler.GetCatalog)

		settingsGroup := api.Group("/settings")
		{
			settingsGroup.GET("", handler.GetSettings)
			settingsGroup.PUT("", handler.UpdateSettings)
		}

		gameGroup := api.Group("/game")
		{
			gameGroup.GET("/state", handler.GetState)
			gameGroup.POST("/start", handler.StartGame)
			gameGroup.POST("/action", handler.TakeAction)
			gameGroup.POST("/load", handler.LoadGame)
			gameGroup.GET("/export", handler.ExportGame)
			gameGroup.DELETE("", handler.ResetGame)
		}

		api.GET("/map", handler.GetMap)
		api.GET("/map.svg", handler.GetMapSVG)
	}

	return r
}
