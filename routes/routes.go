package routes

import (
	"go_market_monitor/controllers"
	"go_market_monitor/scheduler"
	"go_market_monitor/services/monitor"
	"go_market_monitor/services/stream"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, m *monitor.Service, sched *scheduler.Scheduler, quoteStream *stream.QuoteStream) {
	monitorController := controllers.NewMonitorController(m, sched)

	// API v1 group
	api := router.Group("/api/v1")
	{
		mon := api.Group("/monitor")
		{
			mon.GET("/status", monitorController.GetStatus)
			mon.GET("/check", monitorController.ManualCheck)
			mon.POST("/pause", monitorController.PauseAlerts)
			mon.POST("/resume", monitorController.ResumeAlerts)
			mon.PUT("/digest-time", monitorController.UpdateDigestTime)
		}
	}

	// WebSocket quote stream
	router.GET("/ws/quotes", func(c *gin.Context) {
		quoteStream.HandleWebSocket(c.Writer, c.Request)
	})
}
