package controllers

import (
	"errors"
	"net/http"

	"go_market_monitor/models"
	"go_market_monitor/scheduler"
	"go_market_monitor/services/monitor"

	"github.com/gin-gonic/gin"
)

// MonitorController handles monitor command requests
type MonitorController struct {
	monitor *monitor.Service
	sched   *scheduler.Scheduler
}

// NewMonitorController creates a new monitor controller
func NewMonitorController(m *monitor.Service, s *scheduler.Scheduler) *MonitorController {
	return &MonitorController{
		monitor: m,
		sched:   s,
	}
}

// GetStatus returns the current monitor status
// GET /api/v1/monitor/status
func (mc *MonitorController) GetStatus(c *gin.Context) {
	status := mc.monitor.Status()

	c.JSON(http.StatusOK, gin.H{
		"paused":                 status.Paused,
		"tiers":                  status.Tiers,
		"check_interval_seconds": status.CheckIntervalSeconds,
		"digest_time":            mc.sched.DigestTime(),
		"next_digest_run":        mc.sched.NextDigestRun(),
	})
}

// PauseAlerts pauses tier alerts until resumed or the next daily digest
// POST /api/v1/monitor/pause
func (mc *MonitorController) PauseAlerts(c *gin.Context) {
	mc.monitor.Pause()
	c.JSON(http.StatusOK, gin.H{
		"message": "Alerts have been paused until resumed or the next daily digest",
	})
}

// ResumeAlerts resumes tier alerts
// POST /api/v1/monitor/resume
func (mc *MonitorController) ResumeAlerts(c *gin.Context) {
	mc.monitor.Resume()
	c.JSON(http.StatusOK, gin.H{
		"message": "Alerts have been resumed",
	})
}

// ManualCheck fetches a fresh quote snapshot on demand
// GET /api/v1/monitor/check
func (mc *MonitorController) ManualCheck(c *gin.Context) {
	quotes, err := mc.monitor.ManualCheck()
	if err != nil {
		if errors.Is(err, models.ErrInsufficientData) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Insufficient data available. The market might be closed or there might be a data issue.",
			})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch current prices"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quotes})
}

// UpdateDigestTime reschedules the daily digest
// PUT /api/v1/monitor/digest-time
func (mc *MonitorController) UpdateDigestTime(c *gin.Context) {
	var req struct {
		Time string `json:"time" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must include \"time\" as HH:MM"})
		return
	}

	if err := mc.sched.ReconfigureDigestTime(req.Time); err != nil {
		if errors.Is(err, scheduler.ErrInvalidDigestTime) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reschedule digest"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Digest time updated",
		"digest_time":     mc.sched.DigestTime(),
		"next_digest_run": mc.sched.NextDigestRun(),
	})
}
