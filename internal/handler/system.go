package handlers

import (
	"net/http"

	"VidyaSync/pkg/response"

	"github.com/gin-gonic/gin"
)

// HealthCheck 健康检查接口
func (h *Handlers) HealthCheck(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database connection failed"})
		return
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database ping failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// handlePlaybackConfig 播放端按此配置对齐配音与视频
func (h *Handlers) handlePlaybackConfig(c *gin.Context) {
	response.OK(c, gin.H{
		"strategy": h.playback.Strategy.String(),
		"maxRate":  h.playback.MaxRate,
	})
}
