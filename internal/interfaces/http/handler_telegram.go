package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetTelegramStatus returns whether the tenant's bot is polling.
func (h *Handler) GetTelegramStatus(c *gin.Context) {
	tenantID := c.Param("tenant")
	if !ValidSlug(tenantID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant id"})
		return
	}
	if h.deps.Telegram == nil {
		c.JSON(http.StatusOK, gin.H{"tenant_id": tenantID, "connected": false, "bot_name": ""})
		return
	}
	connected, botName := h.deps.Telegram.Status(tenantID)
	c.JSON(http.StatusOK, gin.H{
		"tenant_id": tenantID,
		"connected": connected,
		"bot_name":  botName,
	})
}

// DisconnectTelegram stops the tenant's bot until the next restart.
func (h *Handler) DisconnectTelegram(c *gin.Context) {
	tenantID := c.Param("tenant")
	if !ValidSlug(tenantID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant id"})
		return
	}
	if h.deps.Telegram == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Telegram not configured"})
		return
	}
	h.deps.Telegram.DisconnectBot(tenantID)
	c.JSON(http.StatusOK, gin.H{"tenant_id": tenantID, "connected": false})
}
