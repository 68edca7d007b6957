package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *handler) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": h.now().UTC().Format(time.RFC3339Nano),
			"version":   h.cfg.App.Version,
			"app":       h.cfg.App.Name,
		})
	}
}

// handleOverview returns the placeholder day overview shown before the
// frontend widgets load their own data.
func (h *handler) handleOverview() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"quote": "Focus on progress, not perfection.",
			"next_event": gin.H{
				"title": "Cours Réseau",
				"time":  "08:30",
				"room":  "B204",
			},
			"weather": gin.H{
				"temp":      16,
				"condition": "Couvert",
			},
			"unread": gin.H{
				"proton":  1,
				"outlook": 2,
			},
		})
	}
}
