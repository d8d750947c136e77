package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dakshkumar96/Reclaim/internal/api/middleware"
)

const maxLeaderboardLimit = 100

// GetLeaderboard returns the top users by XP.
// GET /api/leaderboard?limit=10.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit, err := parseLimit(c, h.leaderboard.Size(), maxLeaderboardLimit)
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	entries, err := h.leaderboard.GetLeaderboard(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":   entries,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	})
}

// GetProfile returns the caller's statistics.
// GET /api/profile.
func (h *Handler) GetProfile(c *gin.Context) {
	userID := middleware.UserID(c)

	stats, err := h.leaderboard.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve user statistics")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":        stats,
		"generated_at": time.Now().UTC(),
	})
}
