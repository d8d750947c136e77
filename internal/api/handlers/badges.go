package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dakshkumar96/Reclaim/internal/api/middleware"
)

// GetUserBadges returns badges earned by the caller.
// GET /api/badges/user.
func (h *Handler) GetUserBadges(c *gin.Context) {
	userID := middleware.UserID(c)

	userBadges, err := h.badges.GetUserBadges(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve user badges")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"badges":       userBadges,
		"total_badges": len(userBadges),
		"generated_at": time.Now().UTC(),
	})
}

// GetBadgeCatalog returns all badges.
// GET /api/badges.
func (h *Handler) GetBadgeCatalog(c *gin.Context) {
	catalogBadges, err := h.badges.GetBadgeCatalog(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to retrieve badge catalog")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       catalogBadges,
		"total_badges": len(catalogBadges),
		"generated_at": time.Now().UTC(),
	})
}

// GetBadgeByID returns details for a specific badge.
// GET /api/badges/:id.
func (h *Handler) GetBadgeByID(c *gin.Context) {
	badgeID, err := parseID(c, "badge")
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	badge, err := h.badges.GetBadgeByID(c.Request.Context(), badgeID)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve badge")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badge":        badge,
		"generated_at": time.Now().UTC(),
	})
}

// GetBadgeHolders returns users who have earned a specific badge.
// GET /api/badges/:id/holders?limit=50.
func (h *Handler) GetBadgeHolders(c *gin.Context) {
	badgeID, err := parseID(c, "badge")
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	limit, err := parseLimit(c, 50, 1000)
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	holders, err := h.badges.GetBadgeHolders(c.Request.Context(), badgeID)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve badge holders")
		return
	}

	totalHolders := len(holders)
	if len(holders) > limit {
		holders = holders[:limit]
	}

	h.log.Debug().
		Uint("badge_id", badgeID).
		Int("holder_count", len(holders)).
		Int("limit", limit).
		Msg("Retrieved badge holders")

	c.JSON(http.StatusOK, gin.H{
		"badge_id":      badgeID,
		"holders":       holders,
		"total_holders": totalHolders,
		"limited_to":    len(holders),
		"generated_at":  time.Now().UTC(),
	})
}
