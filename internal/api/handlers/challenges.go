package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dakshkumar96/Reclaim/internal/api/middleware"
	"github.com/dakshkumar96/Reclaim/internal/apperrors"
	"github.com/dakshkumar96/Reclaim/internal/models"
)

// ListChallenges returns the enrollable catalog.
// GET /api/challenges?difficulty=easy&category=health.
func (h *Handler) ListChallenges(c *gin.Context) {
	var filter challengeFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.badRequest(c, bindingMessage(err))
		return
	}

	all, err := h.challenges.ListActive(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to retrieve challenges")
		return
	}

	challenges := make([]models.Challenge, 0, len(all))
	for _, ch := range all {
		if filter.Difficulty != "" && ch.Difficulty != filter.Difficulty {
			continue
		}
		if filter.Category != "" && ch.Category != filter.Category {
			continue
		}
		challenges = append(challenges, ch)
	}

	c.JSON(http.StatusOK, gin.H{
		"challenges":       challenges,
		"total_challenges": len(challenges),
		"generated_at":     time.Now().UTC(),
	})
}

// GetChallenge returns one catalog entry.
// GET /api/challenges/:id.
func (h *Handler) GetChallenge(c *gin.Context) {
	challengeID, err := parseID(c, "challenge")
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	challenge, err := h.challenges.GetByID(c.Request.Context(), challengeID)
	if err == nil && !challenge.IsActive {
		err = apperrors.ErrNotFound
	}
	if err != nil {
		h.respondError(c, err, "Failed to retrieve challenge")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge":    challenge,
		"generated_at": time.Now().UTC(),
	})
}

// ActiveChallenges returns the caller's active enrollments.
// GET /api/challenges/active.
func (h *Handler) ActiveChallenges(c *gin.Context) {
	userID := middleware.UserID(c)

	active, err := h.progress.ActiveChallenges(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve active challenges")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenges":       active,
		"total_challenges": len(active),
		"generated_at":     time.Now().UTC(),
	})
}

// StartChallenge enrolls the caller.
// POST /api/challenges/start.
func (h *Handler) StartChallenge(c *gin.Context) {
	req, ok := h.bindChallenge(c)
	if !ok {
		return
	}
	userID := middleware.UserID(c)

	enrollment, err := h.progress.StartChallenge(c.Request.Context(), userID, req.ChallengeID)
	if err != nil {
		h.respondError(c, err, "Failed to start challenge")
		return
	}

	h.log.Info().
		Uint("user_id", userID).
		Uint("challenge_id", req.ChallengeID).
		Msg("Challenge started")

	c.JSON(http.StatusCreated, gin.H{"enrollment": enrollment})
}

// CheckIn records today's check-in for the caller.
// POST /api/challenges/checkin.
func (h *Handler) CheckIn(c *gin.Context) {
	req, ok := h.bindChallenge(c)
	if !ok {
		return
	}

	result, err := h.progress.CheckIn(c.Request.Context(), middleware.UserID(c), req.ChallengeID)
	if err != nil {
		h.respondError(c, err, "Failed to check in")
		return
	}

	c.JSON(http.StatusOK, result)
}

// CompleteChallenge finishes the caller's enrollment and grants its reward.
// POST /api/challenges/complete.
func (h *Handler) CompleteChallenge(c *gin.Context) {
	req, ok := h.bindChallenge(c)
	if !ok {
		return
	}
	userID := middleware.UserID(c)

	result, err := h.progress.Complete(c.Request.Context(), userID, req.ChallengeID)
	if err != nil {
		h.respondError(c, err, "Failed to complete challenge")
		return
	}

	h.log.Info().
		Uint("user_id", userID).
		Uint("challenge_id", req.ChallengeID).
		Int64("xp_delta", result.Delta).
		Int("new_level", result.NewLevel).
		Int("new_badges", len(result.NewBadges)).
		Msg("Challenge completed")

	c.JSON(http.StatusOK, result)
}

func (h *Handler) bindChallenge(c *gin.Context) (challengeRequest, bool) {
	var req challengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, bindingMessage(err))
		return req, false
	}
	return req, true
}
