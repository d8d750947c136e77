package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dakshkumar96/Reclaim/internal/api/middleware"
	"github.com/dakshkumar96/Reclaim/internal/apperrors"
)

// Chat sends a message to the habit coach.
// POST /api/ai/chat.
func (h *Handler) Chat(c *gin.Context) {
	if h.coach == nil {
		h.respondError(c, apperrors.ErrAdviceUnavailable, "Coach is disabled")
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, bindingMessage(err))
		return
	}

	reply, err := h.coach.Chat(c.Request.Context(), middleware.UserID(c), req.Message)
	if err != nil {
		h.respondError(c, err, "Failed to get advice")
		return
	}

	c.JSON(http.StatusOK, reply)
}

// ChatHistory returns the caller's recent conversation.
// GET /api/ai/history.
func (h *Handler) ChatHistory(c *gin.Context) {
	if h.coach == nil {
		h.respondError(c, apperrors.ErrAdviceUnavailable, "Coach is disabled")
		return
	}

	history := h.coach.History(c.Request.Context(), middleware.UserID(c))
	c.JSON(http.StatusOK, gin.H{
		"messages":     history,
		"generated_at": time.Now().UTC(),
	})
}

// ClearChatHistory forgets the caller's conversation.
// DELETE /api/ai/history.
func (h *Handler) ClearChatHistory(c *gin.Context) {
	if h.coach == nil {
		h.respondError(c, apperrors.ErrAdviceUnavailable, "Coach is disabled")
		return
	}

	if err := h.coach.ClearHistory(c.Request.Context(), middleware.UserID(c)); err != nil {
		h.respondError(c, err, "Failed to clear history")
		return
	}
	c.Status(http.StatusNoContent)
}
