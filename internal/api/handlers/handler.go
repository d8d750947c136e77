// Package handlers provides the REST API of the progress and rewards engine.
// Every route acts on behalf of the authenticated user.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dakshkumar96/Reclaim/internal/advisor"
	"github.com/dakshkumar96/Reclaim/internal/apperrors"
	"github.com/dakshkumar96/Reclaim/internal/models"
	"github.com/dakshkumar96/Reclaim/internal/repository"
	"github.com/dakshkumar96/Reclaim/internal/service/badges"
	"github.com/dakshkumar96/Reclaim/internal/service/coach"
	"github.com/dakshkumar96/Reclaim/internal/service/leaderboard"
	"github.com/dakshkumar96/Reclaim/internal/service/progress"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

// ChallengeCatalog interface for catalog lookups.
type ChallengeCatalog interface {
	ListActive(ctx context.Context) ([]models.Challenge, error)
	GetByID(ctx context.Context, id uint) (*models.Challenge, error)
}

// ProgressService interface for the progress ledger.
type ProgressService interface {
	StartChallenge(ctx context.Context, userID, challengeID uint) (*models.Enrollment, error)
	CheckIn(ctx context.Context, userID, challengeID uint) (*progress.CheckInResult, error)
	Complete(ctx context.Context, userID, challengeID uint) (*progress.CompleteResult, error)
	ActiveChallenges(ctx context.Context, userID uint) ([]progress.ActiveChallenge, error)
}

// BadgeService interface for badge operations.
type BadgeService interface {
	GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error)
	GetBadgeCatalog(ctx context.Context) ([]models.Badge, error)
	GetBadgeByID(ctx context.Context, badgeID uint) (*models.Badge, error)
	GetBadgeHolders(ctx context.Context, badgeID uint) ([]models.User, error)
}

// LeaderboardService interface for leaderboard operations.
type LeaderboardService interface {
	Size() int
	GetLeaderboard(ctx context.Context, limit int) ([]leaderboard.Entry, error)
	GetUserStats(ctx context.Context, userID uint) (*leaderboard.UserStats, error)
}

// CoachService interface for the advice chat.
type CoachService interface {
	Chat(ctx context.Context, userID uint, message string) (*coach.Reply, error)
	History(ctx context.Context, userID uint) []advisor.Message
	ClearHistory(ctx context.Context, userID uint) error
}

const codeValidation = "validation_error"

// Handler handles API requests.
type Handler struct {
	challenges  ChallengeCatalog
	progress    ProgressService
	badges      BadgeService
	leaderboard LeaderboardService
	coach       CoachService
	log         *logger.Logger
}

// NewHandler creates a new API handler. coachService may be nil when the coach is disabled.
func NewHandler(
	repos *repository.Repositories,
	progressService *progress.Service,
	badgeService *badges.Service,
	leaderboardService *leaderboard.Service,
	coachService *coach.Service,
	log *logger.Logger,
) *Handler {
	var c CoachService
	if coachService != nil {
		c = coachService
	}
	return NewHandlerWithInterfaces(repos.Challenges, progressService, badgeService, leaderboardService, c, log)
}

// NewHandlerWithInterfaces creates a new API handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(
	challenges ChallengeCatalog,
	progressService ProgressService,
	badgeService BadgeService,
	leaderboardService LeaderboardService,
	coachService CoachService,
	log *logger.Logger,
) *Handler {
	return &Handler{
		challenges:  challenges,
		progress:    progressService,
		badges:      badgeService,
		leaderboard: leaderboardService,
		coach:       coachService,
		log:         log,
	}
}

// Helper functions

// parseID extracts and validates a numeric URL parameter.
func parseID(c *gin.Context, what string) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s ID: %s", what, idStr)
	}
	return uint(id), nil
}

// parseLimit extracts and validates the limit query parameter.
func parseLimit(c *gin.Context, defaultLimit, maxLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %s", limitStr)
	}

	if limit < 1 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}

	if limit > maxLimit {
		return 0, fmt.Errorf("limit cannot exceed %d", maxLimit)
	}

	return limit, nil
}

// respondError maps a service error onto its status and stable code.
func (h *Handler) respondError(c *gin.Context, err error, message string) {
	kind := apperrors.Classify(err)
	switch {
	case kind.Status >= http.StatusInternalServerError:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
	case apperrors.IsConflict(err):
		h.log.Debug().Err(err).Str("path", c.FullPath()).Msg(message)
	default:
		h.log.Warn().Err(err).Str("path", c.FullPath()).Msg(message)
	}

	body := gin.H{
		"error":     publicMessage(kind, err, message),
		"code":      kind.Code,
		"timestamp": time.Now().UTC(),
	}
	if apperrors.IsRetryable(err) {
		body["retryable"] = true
	}
	c.JSON(kind.Status, body)
}

// publicMessage hides internal detail of server-side failures. Validation
// errors carry their reason; other kinds answer with the kind's own text.
func publicMessage(kind apperrors.Kind, err error, fallback string) string {
	switch {
	case kind.Status >= http.StatusInternalServerError:
		return fallback
	case errors.Is(err, apperrors.ErrValidation):
		return err.Error()
	default:
		return kind.Err.Error()
	}
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"code":      code,
		"timestamp": time.Now().UTC(),
	})
}

// badRequest rejects malformed input.
func (h *Handler) badRequest(c *gin.Context, message string) {
	h.errorResponse(c, http.StatusBadRequest, codeValidation, message)
}
