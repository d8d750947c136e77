package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dakshkumar96/Reclaim/internal/api/middleware"
	"github.com/dakshkumar96/Reclaim/internal/config"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

const healthTimeout = 2 * time.Second

// HealthChecker is a dependency probed by the health endpoint.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterOptions wires the middleware chain around the handler.
type RouterOptions struct {
	AllowedOrigins []string
	Metrics        config.PrometheusConfig
	Auth           gin.HandlerFunc
	CoachLimit     gin.HandlerFunc
	Health         map[string]HealthChecker
}

// NewRouter builds the gin engine serving the API.
func NewRouter(h *Handler, opts RouterOptions, log *logger.Logger) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(log))

	if len(opts.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = opts.AllowedOrigins
		corsConfig.AddAllowHeaders("Authorization", middleware.RequestIDHeader)
		corsConfig.AddExposeHeaders(middleware.RequestIDHeader)
		router.Use(cors.New(corsConfig))
	}

	if opts.Metrics.Enabled {
		router.GET(opts.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api")
	api.GET("/healthz", healthHandler(opts.Health))

	authed := api.Group("")
	if opts.Auth != nil {
		authed.Use(opts.Auth)
	}

	challenges := authed.Group("/challenges")
	challenges.GET("", h.ListChallenges)
	challenges.GET("/active", h.ActiveChallenges)
	challenges.GET("/:id", h.GetChallenge)
	challenges.POST("/start", h.StartChallenge)
	challenges.POST("/checkin", h.CheckIn)
	challenges.POST("/complete", h.CompleteChallenge)

	badgeRoutes := authed.Group("/badges")
	badgeRoutes.GET("", h.GetBadgeCatalog)
	badgeRoutes.GET("/user", h.GetUserBadges)
	badgeRoutes.GET("/:id", h.GetBadgeByID)
	badgeRoutes.GET("/:id/holders", h.GetBadgeHolders)

	authed.GET("/leaderboard", h.GetLeaderboard)
	authed.GET("/profile", h.GetProfile)

	ai := authed.Group("/ai")
	ai.GET("/history", h.ChatHistory)
	ai.DELETE("/history", h.ClearChatHistory)
	if opts.CoachLimit != nil {
		ai.POST("/chat", opts.CoachLimit, h.Chat)
	} else {
		ai.POST("/chat", h.Chat)
	}

	return router, nil
}

// healthHandler reports ok only when every dependency answers.
func healthHandler(checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"status":    state,
			"checks":    results,
			"timestamp": time.Now().UTC(),
		})
	}
}
