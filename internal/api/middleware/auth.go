// Package middleware provides the gin middleware chain of the HTTP API.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/dakshkumar96/Reclaim/internal/apperrors"
	"github.com/dakshkumar96/Reclaim/internal/config"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

// Context keys set by the middleware chain.
const (
	ContextUserID    = "user_id"
	ContextUsername  = "username"
	ContextRequestID = "request_id"
)

// UserEnsurer creates the user row on first sight.
type UserEnsurer interface {
	Ensure(ctx context.Context, id uint, username string) error
}

// Claims are the bearer token claims. Subject is the decimal user ID.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Auth verifies the HS256 bearer token and exposes the caller's identity.
func Auth(cfg *config.AuthConfig, users UserEnsurer, log *logger.Logger) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		claims := &Claims{}
		_, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil {
			log.Debug().Err(err).Msg("Rejected bearer token")
			abort(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		userID, err := strconv.ParseUint(claims.Subject, 10, 32)
		if err != nil || userID == 0 {
			abort(c, http.StatusUnauthorized, "unauthorized", "invalid token subject")
			return
		}

		username := claims.Username
		if username == "" {
			username = fmt.Sprintf("user-%d", userID)
		}

		if err := users.Ensure(c.Request.Context(), uint(userID), username); err != nil {
			log.Error().Err(err).Uint64("user_id", userID).Msg("Failed to ensure user")
			kind := apperrors.Classify(err)
			abort(c, kind.Status, kind.Code, "failed to load user")
			return
		}

		c.Set(ContextUserID, uint(userID))
		c.Set(ContextUsername, username)
		c.Next()
	}
}

// UserID returns the authenticated caller. It is zero outside Auth.
func UserID(c *gin.Context) uint {
	return c.GetUint(ContextUserID)
}

// abort writes the API error shape and stops the chain.
func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":     message,
		"code":      code,
		"timestamp": time.Now().UTC(),
	})
}
