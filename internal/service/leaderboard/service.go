// Package leaderboard provides leaderboard and ranking services.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dakshkumar96/Reclaim/internal/cache"
	"github.com/dakshkumar96/Reclaim/internal/models"
	"github.com/dakshkumar96/Reclaim/internal/repository"
	"github.com/dakshkumar96/Reclaim/internal/service/completion"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

// DefaultSize is the leaderboard length when none is configured.
const DefaultSize = 10

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	TopByXP(ctx context.Context, limit int) ([]models.User, error)
	RankByXP(ctx context.Context, id uint) (int, error)
}

// BadgeRepository interface for badge operations.
type BadgeRepository interface {
	GetUserBadgeCount(ctx context.Context, userID uint) (int64, error)
	GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error)
}

// EnrollmentRepository interface for enrollment counts.
type EnrollmentRepository interface {
	CountByStatus(ctx context.Context, userID uint, status string) (int64, error)
}

// CheckInRepository interface for check-in totals.
type CheckInRepository interface {
	MaxLongestStreak(ctx context.Context, userID uint) (int, error)
	CountLogs(ctx context.Context, userID uint) (int64, error)
}

// Cache is the subset of the Redis cache the leaderboard uses.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Entry represents a single entry in a leaderboard.
type Entry struct {
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	XP         int64  `json:"xp"`
	Level      int    `json:"level"`
	BadgeCount int    `json:"badge_count"`
	Rank       int    `json:"rank"`
}

// Options configures the service.
type Options struct {
	Size     int
	CacheTTL time.Duration
	Levels   completion.LevelPolicy
}

// Service handles leaderboard generation and user statistics.
type Service struct {
	userRepo       UserRepository
	badgeRepo      BadgeRepository
	enrollmentRepo EnrollmentRepository
	checkInRepo    CheckInRepository
	cache          Cache
	size           int
	cacheTTL       time.Duration
	levels         completion.LevelPolicy
	log            *logger.Logger
}

// NewService creates a new leaderboard service with concrete repository types.
// A nil cache disables caching.
func NewService(repos *repository.Repositories, c *cache.Cache, opts Options, log *logger.Logger) *Service {
	var cached Cache
	if c != nil {
		cached = c
	}
	return NewServiceWithInterfaces(repos.Users, repos.Badges, repos.Enrollments, repos.CheckIns, cached, opts, log)
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	userRepo UserRepository,
	badgeRepo BadgeRepository,
	enrollmentRepo EnrollmentRepository,
	checkInRepo CheckInRepository,
	c Cache,
	opts Options,
	log *logger.Logger,
) *Service {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Levels.XPPerLevel <= 0 {
		opts.Levels = completion.NewLevelPolicy(0)
	}
	return &Service{
		userRepo:       userRepo,
		badgeRepo:      badgeRepo,
		enrollmentRepo: enrollmentRepo,
		checkInRepo:    checkInRepo,
		cache:          c,
		size:           opts.Size,
		cacheTTL:       opts.CacheTTL,
		levels:         opts.Levels,
		log:            log,
	}
}

// Size returns the default leaderboard length.
func (s *Service) Size() int {
	return s.size
}

// GetLeaderboard returns the top users by XP. limit <= 0 uses the configured size.
// Results are served from the cache when fresh.
func (s *Service) GetLeaderboard(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = s.size
	}

	key := cacheKey(limit)
	if s.cache != nil {
		var cached []Entry
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn().Err(err).Str("key", key).Msg("Leaderboard cache read failed")
		}
	}

	entries, err := s.build(ctx, limit)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, entries)
	return entries, nil
}

// Warm rebuilds the cached default leaderboard.
func (s *Service) Warm(ctx context.Context) error {
	entries, err := s.build(ctx, s.size)
	if err != nil {
		return err
	}
	s.store(ctx, cacheKey(s.size), entries)

	s.log.Debug().Int("entries", len(entries)).Msg("Leaderboard cache warmed")
	return nil
}

func (s *Service) build(ctx context.Context, limit int) ([]Entry, error) {
	users, err := s.userRepo.TopByXP(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}

	entries := make([]Entry, 0, len(users))
	for i, user := range users {
		count, err := s.badgeRepo.GetUserBadgeCount(ctx, user.ID)
		if err != nil {
			s.log.Warn().Err(err).Uint("user_id", user.ID).Msg("Failed to get badge count")
			count = 0
		}

		entries = append(entries, Entry{
			UserID:     user.ID,
			Username:   user.Username,
			XP:         user.XP,
			Level:      user.Level,
			BadgeCount: int(count),
			Rank:       i + 1,
		})
	}
	return entries, nil
}

func (s *Service) store(ctx context.Context, key string, entries []Entry) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, entries, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Leaderboard cache write failed")
	}
}

func cacheKey(limit int) string {
	return fmt.Sprintf("%stop:%d", cache.PrefixLeaderboard, limit)
}
