// Package badges provides badge evaluation and management services.
package badges

import (
	"context"
	"fmt"
	"time"

	"github.com/dakshkumar96/Reclaim/internal/clock"
	prommetrics "github.com/dakshkumar96/Reclaim/internal/metrics"
	"github.com/dakshkumar96/Reclaim/internal/models"
	"github.com/dakshkumar96/Reclaim/internal/repository"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

// BadgeRepository interface for badge operations.
type BadgeRepository interface {
	GetAll(ctx context.Context) ([]models.Badge, error)
	GetByID(ctx context.Context, id uint) (*models.Badge, error)
	ListUnearnedActive(ctx context.Context, userID uint) ([]models.Badge, error)
	AwardBadge(ctx context.Context, userID, badgeID uint, at time.Time) (bool, error)
	GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error)
	GetUsersWithBadge(ctx context.Context, badgeID uint) ([]models.User, error)
	GetBadgeHoldersCount(ctx context.Context, badgeID uint) (int64, error)
}

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	ListIDs(ctx context.Context) ([]uint, error)
}

// EnrollmentRepository interface for completion counts.
type EnrollmentRepository interface {
	CountByStatus(ctx context.Context, userID uint, status string) (int64, error)
	CompletedByCategory(ctx context.Context, userID uint) (map[string]int64, error)
}

// StreakRepository interface for streak lookups.
type StreakRepository interface {
	MaxLongestStreak(ctx context.Context, userID uint) (int, error)
}

// Announcer publishes newly earned badges.
type Announcer interface {
	BadgeEarned(username string, badge *models.Badge)
}

// Service handles badge evaluation and awarding.
type Service struct {
	badgeRepo      BadgeRepository
	userRepo       UserRepository
	enrollmentRepo EnrollmentRepository
	streakRepo     StreakRepository
	announcer      Announcer
	clock          clock.Clock
	log            *logger.Logger
}

// NewService creates a new badge service.
func NewService(repos *repository.Repositories, clk clock.Clock, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(repos.Badges, repos.Users, repos.Enrollments, repos.CheckIns, clk, log)
}

// NewServiceWithInterfaces creates a new badge service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	badgeRepo BadgeRepository,
	userRepo UserRepository,
	enrollmentRepo EnrollmentRepository,
	streakRepo StreakRepository,
	clk clock.Clock,
	log *logger.Logger,
) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{
		badgeRepo:      badgeRepo,
		userRepo:       userRepo,
		enrollmentRepo: enrollmentRepo,
		streakRepo:     streakRepo,
		clock:          clk,
		log:            log,
	}
}

// SetAnnouncer publishes every future award through a.
func (s *Service) SetAnnouncer(a Announcer) {
	s.announcer = a
}

// EvaluateAllBadges evaluates all badges for all users.
// This is typically run as a scheduled job.
// Returns the number of badges awarded.
func (s *Service) EvaluateAllBadges(ctx context.Context) (int, error) {
	s.log.Info().Msg("Starting badge evaluation for all users")
	start := time.Now()

	userIDs, err := s.userRepo.ListIDs(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get users")
		return 0, fmt.Errorf("failed to get users: %w", err)
	}

	awardsCount := 0
	failures := 0
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return awardsCount, err
		}

		awarded, err := s.EvaluateUserBadges(ctx, userID)
		if err != nil {
			failures++
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Msg("Failed to evaluate badges for user")
			continue
		}
		awardsCount += len(awarded)
	}

	s.RefreshHolderCounts(ctx)

	duration := time.Since(start)
	s.log.Info().
		Int("users_evaluated", len(userIDs)).
		Int("users_failed", failures).
		Int("badges_awarded", awardsCount).
		Dur("duration", duration).
		Msg("Badge evaluation complete")

	return awardsCount, nil
}

// EvaluateUserBadges awards every active badge the user newly qualifies for and
// returns those badges. A badge awarded concurrently by another caller counts as
// success but is not returned. Running it twice awards nothing the second time.
func (s *Service) EvaluateUserBadges(ctx context.Context, userID uint) ([]models.Badge, error) {
	s.log.Debug().Uint("user_id", userID).Msg("Evaluating badges for user")

	candidates, err := s.badgeRepo.ListUnearnedActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get badges: %w", err)
	}
	if len(candidates) == 0 {
		return []models.Badge{}, nil
	}

	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	newlyEarned := []models.Badge{}
	for i := range candidates {
		badge := candidates[i]
		if !Qualifies(&badge, snap) {
			continue
		}

		awarded, err := s.AwardBadge(ctx, userID, &badge)
		if err != nil {
			return newlyEarned, err
		}
		if awarded {
			newlyEarned = append(newlyEarned, badge)
		}
	}

	return newlyEarned, nil
}

// AwardBadge awards a badge to a user. It reports false when the user already held it.
func (s *Service) AwardBadge(ctx context.Context, userID uint, badge *models.Badge) (bool, error) {
	awarded, err := s.badgeRepo.AwardBadge(ctx, userID, badge.ID, s.clock.Now().UTC())
	if err != nil {
		return false, err
	}
	if !awarded {
		return false, nil
	}

	prommetrics.RecordBadgeAwarded(badge.Name, badge.Category)
	s.log.Info().
		Uint("user_id", userID).
		Str("badge", badge.Name).
		Msg("Badge awarded")

	if s.announcer != nil {
		s.announcer.BadgeEarned(s.username(ctx, userID), badge)
	}

	return true, nil
}

func (s *Service) username(ctx context.Context, userID uint) string {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Sprintf("user-%d", userID)
	}
	return user.Username
}

// RefreshHolderCounts updates the holder gauge of every badge.
func (s *Service) RefreshHolderCounts(ctx context.Context) {
	badges, err := s.badgeRepo.GetAll(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to refresh badge holder counts")
		return
	}
	for _, badge := range badges {
		count, err := s.badgeRepo.GetBadgeHoldersCount(ctx, badge.ID)
		if err != nil {
			continue
		}
		prommetrics.SetActiveBadgeHolders(badge.Name, int(count))
	}
}

// GetUserBadges retrieves all badges earned by a user.
func (s *Service) GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	return s.badgeRepo.GetUserBadges(ctx, userID)
}

// GetBadgeCatalog retrieves all available badges.
func (s *Service) GetBadgeCatalog(ctx context.Context) ([]models.Badge, error) {
	return s.badgeRepo.GetAll(ctx)
}

// GetBadgeByID retrieves a badge by its ID.
func (s *Service) GetBadgeByID(ctx context.Context, badgeID uint) (*models.Badge, error) {
	return s.badgeRepo.GetByID(ctx, badgeID)
}

// GetBadgeHolders retrieves users who have earned a specific badge.
func (s *Service) GetBadgeHolders(ctx context.Context, badgeID uint) ([]models.User, error) {
	if _, err := s.badgeRepo.GetByID(ctx, badgeID); err != nil {
		return nil, err
	}
	return s.badgeRepo.GetUsersWithBadge(ctx, badgeID)
}
