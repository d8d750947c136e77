package leaderboard

import (
	"context"
	"fmt"

	"github.com/dakshkumar96/Reclaim/internal/models"
)

// UserStats represents comprehensive statistics for a user.
type UserStats struct {
	UserID              uint           `json:"user_id"`
	Username            string         `json:"username"`
	XP                  int64          `json:"xp"`
	Level               int            `json:"level"`
	XPIntoLevel         int64          `json:"xp_into_level"`
	XPPerLevel          int64          `json:"xp_per_level"`
	ActiveChallenges    int64          `json:"active_challenges"`
	CompletedChallenges int64          `json:"completed_challenges"`
	TotalCheckIns       int64          `json:"total_checkins"`
	LongestStreak       int            `json:"longest_streak"`
	Badges              []models.Badge `json:"badges"`
	Rank                int            `json:"rank"`
}

// GetUserStats returns comprehensive statistics for a user.
func (s *Service) GetUserStats(ctx context.Context, userID uint) (*UserStats, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	into, span := s.levels.Progress(user.XP)
	stats := &UserStats{
		UserID:      userID,
		Username:    user.Username,
		XP:          user.XP,
		Level:       user.Level,
		XPIntoLevel: into,
		XPPerLevel:  span,
		Badges:      []models.Badge{},
	}

	if stats.ActiveChallenges, err = s.enrollmentRepo.CountByStatus(ctx, userID, models.EnrollmentActive); err != nil {
		return nil, err
	}
	if stats.CompletedChallenges, err = s.enrollmentRepo.CountByStatus(ctx, userID, models.EnrollmentCompleted); err != nil {
		return nil, err
	}
	if stats.TotalCheckIns, err = s.checkInRepo.CountLogs(ctx, userID); err != nil {
		return nil, err
	}
	if stats.LongestStreak, err = s.checkInRepo.MaxLongestStreak(ctx, userID); err != nil {
		return nil, err
	}

	userBadges, err := s.badgeRepo.GetUserBadges(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to get user badges")
	} else {
		for _, ub := range userBadges {
			if ub.Badge.ID != 0 {
				stats.Badges = append(stats.Badges, ub.Badge)
			}
		}
	}

	rank, err := s.userRepo.RankByXP(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to get rank")
	} else {
		stats.Rank = rank
	}

	return stats, nil
}
