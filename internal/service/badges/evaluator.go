package badges

import (
	"context"
	"fmt"

	"github.com/dakshkumar96/Reclaim/internal/models"
)

// CategoryCompletionThreshold is how many completed challenges of a habit
// category unlock that category's badge.
const CategoryCompletionThreshold = 3

// habitCategories unlock on repeated completions in the same category.
var habitCategories = map[string]bool{
	models.BadgeCategoryHealth:       true,
	models.BadgeCategoryProductivity: true,
	models.BadgeCategoryMindfulness:  true,
	models.BadgeCategoryEducation:    true,
}

// Snapshot is the user state badge rules are evaluated against.
type Snapshot struct {
	UserID              uint
	XP                  int64
	MaxLongestStreak    int
	CompletedCount      int64
	CompletedByCategory map[string]int64
}

// Qualifies reports whether the snapshot satisfies any rule of the badge:
// an XP threshold, a longest-streak threshold, a first completion for
// requirement-free challenge badges, or three completions in a habit category.
func Qualifies(badge *models.Badge, s Snapshot) bool {
	if badge.XPRequirement > 0 && s.XP >= badge.XPRequirement {
		return true
	}
	if badge.StreakRequirement > 0 && s.MaxLongestStreak >= badge.StreakRequirement {
		return true
	}
	if badge.XPRequirement == 0 && badge.StreakRequirement == 0 &&
		badge.Category == models.BadgeCategoryChallenge && s.CompletedCount >= 1 {
		return true
	}
	if habitCategories[badge.Category] && s.CompletedByCategory[badge.Category] >= CategoryCompletionThreshold {
		return true
	}
	return false
}

// snapshot reads the user's current totals.
func (s *Service) snapshot(ctx context.Context, userID uint) (Snapshot, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load user: %w", err)
	}

	longest, err := s.streakRepo.MaxLongestStreak(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}

	completed, err := s.enrollmentRepo.CountByStatus(ctx, userID, models.EnrollmentCompleted)
	if err != nil {
		return Snapshot{}, err
	}

	byCategory, err := s.enrollmentRepo.CompletedByCategory(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		UserID:              userID,
		XP:                  user.XP,
		MaxLongestStreak:    longest,
		CompletedCount:      completed,
		CompletedByCategory: byCategory,
	}, nil
}
