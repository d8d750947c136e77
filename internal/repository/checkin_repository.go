package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dakshkumar96/Reclaim/internal/models"
)

// CheckInRepository stores daily logs and streak counters.
type CheckInRepository struct {
	db *DB
}

// NewCheckInRepository creates a new check-in repository.
func NewCheckInRepository(db *DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

// InsertDailyLog records a check-in. It reports false when the user already
// checked in for that challenge on that day; the unique index decides, so two
// concurrent callers cannot both get true.
func (r *CheckInRepository) InsertDailyLog(ctx context.Context, log *models.DailyLog) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "challenge_id"}, {Name: "day"}},
			DoNothing: true,
		}).
		Create(log)
	if result.Error != nil {
		return false, fmt.Errorf("failed to insert daily log: %w", classifyError(result.Error))
	}
	return result.RowsAffected == 1, nil
}

// ListDays returns the check-in days for the pair in ascending order.
func (r *CheckInRepository) ListDays(ctx context.Context, userID, challengeID uint) ([]string, error) {
	var days []string
	err := r.db.WithContext(ctx).
		Model(&models.DailyLog{}).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Order("day ASC").
		Pluck("day", &days).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list check-in days: %w", classifyError(err))
	}
	return days, nil
}

// GetStreak returns the streak for the pair, or nil when none was recorded yet.
func (r *CheckInRepository) GetStreak(ctx context.Context, userID, challengeID uint) (*models.Streak, error) {
	var streak models.Streak
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		First(&streak).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get streak: %w", classifyError(err))
	}
	return &streak, nil
}

// SaveStreak inserts or overwrites the streak for the pair.
func (r *CheckInRepository) SaveStreak(ctx context.Context, streak *models.Streak) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "challenge_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"current_streak", "longest_streak", "last_active_day", "updated_at"}),
		}).
		Create(streak).Error
	if err != nil {
		return fmt.Errorf("failed to save streak: %w", classifyError(err))
	}
	return nil
}

// ListStreaks returns all of the user's streaks.
func (r *CheckInRepository) ListStreaks(ctx context.Context, userID uint) ([]models.Streak, error) {
	var streaks []models.Streak
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&streaks).Error; err != nil {
		return nil, fmt.Errorf("failed to list streaks: %w", classifyError(err))
	}
	return streaks, nil
}

// MaxLongestStreak returns the best streak the user ever reached on any challenge.
func (r *CheckInRepository) MaxLongestStreak(ctx context.Context, userID uint) (int, error) {
	var longest int
	err := r.db.WithContext(ctx).
		Model(&models.Streak{}).
		Select("COALESCE(MAX(longest_streak), 0)").
		Where("user_id = ?", userID).
		Scan(&longest).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get longest streak: %w", classifyError(err))
	}
	return longest, nil
}

// CountLogs returns the user's total number of check-ins.
func (r *CheckInRepository) CountLogs(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DailyLog{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count check-ins: %w", classifyError(err))
	}
	return count, nil
}
