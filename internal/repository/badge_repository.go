package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/dakshkumar96/Reclaim/internal/models"
)

// BadgeRepository handles badge-related database operations.
type BadgeRepository struct {
	db *DB
}

// NewBadgeRepository creates a new badge repository.
func NewBadgeRepository(db *DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// UpsertByName inserts the badge or refreshes the rule fields of the badge with the same name.
func (r *BadgeRepository) UpsertByName(ctx context.Context, badge *models.Badge) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"description", "icon", "category", "xp_requirement",
				"streak_requirement", "is_active", "updated_at",
			}),
		}).
		Create(badge).Error
	if err != nil {
		return fmt.Errorf("failed to upsert badge %s: %w", badge.Name, classifyError(err))
	}
	return nil
}

// GetByID retrieves a badge by its ID.
func (r *BadgeRepository) GetByID(ctx context.Context, id uint) (*models.Badge, error) {
	var badge models.Badge
	if err := r.db.WithContext(ctx).First(&badge, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get badge %d: %w", id, classifyError(err))
	}
	return &badge, nil
}

// GetAll retrieves all badges from the database.
func (r *BadgeRepository) GetAll(ctx context.Context) ([]models.Badge, error) {
	var badges []models.Badge
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&badges).Error; err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", classifyError(err))
	}
	return badges, nil
}

// ListUnearnedActive returns active badges the user does not hold yet.
func (r *BadgeRepository) ListUnearnedActive(ctx context.Context, userID uint) ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("id NOT IN (?)", r.db.Model(&models.UserBadge{}).Select("badge_id").Where("user_id = ?", userID)).
		Order("id ASC").
		Find(&badges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unearned badges: %w", classifyError(err))
	}
	return badges, nil
}

// AwardBadge grants a badge to a user. It reports false when the user already
// held it; the award itself is idempotent.
func (r *BadgeRepository) AwardBadge(ctx context.Context, userID, badgeID uint, at time.Time) (bool, error) {
	userBadge := &models.UserBadge{
		UserID:   userID,
		BadgeID:  badgeID,
		EarnedAt: at,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
			DoNothing: true,
		}).
		Create(userBadge)
	if result.Error != nil {
		return false, fmt.Errorf("failed to award badge %d to user %d: %w", badgeID, userID, classifyError(result.Error))
	}
	return result.RowsAffected == 1, nil
}

// GetUserBadges retrieves all badges earned by a user with badge details preloaded.
func (r *BadgeRepository) GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	var userBadges []models.UserBadge
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Badge").
		Order("earned_at DESC").
		Find(&userBadges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get badges of user %d: %w", userID, classifyError(err))
	}
	return userBadges, nil
}

// GetUsersWithBadge retrieves all users who have earned a specific badge.
func (r *BadgeRepository) GetUsersWithBadge(ctx context.Context, badgeID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN user_badges ON user_badges.user_id = users.id").
		Where("user_badges.badge_id = ?", badgeID).
		Order("user_badges.earned_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get holders of badge %d: %w", badgeID, classifyError(err))
	}
	return users, nil
}

// GetBadgeHoldersCount returns the number of users who have earned a specific badge.
func (r *BadgeRepository) GetBadgeHoldersCount(ctx context.Context, badgeID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserBadge{}).
		Where("badge_id = ?", badgeID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count holders of badge %d: %w", badgeID, classifyError(err))
	}
	return count, nil
}

// GetUserBadgeCount returns the total number of badges a user has earned.
func (r *BadgeRepository) GetUserBadgeCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserBadge{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count badges of user %d: %w", userID, classifyError(err))
	}
	return count, nil
}
