package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dakshkumar96/Reclaim/internal/models"
)

// EnrollmentRepository handles user participation in challenges.
type EnrollmentRepository struct {
	db *DB
}

// NewEnrollmentRepository creates a new enrollment repository.
func NewEnrollmentRepository(db *DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// CreateIfAbsent inserts the enrollment unless the (user, challenge) pair already
// has one. It reports whether a row was inserted.
func (r *EnrollmentRepository) CreateIfAbsent(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "challenge_id"}},
			DoNothing: true,
		}).
		Create(enrollment)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create enrollment: %w", classifyError(result.Error))
	}
	return result.RowsAffected == 1, nil
}

// Get returns the enrollment for the pair, or nil when there is none.
func (r *EnrollmentRepository) Get(ctx context.Context, userID, challengeID uint) (*models.Enrollment, error) {
	return r.get(r.db.WithContext(ctx), userID, challengeID)
}

// GetForUpdate is Get with a row lock held until the transaction ends.
func (r *EnrollmentRepository) GetForUpdate(ctx context.Context, userID, challengeID uint) (*models.Enrollment, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID, challengeID)
}

func (r *EnrollmentRepository) get(q *gorm.DB, userID, challengeID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := q.Where("user_id = ? AND challenge_id = ?", userID, challengeID).First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment user=%d challenge=%d: %w", userID, challengeID, classifyError(err))
	}
	return &enrollment, nil
}

// IncrementProgress adds one day to the enrollment's progress.
func (r *EnrollmentRepository) IncrementProgress(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ?", id).
		UpdateColumn("progress_days", gorm.Expr("progress_days + 1")).Error
	if err != nil {
		return fmt.Errorf("failed to increment progress of enrollment %d: %w", id, classifyError(err))
	}
	return nil
}

// MarkCompleted moves an active enrollment to completed. It reports false when
// the row was no longer active.
func (r *EnrollmentRepository) MarkCompleted(ctx context.Context, id uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ? AND status = ?", id, models.EnrollmentActive).
		Updates(map[string]interface{}{
			"status":       models.EnrollmentCompleted,
			"completed_at": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to complete enrollment %d: %w", id, classifyError(result.Error))
	}
	return result.RowsAffected == 1, nil
}

// ListByStatus returns the user's enrollments in the given status with their challenge.
func (r *EnrollmentRepository) ListByStatus(ctx context.Context, userID uint, status string) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, status).
		Preload("Challenge").
		Order("started_at ASC").
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", classifyError(err))
	}
	return enrollments, nil
}

// CountByStatus returns how many of the user's enrollments are in status.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context, userID uint, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND status = ?", userID, status).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", classifyError(err))
	}
	return count, nil
}

// CompletedByCategory counts the user's completed enrollments per challenge category.
func (r *EnrollmentRepository) CompletedByCategory(ctx context.Context, userID uint) (map[string]int64, error) {
	type Result struct {
		Category string
		Total    int64
	}

	var results []Result
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Select("challenges.category AS category, COUNT(*) AS total").
		Joins("JOIN challenges ON challenges.id = enrollments.challenge_id").
		Where("enrollments.user_id = ? AND enrollments.status = ?", userID, models.EnrollmentCompleted).
		Group("challenges.category").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count completions by category: %w", classifyError(err))
	}

	counts := make(map[string]int64, len(results))
	for _, result := range results {
		counts[result.Category] = result.Total
	}
	return counts, nil
}
