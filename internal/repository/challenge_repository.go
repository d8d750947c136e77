package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/dakshkumar96/Reclaim/internal/models"
)

// ChallengeRepository handles challenge catalog operations.
type ChallengeRepository struct {
	db *DB
}

// NewChallengeRepository creates a new challenge repository.
func NewChallengeRepository(db *DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// GetByID retrieves a challenge by its ID.
func (r *ChallengeRepository) GetByID(ctx context.Context, id uint) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := r.db.WithContext(ctx).First(&challenge, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get challenge %d: %w", id, classifyError(err))
	}
	return &challenge, nil
}

// ListActive returns the enrollable catalog.
func (r *ChallengeRepository) ListActive(ctx context.Context) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&challenges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", classifyError(err))
	}
	return challenges, nil
}

// UpsertBySlug inserts the challenge or refreshes the catalog fields of an
// existing one with the same slug. challenge.ID is populated on return.
func (r *ChallengeRepository) UpsertBySlug(ctx context.Context, challenge *models.Challenge) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "description", "difficulty", "xp_reward",
				"duration_days", "category", "is_active", "updated_at",
			}),
		}).
		Create(challenge).Error
	if err != nil {
		return fmt.Errorf("failed to upsert challenge %s: %w", challenge.Slug, classifyError(err))
	}

	// Not every dialect returns the id of an updated row.
	if challenge.ID == 0 {
		var existing models.Challenge
		if err := r.db.WithContext(ctx).Where("slug = ?", challenge.Slug).First(&existing).Error; err != nil {
			return fmt.Errorf("failed to reload challenge %s: %w", challenge.Slug, classifyError(err))
		}
		challenge.ID = existing.ID
	}
	return nil
}
