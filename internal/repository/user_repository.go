package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dakshkumar96/Reclaim/internal/models"
)

// UserRepository handles user-related database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Ensure inserts the user if no row with this ID exists. Identity is owned by the
// token issuer, so IDs are taken as given and usernames are display names only.
func (r *UserRepository) Ensure(ctx context.Context, id uint, username string) error {
	user := &models.User{ID: id, Username: username, Level: 1}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(user).Error
	if err != nil {
		return fmt.Errorf("failed to ensure user %d: %w", id, classifyError(err))
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by id %d: %w", id, classifyError(err))
	}
	return &user, nil
}

// GetForUpdate reads the user row and locks it until the transaction ends.
func (r *UserRepository) GetForUpdate(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", id, classifyError(err))
	}
	return &user, nil
}

// AddXP increments XP and raises the stored level to at least minLevel.
func (r *UserRepository) AddXP(ctx context.Context, id uint, delta int64, minLevel int) error {
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"xp":    gorm.Expr("xp + ?", delta),
			"level": gorm.Expr("CASE WHEN level < ? THEN ? ELSE level END", minLevel, minLevel),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to add xp to user %d: %w", id, classifyError(err))
	}
	return nil
}

// ListIDs returns every user ID in ascending order.
func (r *UserRepository) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.User{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", classifyError(err))
	}
	return ids, nil
}

// TopByXP returns the highest-XP users; ties are broken by the earlier account.
func (r *UserRepository) TopByXP(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Order("xp DESC").
		Order("id ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", classifyError(err))
	}
	return users, nil
}

// RankByXP returns the 1-based position the user holds in the TopByXP ordering.
func (r *UserRepository) RankByXP(ctx context.Context, id uint) (int, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	var ahead int64
	err = r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("xp > ? OR (xp = ? AND id < ?)", user.XP, user.XP, id).
		Count(&ahead).Error
	if err != nil {
		return 0, fmt.Errorf("failed to rank user %d: %w", id, classifyError(err))
	}
	return int(ahead) + 1, nil
}
