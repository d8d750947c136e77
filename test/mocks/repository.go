package mocks

import (
	"context"

	"github.com/dakshkumar96/Reclaim/internal/apperrors"
	"github.com/dakshkumar96/Reclaim/internal/models"
	"github.com/dakshkumar96/Reclaim/internal/service/progress"
)

// MockUserRepository is a simple mock for user repository
type MockUserRepository struct {
	GetByIDFunc func(ctx context.Context, id uint) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, apperrors.ErrNotFound
}

// MockProgressReader is a simple mock for the progress read side
type MockProgressReader struct {
	ActiveChallengesFunc func(ctx context.Context, userID uint) ([]progress.ActiveChallenge, error)
}

func (m *MockProgressReader) ActiveChallenges(ctx context.Context, userID uint) ([]progress.ActiveChallenge, error) {
	if m.ActiveChallengesFunc != nil {
		return m.ActiveChallengesFunc(ctx, userID)
	}
	return []progress.ActiveChallenge{}, nil
}
