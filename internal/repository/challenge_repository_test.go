package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/dakshkumar96/Reclaim/internal/apperrors"
	"github.com/dakshkumar96/Reclaim/internal/models"
)

func TestChallengeRepository_UpsertBySlug(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChallengeRepository(db)
	ctx := context.Background()

	c := &models.Challenge{Slug: "cold-shower", Title: "Cold Shower", Difficulty: models.DifficultyHard, XPReward: 100, DurationDays: 7, Category: models.BadgeCategoryHealth, IsActive: true}
	if err := repo.UpsertBySlug(ctx, c); err != nil {
		t.Fatalf("UpsertBySlug() failed: %v", err)
	}
	if c.ID == 0 {
		t.Fatal("Expected ID to be set")
	}

	again := &models.Challenge{Slug: "cold-shower", Title: "Cold Shower (2 weeks)", Difficulty: models.DifficultyHard, XPReward: 200, DurationDays: 14, Category: models.BadgeCategoryHealth, IsActive: true}
	if err := repo.UpsertBySlug(ctx, again); err != nil {
		t.Fatalf("UpsertBySlug() update failed: %v", err)
	}
	if again.ID != c.ID {
		t.Errorf("Expected same ID %d, got %d", c.ID, again.ID)
	}

	got, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.DurationDays != 14 || got.XPReward != 200 {
		t.Errorf("Expected refreshed catalog fields, got %+v", got)
	}
}

func TestChallengeRepository_ListActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChallengeRepository(db)
	ctx := context.Background()

	createTestChallenge(t, db, "active-one", models.BadgeCategoryHealth, 3, 10)
	inactive := createTestChallenge(t, db, "inactive-one", models.BadgeCategoryHealth, 3, 10)
	if err := db.Model(inactive).Update("is_active", false).Error; err != nil {
		t.Fatalf("Failed to deactivate: %v", err)
	}

	list, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive() failed: %v", err)
	}
	if len(list) != 1 || list[0].Slug != "active-one" {
		t.Errorf("Expected only the active challenge, got %+v", list)
	}

	_, err = repo.GetByID(ctx, 999)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
