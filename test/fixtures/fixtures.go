// Package fixtures builds throwaway SQLite databases and seed rows for service tests.
package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/dakshkumar96/Reclaim/internal/clock"
	"github.com/dakshkumar96/Reclaim/internal/models"
	"github.com/dakshkumar96/Reclaim/internal/repository"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

// Start is the default frozen instant used by service tests: 2024-03-01 09:00 UTC.
var Start = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// NewDB opens an in-memory database with the full schema.
func NewDB(t testing.TB) *repository.DB {
	t.Helper()

	db, err := repository.OpenSQLite(":memory:", logger.Nop())
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewClock returns a fixed clock at Start.
func NewClock() *clock.Fixed {
	return clock.NewFixed(Start)
}

// User inserts a user.
func User(t testing.TB, db *repository.DB, id uint, username string) {
	t.Helper()

	if err := repository.NewUserRepository(db).Ensure(context.Background(), id, username); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
}

// Challenge inserts an active challenge.
func Challenge(t testing.TB, db *repository.DB, slug, category string, durationDays int, xpReward int64) *models.Challenge {
	t.Helper()

	challenge := &models.Challenge{
		Slug:         slug,
		Title:        slug,
		Difficulty:   models.DifficultyMedium,
		XPReward:     xpReward,
		DurationDays: durationDays,
		Category:     category,
		IsActive:     true,
	}
	if err := repository.NewChallengeRepository(db).UpsertBySlug(context.Background(), challenge); err != nil {
		t.Fatalf("Failed to create challenge: %v", err)
	}
	return challenge
}

// Badge inserts an active badge.
func Badge(t testing.TB, db *repository.DB, name, category string, xpRequirement int64, streakRequirement int) *models.Badge {
	t.Helper()

	badge := &models.Badge{
		Name:              name,
		Description:       name,
		Icon:              "🏅",
		Category:          category,
		XPRequirement:     xpRequirement,
		StreakRequirement: streakRequirement,
		IsActive:          true,
	}
	if err := db.WithContext(context.Background()).Create(badge).Error; err != nil {
		t.Fatalf("Failed to create badge: %v", err)
	}
	return badge
}

// Enroll inserts an active enrollment started at Start.
func Enroll(t testing.TB, db *repository.DB, userID, challengeID uint) *models.Enrollment {
	t.Helper()

	enrollment := &models.Enrollment{
		UserID:      userID,
		ChallengeID: challengeID,
		Status:      models.EnrollmentActive,
		StartedAt:   Start,
	}
	created, err := repository.NewEnrollmentRepository(db).CreateIfAbsent(context.Background(), enrollment)
	if err != nil || !created {
		t.Fatalf("Failed to enroll: created=%v err=%v", created, err)
	}
	return enrollment
}
