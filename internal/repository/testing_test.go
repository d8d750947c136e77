package repository

import (
	"context"
	"testing"
	"time"

	"github.com/dakshkumar96/Reclaim/internal/models"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := OpenSQLite(":memory:", logger.Nop())
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// createTestUser creates a test user in the database.
func createTestUser(t *testing.T, db *DB, id uint, username string) *models.User {
	t.Helper()

	if err := NewUserRepository(db).Ensure(context.Background(), id, username); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	user, err := NewUserRepository(db).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("Failed to load test user: %v", err)
	}
	return user
}

// createTestChallenge creates an active challenge in the database.
func createTestChallenge(t *testing.T, db *DB, slug, category string, duration int, reward int64) *models.Challenge {
	t.Helper()

	challenge := &models.Challenge{
		Slug:         slug,
		Title:        slug,
		Difficulty:   models.DifficultyMedium,
		XPReward:     reward,
		DurationDays: duration,
		Category:     category,
		IsActive:     true,
	}
	if err := db.Create(challenge).Error; err != nil {
		t.Fatalf("Failed to create test challenge: %v", err)
	}
	return challenge
}

// enroll creates an active enrollment.
func enroll(t *testing.T, db *DB, userID, challengeID uint) *models.Enrollment {
	t.Helper()

	enrollment := &models.Enrollment{
		UserID:      userID,
		ChallengeID: challengeID,
		Status:      models.EnrollmentActive,
		StartedAt:   time.Now().UTC(),
	}
	created, err := NewEnrollmentRepository(db).CreateIfAbsent(context.Background(), enrollment)
	if err != nil || !created {
		t.Fatalf("Failed to enroll: created=%v err=%v", created, err)
	}
	return enrollment
}
