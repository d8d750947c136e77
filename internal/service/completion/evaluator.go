// Package completion moves enrollments to completed and pays out the challenge reward.
package completion

import (
	"context"
	"fmt"
	"time"

	"github.com/dakshkumar96/Reclaim/internal/apperrors"
	"github.com/dakshkumar96/Reclaim/internal/clock"
	"github.com/dakshkumar96/Reclaim/internal/metrics"
	"github.com/dakshkumar96/Reclaim/internal/models"
	"github.com/dakshkumar96/Reclaim/internal/repository"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

// Result is the outcome of a successful completion.
type Result struct {
	XPChange
	ChallengeID uint      `json:"challenge_id"`
	Category    string    `json:"category"`
	CompletedAt time.Time `json:"completed_at"`
}

// Evaluator completes challenges.
type Evaluator struct {
	db     *repository.DB
	levels LevelPolicy
	clock  clock.Clock
	log    *logger.Logger
}

// NewEvaluator creates a completion evaluator.
func NewEvaluator(db *repository.DB, levels LevelPolicy, clk clock.Clock, log *logger.Logger) *Evaluator {
	return &Evaluator{
		db:     db,
		levels: levels,
		clock:  clk,
		log:    log,
	}
}

// Complete transitions the user's enrollment from active to completed and grants
// the challenge's XP reward. The status change and the XP/level change commit
// together; a second call fails with ErrAlreadyCompleted and grants nothing.
func (e *Evaluator) Complete(ctx context.Context, userID, challengeID uint) (*Result, error) {
	var result *Result

	err := e.db.InTx(ctx, func(repos *repository.Repositories) error {
		enrollment, err := repos.Enrollments.GetForUpdate(ctx, userID, challengeID)
		if err != nil {
			return err
		}
		if enrollment == nil {
			return fmt.Errorf("challenge %d: %w", challengeID, apperrors.ErrNotActive)
		}
		switch enrollment.Status {
		case models.EnrollmentCompleted:
			return fmt.Errorf("challenge %d: %w", challengeID, apperrors.ErrAlreadyCompleted)
		case models.EnrollmentActive:
		default:
			return fmt.Errorf("challenge %d in status %q: %w", challengeID, enrollment.Status, apperrors.ErrNotActive)
		}

		challenge, err := repos.Challenges.GetByID(ctx, challengeID)
		if err != nil {
			return err
		}

		now := e.clock.Now().UTC()
		updated, err := repos.Enrollments.MarkCompleted(ctx, enrollment.ID, now)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("challenge %d: %w", challengeID, apperrors.ErrAlreadyCompleted)
		}

		change, err := e.levels.Grant(ctx, repos.Users, userID, challenge.XPReward)
		if err != nil {
			return err
		}

		result = &Result{
			XPChange:    *change,
			ChallengeID: challengeID,
			Category:    challenge.Category,
			CompletedAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordChallengeCompleted(result.Category)
	metrics.RecordXPAwarded("completion", result.Delta)
	if result.LeveledUp {
		metrics.RecordLevelUp()
	}

	e.log.Info().
		Uint("user_id", userID).
		Uint("challenge_id", challengeID).
		Int64("xp_delta", result.Delta).
		Int64("new_xp", result.NewXP).
		Int("new_level", result.NewLevel).
		Bool("leveled_up", result.LeveledUp).
		Msg("Challenge completed")

	return result, nil
}
