// Package progress implements enrollment, daily check-in and challenge completion.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dakshkumar96/Reclaim/internal/apperrors"
	"github.com/dakshkumar96/Reclaim/internal/clock"
	"github.com/dakshkumar96/Reclaim/internal/config"
	"github.com/dakshkumar96/Reclaim/internal/metrics"
	"github.com/dakshkumar96/Reclaim/internal/models"
	"github.com/dakshkumar96/Reclaim/internal/repository"
	"github.com/dakshkumar96/Reclaim/internal/service/completion"
	"github.com/dakshkumar96/Reclaim/internal/service/streak"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

// BadgeEvaluator awards any badges the user newly qualifies for.
type BadgeEvaluator interface {
	EvaluateUserBadges(ctx context.Context, userID uint) ([]models.Badge, error)
}

// Completer finishes an active enrollment.
type Completer interface {
	Complete(ctx context.Context, userID, challengeID uint) (*completion.Result, error)
}

// LevelAnnouncer publishes level increases.
type LevelAnnouncer interface {
	LevelUp(username string, level int)
}

// StreakView is the streak returned to clients.
type StreakView struct {
	Current       int    `json:"current_streak"`
	Longest       int    `json:"longest_streak"`
	LastActiveDay string `json:"last_active_day"`
}

// CheckInResult is the outcome of a successful check-in.
type CheckInResult struct {
	ChallengeID        uint                 `json:"challenge_id"`
	Day                string               `json:"day"`
	ProgressDays       int                  `json:"progress_days"`
	DurationDays       int                  `json:"duration_days"`
	CompletionEligible bool                 `json:"completion_eligible"`
	Streak             StreakView           `json:"streak"`
	XP                 *completion.XPChange `json:"xp,omitempty"`
	NewBadges          []models.Badge       `json:"new_badges"`
}

// CompleteResult is the outcome of a successful completion.
type CompleteResult struct {
	*completion.Result
	NewBadges []models.Badge `json:"new_badges"`
}

// ActiveChallenge is one row of the user's dashboard.
type ActiveChallenge struct {
	Enrollment     models.Enrollment `json:"enrollment"`
	Streak         StreakView        `json:"streak"`
	CheckedInToday bool              `json:"checked_in_today"`
}

// Service orchestrates the progress ledger.
type Service struct {
	db        *repository.DB
	repos     *repository.Repositories
	completer Completer
	badges    BadgeEvaluator
	levels    completion.LevelPolicy
	dailyXP   config.DailyXPConfig
	calendar  clock.Calendar
	clock     clock.Clock
	announcer LevelAnnouncer
	log       *logger.Logger
}

// Options carries the policy knobs of the ledger.
type Options struct {
	Levels   completion.LevelPolicy
	DailyXP  config.DailyXPConfig
	Calendar clock.Calendar
	Clock    clock.Clock

	// Announcer is optional.
	Announcer LevelAnnouncer
}

// NewService creates a progress service.
func NewService(db *repository.DB, completer Completer, badges BadgeEvaluator, opts Options, log *logger.Logger) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Levels.XPPerLevel <= 0 {
		opts.Levels = completion.NewLevelPolicy(0)
	}
	return &Service{
		db:        db,
		repos:     repository.NewRepositories(db),
		completer: completer,
		badges:    badges,
		levels:    opts.Levels,
		dailyXP:   opts.DailyXP,
		calendar:  opts.Calendar,
		clock:     opts.Clock,
		announcer: opts.Announcer,
		log:       log,
	}
}

// StartChallenge enrolls the user. Each (user, challenge) pair can be enrolled
// once; a second attempt fails with ErrAlreadyEnrolled even after completion.
func (s *Service) StartChallenge(ctx context.Context, userID, challengeID uint) (*models.Enrollment, error) {
	var enrollment *models.Enrollment

	err := s.withRetry(ctx, "start_challenge", func() error {
		challenge, err := s.repos.Challenges.GetByID(ctx, challengeID)
		if err != nil {
			return err
		}
		if !challenge.IsActive {
			return fmt.Errorf("challenge %d is inactive: %w", challengeID, apperrors.ErrNotFound)
		}

		candidate := &models.Enrollment{
			UserID:       userID,
			ChallengeID:  challengeID,
			Status:       models.EnrollmentActive,
			ProgressDays: 0,
			StartedAt:    s.clock.Now().UTC(),
		}
		created, err := s.repos.Enrollments.CreateIfAbsent(ctx, candidate)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("challenge %d: %w", challengeID, apperrors.ErrAlreadyEnrolled)
		}

		candidate.Challenge = *challenge
		enrollment = candidate
		return nil
	})
	if err != nil {
		metrics.RecordEnrollmentStarted(outcome(err))
		return nil, err
	}

	metrics.RecordEnrollmentStarted("success")
	s.log.Info().
		Uint("user_id", userID).
		Uint("challenge_id", challengeID).
		Msg("Challenge started")

	return enrollment, nil
}

// CheckIn records today's check-in for an active enrollment, advances progress
// and the streak, then runs badge qualification. "Today" comes from the
// service clock in the canonical timezone.
func (s *Service) CheckIn(ctx context.Context, userID, challengeID uint) (*CheckInResult, error) {
	today := s.calendar.Today(s.clock)
	day := clock.FormatDay(today)

	var result *CheckInResult
	err := s.withRetry(ctx, "checkin", func() error {
		var err error
		result, err = s.checkIn(ctx, userID, challengeID, today, day)
		return err
	})
	if err != nil {
		metrics.RecordCheckIn(outcome(err))
		return nil, err
	}

	metrics.RecordCheckIn("success")
	metrics.ObserveStreakLength(result.Streak.Current)
	if result.XP != nil {
		metrics.RecordXPAwarded("daily_checkin", result.XP.Delta)
		if result.XP.LeveledUp {
			metrics.RecordLevelUp()
		}
		s.announceLevel(ctx, userID, result.XP)
	}

	result.NewBadges = s.evaluateBadges(ctx, userID)

	s.log.Info().
		Uint("user_id", userID).
		Uint("challenge_id", challengeID).
		Str("day", day).
		Int("progress_days", result.ProgressDays).
		Int("current_streak", result.Streak.Current).
		Int("new_badges", len(result.NewBadges)).
		Msg("Check-in recorded")

	return result, nil
}

func (s *Service) checkIn(ctx context.Context, userID, challengeID uint, today time.Time, day string) (*CheckInResult, error) {
	var result *CheckInResult

	err := s.db.InTx(ctx, func(repos *repository.Repositories) error {
		// The row lock serializes check-in and completion for the same pair.
		enrollment, err := repos.Enrollments.GetForUpdate(ctx, userID, challengeID)
		if err != nil {
			return err
		}
		if enrollment == nil || !enrollment.IsActive() {
			return fmt.Errorf("challenge %d: %w", challengeID, apperrors.ErrNotEnrolled)
		}

		challenge, err := repos.Challenges.GetByID(ctx, challengeID)
		if err != nil {
			return err
		}

		inserted, err := repos.CheckIns.InsertDailyLog(ctx, &models.DailyLog{
			UserID:      userID,
			ChallengeID: challengeID,
			Day:         day,
		})
		if err != nil {
			return err
		}
		if !inserted {
			return fmt.Errorf("challenge %d on %s: %w", challengeID, day, apperrors.ErrDuplicateCheckIn)
		}

		if err := repos.Enrollments.IncrementProgress(ctx, enrollment.ID); err != nil {
			return err
		}
		progressDays := enrollment.ProgressDays + 1

		state, err := s.advanceStreak(ctx, repos.CheckIns, userID, challengeID, today)
		if err != nil {
			return err
		}

		var xp *completion.XPChange
		if amount := s.dailyXP.ForDifficulty(challenge.Difficulty); amount > 0 {
			xp, err = s.levels.Grant(ctx, repos.Users, userID, amount)
			if err != nil {
				return err
			}
		}

		result = &CheckInResult{
			ChallengeID:        challengeID,
			Day:                day,
			ProgressDays:       progressDays,
			DurationDays:       challenge.DurationDays,
			CompletionEligible: progressDays >= challenge.DurationDays,
			Streak:             viewOf(state),
			XP:                 xp,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) advanceStreak(ctx context.Context, checkIns *repository.CheckInRepository, userID, challengeID uint, today time.Time) (streak.State, error) {
	stored, err := checkIns.GetStreak(ctx, userID, challengeID)
	if err != nil {
		return streak.State{}, err
	}

	var next streak.State
	if stored != nil {
		lastActive, err := clock.ParseDay(stored.LastActiveDay)
		if err != nil {
			return streak.State{}, err
		}
		next = streak.Apply(&streak.State{
			Current:    stored.CurrentStreak,
			Longest:    stored.LongestStreak,
			LastActive: lastActive,
		}, today)
	} else {
		// No streak row: rebuild from the log, which already holds today.
		next, err = rebuildStreak(ctx, checkIns, userID, challengeID, today)
		if err != nil {
			return streak.State{}, err
		}
	}

	err = checkIns.SaveStreak(ctx, &models.Streak{
		UserID:        userID,
		ChallengeID:   challengeID,
		CurrentStreak: next.Current,
		LongestStreak: next.Longest,
		LastActiveDay: clock.FormatDay(next.LastActive),
	})
	if err != nil {
		return streak.State{}, err
	}
	return next, nil
}

// Complete finishes an active enrollment, grants its XP reward and runs badge
// qualification.
func (s *Service) Complete(ctx context.Context, userID, challengeID uint) (*CompleteResult, error) {
	var result *completion.Result
	err := s.withRetry(ctx, "complete", func() error {
		var err error
		result, err = s.completer.Complete(ctx, userID, challengeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.announceLevel(ctx, userID, &result.XPChange)

	return &CompleteResult{
		Result:    result,
		NewBadges: s.evaluateBadges(ctx, userID),
	}, nil
}

// ActiveChallenges lists the user's active enrollments with streak and today's status.
func (s *Service) ActiveChallenges(ctx context.Context, userID uint) ([]ActiveChallenge, error) {
	enrollments, err := s.repos.Enrollments.ListByStatus(ctx, userID, models.EnrollmentActive)
	if err != nil {
		return nil, err
	}
	streaks, err := s.repos.CheckIns.ListStreaks(ctx, userID)
	if err != nil {
		return nil, err
	}

	byChallenge := make(map[uint]models.Streak, len(streaks))
	for _, st := range streaks {
		byChallenge[st.ChallengeID] = st
	}

	today := s.calendar.Today(s.clock)
	day := clock.FormatDay(today)

	active := make([]ActiveChallenge, 0, len(enrollments))
	for _, enrollment := range enrollments {
		item := ActiveChallenge{Enrollment: enrollment}
		if st, ok := byChallenge[enrollment.ChallengeID]; ok {
			item.Streak = s.currentView(st, today)
			item.CheckedInToday = st.LastActiveDay == day
		}
		active = append(active, item)
	}
	return active, nil
}

// currentView reports a stored streak as of today: a run whose last check-in is
// older than yesterday is already broken.
func (s *Service) currentView(st models.Streak, today time.Time) StreakView {
	view := StreakView{
		Current:       st.CurrentStreak,
		Longest:       st.LongestStreak,
		LastActiveDay: st.LastActiveDay,
	}
	if last, err := clock.ParseDay(st.LastActiveDay); err == nil && clock.DaysBetween(last, today) > 1 {
		view.Current = 0
	}
	return view
}

func (s *Service) evaluateBadges(ctx context.Context, userID uint) []models.Badge {
	if s.badges == nil {
		return []models.Badge{}
	}
	awarded, err := s.badges.EvaluateUserBadges(ctx, userID)
	if err != nil {
		// The mutation is committed; the nightly sweep picks up missed awards.
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Badge evaluation failed")
		return []models.Badge{}
	}
	if awarded == nil {
		awarded = []models.Badge{}
	}
	return awarded
}

func (s *Service) announceLevel(ctx context.Context, userID uint, xp *completion.XPChange) {
	if s.announcer == nil || !xp.LeveledUp {
		return
	}
	username := fmt.Sprintf("user-%d", userID)
	if user, err := s.repos.Users.GetByID(ctx, userID); err == nil {
		username = user.Username
	}
	s.announcer.LevelUp(username, xp.NewLevel)
}

func rebuildStreak(ctx context.Context, checkIns *repository.CheckInRepository, userID, challengeID uint, today time.Time) (streak.State, error) {
	logged, err := checkIns.ListDays(ctx, userID, challengeID)
	if err != nil {
		return streak.State{}, err
	}

	days := make([]time.Time, 0, len(logged))
	for _, d := range logged {
		day, err := clock.ParseDay(d)
		if err != nil {
			return streak.State{}, err
		}
		days = append(days, day)
	}

	if state := streak.Replay(days); state != nil {
		return *state, nil
	}
	return streak.Apply(nil, today), nil
}

// withRetry runs fn and repeats it once when it fails with a store conflict.
func (s *Service) withRetry(ctx context.Context, operation string, fn func() error) error {
	err := fn()
	if !apperrors.IsRetryable(err) || ctx.Err() != nil {
		return err
	}

	metrics.RecordStoreRetry(operation)
	s.log.Warn().Err(err).Str("operation", operation).Msg("Store conflict, retrying once")
	return fn()
}

func viewOf(state streak.State) StreakView {
	return StreakView{
		Current:       state.Current,
		Longest:       state.Longest,
		LastActiveDay: clock.FormatDay(state.LastActive),
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrDuplicateCheckIn):
		return "duplicate"
	case errors.Is(err, apperrors.ErrNotEnrolled):
		return "not_enrolled"
	case errors.Is(err, apperrors.ErrAlreadyEnrolled):
		return "already_enrolled"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
