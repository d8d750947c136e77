package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dakshkumar96/Reclaim/internal/apperrors"
	"github.com/dakshkumar96/Reclaim/internal/clock"
	"github.com/dakshkumar96/Reclaim/internal/config"
	"github.com/dakshkumar96/Reclaim/internal/models"
	"github.com/dakshkumar96/Reclaim/internal/repository"
	"github.com/dakshkumar96/Reclaim/internal/service/badges"
	"github.com/dakshkumar96/Reclaim/internal/service/completion"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
	"github.com/dakshkumar96/Reclaim/test/fixtures"
)

type harness struct {
	service *Service
	db      *repository.DB
	repos   *repository.Repositories
	clock   *clock.Fixed
}

func newHarness(t *testing.T, dailyXP config.DailyXPConfig) *harness {
	t.Helper()

	db := fixtures.NewDB(t)
	clk := fixtures.NewClock()
	levels := completion.NewLevelPolicy(100)
	repos := repository.NewRepositories(db)

	evaluator := completion.NewEvaluator(db, levels, clk, logger.Nop())
	badgeService := badges.NewService(repos, clk, logger.Nop())
	service := NewService(db, evaluator, badgeService, Options{
		Levels:   levels,
		DailyXP:  dailyXP,
		Calendar: clock.NewCalendar(time.UTC),
		Clock:    clk,
	}, logger.Nop())

	fixtures.User(t, db, 1, "alice")
	return &harness{service: service, db: db, repos: repos, clock: clk}
}

func TestStartChallenge(t *testing.T) {
	h := newHarness(t, config.DailyXPConfig{})
	ctx := context.Background()
	challenge := fixtures.Challenge(t, h.db, "walk", models.BadgeCategoryHealth, 5, 100)

	enrollment, err := h.service.StartChallenge(ctx, 1, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, enrollment.Status)
	assert.Equal(t, 0, enrollment.ProgressDays)
	assert.True(t, enrollment.StartedAt.Equal(fixtures.Start))
	assert.Equal(t, "walk", enrollment.Challenge.Slug)

	_, err = h.service.StartChallenge(ctx, 1, challenge.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyEnrolled)
}

func TestStartChallengeUnknownOrInactive(t *testing.T) {
	h := newHarness(t, config.DailyXPConfig{})
	ctx := context.Background()

	_, err := h.service.StartChallenge(ctx, 1, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	challenge := fixtures.Challenge(t, h.db, "retired", models.BadgeCategoryHealth, 5, 100)
	require.NoError(t, h.db.Model(&models.Challenge{}).Where("id = ?", challenge.ID).Update("is_active", false).Error)

	_, err = h.service.StartChallenge(ctx, 1, challenge.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStartChallengeAfterCompletion(t *testing.T) {
	h := newHarness(t, config.DailyXPConfig{})
	ctx := context.Background()
	challenge := fixtures.Challenge(t, h.db, "walk", models.BadgeCategoryHealth, 1, 100)

	_, err := h.service.StartChallenge(ctx, 1, challenge.ID)
	require.NoError(t, err)
	_, err = h.service.Complete(ctx, 1, challenge.ID)
	require.NoError(t, err)

	_, err = h.service.StartChallenge(ctx, 1, challenge.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyEnrolled)
}

func TestCheckInRequiresActiveEnrollment(t *testing.T) {
	h := newHarness(t, config.DailyXPConfig{})
	ctx := context.Background()
	challenge := fixtures.Challenge(t, h.db, "walk", models.BadgeCategoryHealth, 5, 100)

	_, err := h.service.CheckIn(ctx, 1, challenge.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotEnrolled)

	fixtures.Enroll(t, h.db, 1, challenge.ID)
	_, err = h.service.Complete(ctx, 1, challenge.ID)
	require.NoError(t, err)

	_, err = h.service.CheckIn(ctx, 1, challenge.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotEnrolled)

	logs, err := h.repos.CheckIns.CountLogs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), logs)
}

func TestCheckInTwiceSameDay(t *testing.T) {
	h := newHarness(t, config.DailyXPConfig{})
	ctx := context.Background()
	challenge := fixtures.Challenge(t, h.db, "walk", models.BadgeCategoryHealth, 5, 100)
	fixtures.Enroll(t, h.db, 1, challenge.ID)

	first, err := h.service.CheckIn(ctx, 1, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.ProgressDays)

	h.clock.Advance(10 * time.Hour)
	_, err = h.service.CheckIn(ctx, 1, challenge.ID)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateCheckIn)

	enrollment, err := h.repos.Enrollments.Get(ctx, 1, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, enrollment.ProgressDays)
}

func TestConcurrentCheckInsRecordOnce(t *testing.T) {
	h := newHarness(t, config.DailyXPConfig{})
	ctx := context.Background()
	challenge := fixtures.Challenge(t, h.db, "walk", models.BadgeCategoryHealth, 5, 100)
	fixtures.Enroll(t, h.db, 1, challenge.ID)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.service.CheckIn(ctx, 1, challenge.ID)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrDuplicateCheckIn)
	}
	assert.Equal(t, 1, successes)

	enrollment, err := h.repos.Enrollments.Get(ctx, 1, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, enrollment.ProgressDays)

	st, err := h.repos.CheckIns.GetStreak(ctx, 1, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentStreak)
}

func TestCheckInStreakAcrossGap(t *testing.T) {
	h := newHarness(t, config.DailyXPConfig{})
	ctx := context.Background()
	challenge := fixtures.Challenge(t, h.db, "walk", models.BadgeCategoryHealth, 30, 100)
	fixtures.Enroll(t, h.db, 1, challenge.ID)

	day1, err := h.service.CheckIn(ctx, 1, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, StreakView{Current: 1, Longest: 1, LastActiveDay: "2024-03-01"}, day1.Streak)

	h.clock.AddDays(1)
	day2, err := h.service.CheckIn(ctx, 1, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, StreakView{Current: 2, Longest: 2, LastActiveDay: "2024-03-02"}, day2.Streak)

	h.clock.AddDays(2)
	day4, err := h.service.CheckIn(ctx, 1, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, StreakView{Current: 1, Longest: 2, LastActiveDay: "2024-03-04"}, day4.Streak)
	assert.Equal(t, 3, day4.ProgressDays)
}

func TestCheckInRebuildsMissingStreak(t *testing.T) {
	h := newHarness(t, config.DailyXPConfig{})
	ctx := context.Background()
	challenge := fixtures.Challenge(t, h.db, "read", models.BadgeCategoryEducation, 30, 100)
	fixtures.Enroll(t, h.db, 1, challenge.ID)

	_, err := h.service.CheckIn(ctx, 1, challenge.ID)
	require.NoError(t, err)
	h.clock.AddDays(1)
	_, err = h.service.CheckIn(ctx, 1, challenge.ID)
	require.NoError(t, err)

	require.NoError(t, h.db.Where("user_id = ?", 1).Delete(&models.Streak{}).Error)

	h.clock.AddDays(1)
	day3, err := h.service.CheckIn(ctx, 1, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, StreakView{Current: 3, Longest: 3, LastActiveDay: "2024-03-03"}, day3.Streak)
}

func TestCheckInCompletionEligibility(t *testing.T) {
	h := newHarness(t, config.DailyXPConfig{})
	ctx := context.Background()
	challenge := fixtures.Challenge(t, h.db, "five", models.BadgeCategoryHealth, 5, 100)
	fixtures.Enroll(t, h.db, 1, challenge.ID)

	var last *CheckInResult
	for i := 0; i < 5; i++ {
		result, err := h.service.CheckIn(ctx, 1, challenge.ID)
		require.NoError(t, err)
		assert.Equal(t, i+1, result.ProgressDays)
		assert.Equal(t, i == 4, result.CompletionEligible)
		last = result
		h.clock.AddDays(1)
	}
	assert.Equal(t, 5, last.DurationDays)

	done, err := h.service.Complete(ctx, 1, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), done.NewXP)
	assert.Equal(t, 2, done.NewLevel)
}

func TestCheckInDailyXP(t *testing.T) {
	h := newHarness(t, config.DailyXPConfig{Enabled: true, Easy: 5, Medium: 10, Hard: 15})
	ctx := context.Background()
	challenge := fixtures.Challenge(t, h.db, "walk", models.BadgeCategoryHealth, 30, 100)
	fixtures.Enroll(t, h.db, 1, challenge.ID)

	result, err := h.service.CheckIn(ctx, 1, challenge.ID)
	require.NoError(t, err)
	require.NotNil(t, result.XP)
	assert.Equal(t, int64(10), result.XP.Delta)
	assert.Equal(t, int64(10), result.XP.NewXP)

	user, err := h.repos.Users.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), user.XP)
}

func TestCheckInWithoutDailyXP(t *testing.T) {
	h := newHarness(t, config.DailyXPConfig{})
	ctx := context.Background()
	challenge := fixtures.Challenge(t, h.db, "walk", models.BadgeCategoryHealth, 30, 100)
	fixtures.Enroll(t, h.db, 1, challenge.ID)

	result, err := h.service.CheckIn(ctx, 1, challenge.ID)
	require.NoError(t, err)
	assert.Nil(t, result.XP)
	assert.NotNil(t, result.NewBadges)
}

func TestCheckInAwardsStreakBadge(t *testing.T) {
	h := newHarness(t, config.DailyXPConfig{})
	ctx := context.Background()
	challenge := fixtures.Challenge(t, h.db, "walk", models.BadgeCategoryHealth, 30, 100)
	fixtures.Enroll(t, h.db, 1, challenge.ID)
	fixtures.Badge(t, h.db, "Three in a Row", models.BadgeCategoryStreak, 0, 3)

	for i := 0; i < 2; i++ {
		result, err := h.service.CheckIn(ctx, 1, challenge.ID)
		require.NoError(t, err)
		assert.Empty(t, result.NewBadges)
		h.clock.AddDays(1)
	}

	third, err := h.service.CheckIn(ctx, 1, challenge.ID)
	require.NoError(t, err)
	require.Len(t, third.NewBadges, 1)
	assert.Equal(t, "Three in a Row", third.NewBadges[0].Name)

	h.clock.AddDays(1)
	fourth, err := h.service.CheckIn(ctx, 1, challenge.ID)
	require.NoError(t, err)
	assert.Empty(t, fourth.NewBadges)
}

func TestCompleteAwardsBadges(t *testing.T) {
	h := newHarness(t, config.DailyXPConfig{})
	ctx := context.Background()
	challenge := fixtures.Challenge(t, h.db, "walk", models.BadgeCategoryHealth, 5, 100)
	fixtures.Enroll(t, h.db, 1, challenge.ID)
	fixtures.Badge(t, h.db, "First Steps", models.BadgeCategoryChallenge, 0, 0)
	fixtures.Badge(t, h.db, "Century", models.BadgeCategoryXP, 100, 0)

	result, err := h.service.Complete(ctx, 1, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BadgeCategoryHealth, result.Category)

	var awarded []string
	for _, b := range result.NewBadges {
		awarded = append(awarded, b.Name)
	}
	assert.ElementsMatch(t, []string{"First Steps", "Century"}, awarded)

	_, err = h.service.Complete(ctx, 1, challenge.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyCompleted)
}

type flakyCompleter struct {
	failures int
	calls    int
	kind     error
}

func (f *flakyCompleter) Complete(_ context.Context, _, challengeID uint) (*completion.Result, error) {
	f.calls++
	if f.calls <= f.failures {
		kind := f.kind
		if kind == nil {
			kind = apperrors.ErrStoreConflict
		}
		return nil, fmt.Errorf("%w: transient failure", kind)
	}
	return &completion.Result{ChallengeID: challengeID}, nil
}

type failingBadges struct{}

func (failingBadges) EvaluateUserBadges(context.Context, uint) ([]models.Badge, error) {
	return nil, errors.New("badge store down")
}

func newServiceWith(t *testing.T, completer Completer, badgeEvaluator BadgeEvaluator) *Service {
	t.Helper()

	db := fixtures.NewDB(t)
	return NewService(db, completer, badgeEvaluator, Options{Clock: fixtures.NewClock()}, logger.Nop())
}

func TestCompleteRetriesOnceOnConflict(t *testing.T) {
	completer := &flakyCompleter{failures: 1}
	service := newServiceWith(t, completer, nil)

	result, err := service.Complete(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, uint(7), result.ChallengeID)
	assert.Equal(t, 2, completer.calls)
}

func TestCompleteGivesUpAfterSecondConflict(t *testing.T) {
	completer := &flakyCompleter{failures: 2}
	service := newServiceWith(t, completer, nil)

	_, err := service.Complete(context.Background(), 1, 7)
	assert.ErrorIs(t, err, apperrors.ErrStoreConflict)
	assert.Equal(t, 2, completer.calls)
}

func TestCompleteDoesNotRetryUnavailableStore(t *testing.T) {
	completer := &flakyCompleter{failures: 1, kind: apperrors.ErrStoreUnavailable}
	service := newServiceWith(t, completer, nil)

	_, err := service.Complete(context.Background(), 1, 7)
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	assert.Equal(t, 1, completer.calls)
}

func TestBadgeFailureDoesNotFailCompletion(t *testing.T) {
	service := newServiceWith(t, &flakyCompleter{}, failingBadges{})

	result, err := service.Complete(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.NotNil(t, result.NewBadges)
	assert.Empty(t, result.NewBadges)
}

func TestActiveChallenges(t *testing.T) {
	h := newHarness(t, config.DailyXPConfig{})
	ctx := context.Background()
	walk := fixtures.Challenge(t, h.db, "walk", models.BadgeCategoryHealth, 30, 100)
	read := fixtures.Challenge(t, h.db, "read", models.BadgeCategoryEducation, 30, 100)
	fixtures.Enroll(t, h.db, 1, walk.ID)
	fixtures.Enroll(t, h.db, 1, read.ID)

	_, err := h.service.CheckIn(ctx, 1, walk.ID)
	require.NoError(t, err)
	h.clock.AddDays(1)
	_, err = h.service.CheckIn(ctx, 1, walk.ID)
	require.NoError(t, err)

	active, err := h.service.ActiveChallenges(ctx, 1)
	require.NoError(t, err)
	require.Len(t, active, 2)

	byID := map[uint]ActiveChallenge{}
	for _, a := range active {
		byID[a.Enrollment.ChallengeID] = a
	}
	assert.True(t, byID[walk.ID].CheckedInToday)
	assert.Equal(t, 2, byID[walk.ID].Streak.Current)
	assert.False(t, byID[read.ID].CheckedInToday)
	assert.Equal(t, 0, byID[read.ID].Streak.Current)

	// Two days without a check-in breaks the run.
	h.clock.AddDays(2)
	active, err = h.service.ActiveChallenges(ctx, 1)
	require.NoError(t, err)
	for _, a := range active {
		if a.Enrollment.ChallengeID == walk.ID {
			assert.Equal(t, 0, a.Streak.Current)
			assert.Equal(t, 2, a.Streak.Longest)
			assert.False(t, a.CheckedInToday)
		}
	}
}

type recordingLevels struct {
	levels []string
}

func (r *recordingLevels) LevelUp(username string, level int) {
	r.levels = append(r.levels, fmt.Sprintf("%s:%d", username, level))
}

func TestCompleteAnnouncesLevelUp(t *testing.T) {
	h := newHarness(t, config.DailyXPConfig{})
	ctx := context.Background()
	announcer := &recordingLevels{}
	h.service.announcer = announcer

	small := fixtures.Challenge(t, h.db, "stretch", models.BadgeCategoryHealth, 3, 50)
	big := fixtures.Challenge(t, h.db, "read", models.BadgeCategoryEducation, 3, 60)

	_, err := h.service.StartChallenge(ctx, 1, small.ID)
	require.NoError(t, err)
	_, err = h.service.Complete(ctx, 1, small.ID)
	require.NoError(t, err)
	assert.Empty(t, announcer.levels, "50 XP stays on level 1")

	_, err = h.service.StartChallenge(ctx, 1, big.ID)
	require.NoError(t, err)
	_, err = h.service.Complete(ctx, 1, big.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice:2"}, announcer.levels)
}
