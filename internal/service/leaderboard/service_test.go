package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dakshkumar96/Reclaim/internal/cache"
	"github.com/dakshkumar96/Reclaim/internal/models"
	"github.com/dakshkumar96/Reclaim/internal/repository"
	"github.com/dakshkumar96/Reclaim/internal/service/completion"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
	"github.com/dakshkumar96/Reclaim/test/fixtures"
)

type testEnv struct {
	service *Service
	repos   *repository.Repositories
	db      *repository.DB
	redis   *miniredis.Miniredis
}

func setup(t *testing.T, withCache bool) *testEnv {
	t.Helper()

	db := fixtures.NewDB(t)
	repos := repository.NewRepositories(db)

	var c *cache.Cache
	var mr *miniredis.Miniredis
	if withCache {
		mr = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		c = cache.NewWithClient(client, logger.Nop())
	}

	service := NewService(repos, c, Options{
		Size:     2,
		CacheTTL: time.Minute,
		Levels:   completion.NewLevelPolicy(100),
	}, logger.Nop())

	fixtures.User(t, db, 1, "alice")
	fixtures.User(t, db, 2, "bob")
	fixtures.User(t, db, 3, "carol")
	ctx := context.Background()
	require.NoError(t, repos.Users.AddXP(ctx, 1, 50, 1))
	require.NoError(t, repos.Users.AddXP(ctx, 2, 250, 3))
	require.NoError(t, repos.Users.AddXP(ctx, 3, 120, 2))

	return &testEnv{service: service, repos: repos, db: db, redis: mr}
}

func TestGetLeaderboard(t *testing.T) {
	env := setup(t, false)
	ctx := context.Background()
	badge := fixtures.Badge(t, env.db, "Century", models.BadgeCategoryXP, 100, 0)
	_, err := env.repos.Badges.AwardBadge(ctx, 2, badge.ID, fixtures.Start)
	require.NoError(t, err)

	entries, err := env.service.GetLeaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, Entry{UserID: 2, Username: "bob", XP: 250, Level: 3, BadgeCount: 1, Rank: 1}, entries[0])
	assert.Equal(t, Entry{UserID: 3, Username: "carol", XP: 120, Level: 2, BadgeCount: 0, Rank: 2}, entries[1])

	all, err := env.service.GetLeaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "alice", all[2].Username)
}

func TestGetLeaderboardServesFromCache(t *testing.T) {
	env := setup(t, true)
	ctx := context.Background()

	first, err := env.service.GetLeaderboard(ctx, 0)
	require.NoError(t, err)
	assert.True(t, env.redis.Exists("leaderboard:top:2"))

	// A change inside the TTL is not visible yet.
	require.NoError(t, env.repos.Users.AddXP(ctx, 1, 1000, 11))
	cached, err := env.service.GetLeaderboard(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	env.redis.FastForward(2 * time.Minute)
	fresh, err := env.service.GetLeaderboard(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "alice", fresh[0].Username)
}

func TestWarmRefreshesCache(t *testing.T) {
	env := setup(t, true)
	ctx := context.Background()

	_, err := env.service.GetLeaderboard(ctx, 0)
	require.NoError(t, err)

	require.NoError(t, env.repos.Users.AddXP(ctx, 1, 1000, 11))
	require.NoError(t, env.service.Warm(ctx))

	entries, err := env.service.GetLeaderboard(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "alice", entries[0].Username)
}

func TestGetLeaderboardFallsBackWhenRedisDown(t *testing.T) {
	env := setup(t, true)
	env.redis.Close()

	entries, err := env.service.GetLeaderboard(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestGetUserStats(t *testing.T) {
	env := setup(t, false)
	ctx := context.Background()

	walk := fixtures.Challenge(t, env.db, "walk", models.BadgeCategoryHealth, 5, 100)
	read := fixtures.Challenge(t, env.db, "read", models.BadgeCategoryEducation, 5, 100)
	fixtures.Enroll(t, env.db, 3, walk.ID)
	done := fixtures.Enroll(t, env.db, 3, read.ID)
	_, err := env.repos.Enrollments.MarkCompleted(ctx, done.ID, fixtures.Start)
	require.NoError(t, err)

	for _, day := range []string{"2024-03-01", "2024-03-02"} {
		_, err := env.repos.CheckIns.InsertDailyLog(ctx, &models.DailyLog{UserID: 3, ChallengeID: walk.ID, Day: day})
		require.NoError(t, err)
	}
	require.NoError(t, env.repos.CheckIns.SaveStreak(ctx, &models.Streak{
		UserID: 3, ChallengeID: walk.ID, CurrentStreak: 2, LongestStreak: 2, LastActiveDay: "2024-03-02",
	}))

	badge := fixtures.Badge(t, env.db, "Century", models.BadgeCategoryXP, 100, 0)
	_, err = env.repos.Badges.AwardBadge(ctx, 3, badge.ID, fixtures.Start)
	require.NoError(t, err)

	stats, err := env.service.GetUserStats(ctx, 3)
	require.NoError(t, err)

	assert.Equal(t, "carol", stats.Username)
	assert.Equal(t, int64(120), stats.XP)
	assert.Equal(t, 2, stats.Level)
	assert.Equal(t, int64(20), stats.XPIntoLevel)
	assert.Equal(t, int64(100), stats.XPPerLevel)
	assert.Equal(t, int64(1), stats.ActiveChallenges)
	assert.Equal(t, int64(1), stats.CompletedChallenges)
	assert.Equal(t, int64(2), stats.TotalCheckIns)
	assert.Equal(t, 2, stats.LongestStreak)
	assert.Equal(t, 2, stats.Rank)
	require.Len(t, stats.Badges, 1)
	assert.Equal(t, "Century", stats.Badges[0].Name)
}

func TestGetUserStatsUnknownUser(t *testing.T) {
	env := setup(t, false)

	_, err := env.service.GetUserStats(context.Background(), 42)
	assert.Error(t, err)
}
