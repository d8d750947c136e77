package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dakshkumar96/Reclaim/internal/apperrors"
	"github.com/dakshkumar96/Reclaim/internal/repository"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
	"github.com/dakshkumar96/Reclaim/test/fixtures"
)

const sample = `
challenges:
  - title: Morning Walk
    difficulty: easy
    xp_reward: 50
    duration_days: 7
    category: health
  - title: Old Challenge
    slug: old-one
    difficulty: hard
    xp_reward: 10
    duration_days: 3
    category: health
    active: false
badges:
  - name: On Fire
    icon: "🔥"
    category: streak
    streak_requirement: 3
`

func TestParse(t *testing.T) {
	file, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.Len(t, file.Challenges, 2)
	assert.Equal(t, "morning-walk", file.Challenges[0].Slug)
	assert.Equal(t, "old-one", file.Challenges[1].Slug)
	assert.True(t, active(file.Challenges[0].Active))
	assert.False(t, active(file.Challenges[1].Active))

	require.Len(t, file.Badges, 1)
	assert.Equal(t, 3, file.Badges[0].StreakRequirement)
}

func TestParseEmpty(t *testing.T) {
	file, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, file.Challenges)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "challenges:\n  - title: A\n    difficulty: easy\n    duration_days: 1\n    category: x\n    reward: 5\n"},
		{"bad difficulty", "challenges:\n  - title: A\n    difficulty: extreme\n    duration_days: 1\n    category: x\n"},
		{"zero duration", "challenges:\n  - title: A\n    difficulty: easy\n    duration_days: 0\n    category: x\n"},
		{"missing title", "challenges:\n  - slug: a\n    difficulty: easy\n    duration_days: 1\n    category: x\n"},
		{"bad slug", "challenges:\n  - title: A\n    slug: Not A Slug\n    difficulty: easy\n    duration_days: 1\n    category: x\n"},
		{"duplicate slug", "challenges:\n  - title: Walk\n    difficulty: easy\n    duration_days: 1\n    category: x\n  - title: walk\n    difficulty: easy\n    duration_days: 1\n    category: x\n"},
		{"duplicate badge", "badges:\n  - name: A\n    category: xp\n  - name: A\n    category: xp\n"},
		{"negative requirement", "badges:\n  - name: A\n    category: xp\n    xp_requirement: -1\n"},
		{"not yaml", "challenges: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestShippedCatalogIsValid(t *testing.T) {
	file, err := Load("../../config/catalog.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, file.Challenges)
	assert.NotEmpty(t, file.Badges)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestSeedIsIdempotent(t *testing.T) {
	db := fixtures.NewDB(t)
	ctx := context.Background()
	repos := repository.NewRepositories(db)

	file, err := Parse([]byte(sample))
	require.NoError(t, err)

	result, err := Seed(ctx, db, file, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, Result{Challenges: 2, Badges: 1}, result)

	listed, err := repos.Challenges.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	firstID := listed[0].ID

	file.Challenges[0].Title = "Morning Walk (updated)"
	file.Challenges[0].XPReward = 75
	_, err = Seed(ctx, db, file, logger.Nop())
	require.NoError(t, err)

	listed, err = repos.Challenges.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, firstID, listed[0].ID)
	assert.Equal(t, "Morning Walk (updated)", listed[0].Title)
	assert.Equal(t, int64(75), listed[0].XPReward)

	badges, err := repos.Badges.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, badges, 1)
}
