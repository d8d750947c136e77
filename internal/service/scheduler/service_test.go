package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dakshkumar96/Reclaim/internal/config"
	prommetrics "github.com/dakshkumar96/Reclaim/internal/metrics"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

type fakeSweeper struct {
	calls int32
	err   error
}

func (f *fakeSweeper) EvaluateAllBadges(context.Context) (int, error) {
	atomic.AddInt32(&f.calls, 1)
	return 2, f.err
}

type fakeWarmer struct {
	calls int32
	err   error
}

func (f *fakeWarmer) Warm(context.Context) error {
	atomic.AddInt32(&f.calls, 1)
	return f.err
}

func enabledConfig() *config.SchedulerConfig {
	return &config.SchedulerConfig{
		Enabled:               true,
		Timezone:              "UTC",
		BadgeEvaluationTime:   "0 2 * * *",
		LeaderboardWarmupTime: "*/10 * * * *",
	}
}

func TestStart_Disabled(t *testing.T) {
	s := NewService(&config.SchedulerConfig{Enabled: false}, &fakeSweeper{}, &fakeWarmer{}, logger.Nop())

	require.NoError(t, s.Start())
	assert.Nil(t, s.cron)
	s.Stop()
}

func TestStart_RegistersJobs(t *testing.T) {
	s := NewService(enabledConfig(), &fakeSweeper{}, &fakeWarmer{}, logger.Nop())

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Len(t, s.cron.Entries(), 2)
}

func TestStart_SkipsMissingDependencies(t *testing.T) {
	s := NewService(enabledConfig(), &fakeSweeper{}, nil, logger.Nop())

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Len(t, s.cron.Entries(), 1)
}

func TestStart_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.SchedulerConfig)
	}{
		{"bad timezone", func(c *config.SchedulerConfig) { c.Timezone = "Mars/Olympus" }},
		{"bad badge schedule", func(c *config.SchedulerConfig) { c.BadgeEvaluationTime = "every day" }},
		{"bad warmup schedule", func(c *config.SchedulerConfig) { c.LeaderboardWarmupTime = "61 * * * *" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := enabledConfig()
			tt.mutate(cfg)
			s := NewService(cfg, &fakeSweeper{}, &fakeWarmer{}, logger.Nop())

			assert.Error(t, s.Start())
		})
	}
}

func TestRunBadgeEvaluation(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := NewService(enabledConfig(), sweeper, nil, logger.Nop())

	before := testutil.ToFloat64(prommetrics.BadgeEvaluationJobsRunTotal.WithLabelValues("success"))
	s.runBadgeEvaluation()
	after := testutil.ToFloat64(prommetrics.BadgeEvaluationJobsRunTotal.WithLabelValues("success"))

	assert.Equal(t, int32(1), atomic.LoadInt32(&sweeper.calls))
	assert.Equal(t, before+1, after)
}

func TestRunBadgeEvaluation_Error(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("db down")}
	s := NewService(enabledConfig(), sweeper, nil, logger.Nop())

	before := testutil.ToFloat64(prommetrics.SchedulerJobsRunTotal.WithLabelValues(JobBadgeEvaluation, "error"))
	s.runBadgeEvaluation()
	after := testutil.ToFloat64(prommetrics.SchedulerJobsRunTotal.WithLabelValues(JobBadgeEvaluation, "error"))

	assert.Equal(t, before+1, after)
}

func TestRunLeaderboardWarmup(t *testing.T) {
	warmer := &fakeWarmer{}
	s := NewService(enabledConfig(), nil, warmer, logger.Nop())

	before := testutil.ToFloat64(prommetrics.SchedulerJobsRunTotal.WithLabelValues(JobLeaderboardWarmup, "success"))
	s.runLeaderboardWarmup()
	after := testutil.ToFloat64(prommetrics.SchedulerJobsRunTotal.WithLabelValues(JobLeaderboardWarmup, "success"))

	assert.Equal(t, int32(1), atomic.LoadInt32(&warmer.calls))
	assert.Equal(t, before+1, after)

	warmer.err = errors.New("redis down")
	s.runLeaderboardWarmup()
	assert.Equal(t, float64(1), testutil.ToFloat64(prommetrics.SchedulerJobsRunTotal.WithLabelValues(JobLeaderboardWarmup, "error")))
}
