// Package scheduler runs the periodic badge sweep and leaderboard warmup.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dakshkumar96/Reclaim/internal/config"
	prommetrics "github.com/dakshkumar96/Reclaim/internal/metrics"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

// Job names used in logs and metrics.
const (
	JobBadgeEvaluation   = "badge_evaluation"
	JobLeaderboardWarmup = "leaderboard_warmup"
)

// jobTimeout bounds a single run.
const jobTimeout = 10 * time.Minute

// BadgeSweeper awards badges missed by the request path.
type BadgeSweeper interface {
	EvaluateAllBadges(ctx context.Context) (int, error)
}

// LeaderboardWarmer rebuilds the cached leaderboard.
type LeaderboardWarmer interface {
	Warm(ctx context.Context) error
}

// Service handles background job scheduling.
type Service struct {
	config      *config.SchedulerConfig
	badges      BadgeSweeper
	leaderboard LeaderboardWarmer
	log         *logger.Logger
	cron        *cron.Cron
}

// NewService creates a new scheduler service. Either job dependency may be nil.
func NewService(cfg *config.SchedulerConfig, badges BadgeSweeper, leaderboard LeaderboardWarmer, log *logger.Logger) *Service {
	return &Service{
		config:      cfg,
		badges:      badges,
		leaderboard: leaderboard,
		log:         log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Timezone, err)
	}

	// Overlapping runs of the same job are skipped.
	s.cron = cron.New(
		cron.WithLocation(location),
		cron.WithChain(cron.Recover(cronLogger{s.log}), cron.SkipIfStillRunning(cronLogger{s.log})),
	)

	if s.config.BadgeEvaluationTime != "" && s.badges != nil {
		if _, err := s.cron.AddFunc(s.config.BadgeEvaluationTime, s.runBadgeEvaluation); err != nil {
			return fmt.Errorf("failed to register badge evaluation job: %w", err)
		}
		s.log.Info().
			Str("schedule", s.config.BadgeEvaluationTime).
			Msg("Badge evaluation job registered")
	}

	if s.config.LeaderboardWarmupTime != "" && s.leaderboard != nil {
		if _, err := s.cron.AddFunc(s.config.LeaderboardWarmupTime, s.runLeaderboardWarmup); err != nil {
			return fmt.Errorf("failed to register leaderboard warmup job: %w", err)
		}
		s.log.Info().
			Str("schedule", s.config.LeaderboardWarmupTime).
			Msg("Leaderboard warmup job registered")
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("timezone", s.config.Timezone).
		Int("jobs", len(entries)).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// runBadgeEvaluation executes the badge evaluation sweep.
func (s *Service) runBadgeEvaluation() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		prommetrics.ObserveBadgeEvaluationDuration(time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun(JobBadgeEvaluation)
	}()

	s.log.Info().Msg("Running badge evaluation job")

	awardsCount, err := s.badges.EvaluateAllBadges(ctx)
	if err != nil {
		s.log.Error().
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("Badge evaluation job failed")
		prommetrics.RecordBadgeEvaluationRun("error")
		prommetrics.RecordSchedulerJobRun(JobBadgeEvaluation, "error")
		return
	}

	prommetrics.RecordBadgeEvaluationRun("success")
	prommetrics.RecordSchedulerJobRun(JobBadgeEvaluation, "success")

	s.log.Info().
		Int("badges_awarded", awardsCount).
		Dur("duration", time.Since(start)).
		Msg("Badge evaluation job completed successfully")
}

// runLeaderboardWarmup rebuilds the cached leaderboard.
func (s *Service) runLeaderboardWarmup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	defer prommetrics.SetSchedulerLastRun(JobLeaderboardWarmup)

	if err := s.leaderboard.Warm(ctx); err != nil {
		s.log.Error().Err(err).Msg("Leaderboard warmup failed")
		prommetrics.RecordSchedulerJobRun(JobLeaderboardWarmup, "error")
		return
	}
	prommetrics.RecordSchedulerJobRun(JobLeaderboardWarmup, "success")
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
