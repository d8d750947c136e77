// Command reclaim serves the habit challenge API: enrollment, daily check-ins,
// streaks, XP and levels, badges, the leaderboard and the habit coach.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dakshkumar96/Reclaim/internal/advisor"
	"github.com/dakshkumar96/Reclaim/internal/announcer"
	"github.com/dakshkumar96/Reclaim/internal/api/handlers"
	"github.com/dakshkumar96/Reclaim/internal/api/middleware"
	"github.com/dakshkumar96/Reclaim/internal/cache"
	"github.com/dakshkumar96/Reclaim/internal/catalog"
	"github.com/dakshkumar96/Reclaim/internal/clock"
	"github.com/dakshkumar96/Reclaim/internal/config"
	"github.com/dakshkumar96/Reclaim/internal/repository"
	"github.com/dakshkumar96/Reclaim/internal/service/badges"
	"github.com/dakshkumar96/Reclaim/internal/service/coach"
	"github.com/dakshkumar96/Reclaim/internal/service/completion"
	"github.com/dakshkumar96/Reclaim/internal/service/leaderboard"
	"github.com/dakshkumar96/Reclaim/internal/service/progress"
	"github.com/dakshkumar96/Reclaim/internal/service/scheduler"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("database", cfg.Database.Driver).
		Msg("Starting Reclaim")

	db, err := repository.NewDB(&cfg.Database, log.Named("database"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(log); err != nil {
			return err
		}
	}

	// Redis is optional: without it the leaderboard is built per request
	// and the coach keeps no history.
	redisCache, err := cache.New(&cfg.Database.Redis, log.Named("cache"))
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, caching disabled")
	} else {
		defer func() { _ = redisCache.Close() }()
	}

	if cfg.Catalog.SeedOnStart {
		file, err := catalog.Load(cfg.Catalog.Path)
		if err != nil {
			return err
		}
		if _, err := catalog.Seed(ctx, db, file, log.Named("catalog")); err != nil {
			return err
		}
	}

	calendar, err := clock.CalendarFor(cfg.Progress.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load progress timezone: %w", err)
	}

	repos := repository.NewRepositories(db)
	levels := completion.NewLevelPolicy(cfg.Rewards.XPPerLevel)
	clk := clock.Real{}

	badgeService := badges.NewService(repos, clk, log.Named("badges"))

	var levelAnnouncer progress.LevelAnnouncer
	if cfg.Announcer.Enabled {
		ann := announcer.NewClient(&cfg.Announcer, log.Named("announcer"))
		defer ann.Close()
		badgeService.SetAnnouncer(ann)
		levelAnnouncer = ann
	}

	evaluator := completion.NewEvaluator(db, levels, clk, log.Named("completion"))
	progressService := progress.NewService(db, evaluator, badgeService, progress.Options{
		Levels:    levels,
		DailyXP:   cfg.Progress.DailyCheckinXP,
		Calendar:  calendar,
		Clock:     clk,
		Announcer: levelAnnouncer,
	}, log.Named("progress"))
	leaderboardService := leaderboard.NewService(repos, redisCache, leaderboard.Options{
		Size:     cfg.Leaderboard.Size,
		CacheTTL: cfg.Leaderboard.CacheTTL,
		Levels:   levels,
	}, log.Named("leaderboard"))

	var coachService *coach.Service
	if cfg.Coach.Enabled {
		var history coach.HistoryStore
		if redisCache != nil {
			history = redisCache
		}
		coachService = coach.NewService(
			advisor.NewClient(&cfg.Coach, log.Named("advisor")),
			history,
			repos.Users,
			progressService,
			coach.Options{HistorySize: cfg.Coach.HistorySize, HistoryTTL: cfg.Coach.HistoryTTL, Clock: clk},
			log.Named("coach"),
		)
	}

	jobs := scheduler.NewService(&cfg.Scheduler, badgeService, leaderboardService, log.Named("scheduler"))
	if err := jobs.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer jobs.Stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	health := map[string]handlers.HealthChecker{"database": db}
	if redisCache != nil {
		health["redis"] = redisCache
	}

	coachLimiter := middleware.NewRateLimiter(cfg.Coach.RateLimit)
	go coachLimiter.Run(ctx)

	handler := handlers.NewHandler(repos, progressService, badgeService, leaderboardService, coachService, log.Named("api"))
	router, err := handlers.NewRouter(handler, handlers.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        cfg.Metrics.Prometheus,
		Auth:           middleware.Auth(&cfg.Auth, repos.Users, log.Named("auth")),
		CoachLimit:     coachLimiter.Middleware(),
		Health:         health,
	}, log.Named("http"))
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	log.Info().Msg("Reclaim stopped")
	return nil
}
