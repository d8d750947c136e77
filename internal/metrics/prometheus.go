// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the progress and rewards engine.
var (
	// Counters.
	CheckInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reclaim_checkins_total",
			Help: "Total number of check-in attempts by outcome",
		},
		[]string{"outcome"},
	)

	EnrollmentsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reclaim_enrollments_started_total",
			Help: "Total number of challenge enrollments by outcome",
		},
		[]string{"outcome"},
	)

	ChallengesCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reclaim_challenges_completed_total",
			Help: "Total number of challenges completed",
		},
		[]string{"category"},
	)

	XPAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reclaim_xp_awarded_total",
			Help: "Total XP granted to users",
		},
		[]string{"source"},
	)

	LevelUpsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reclaim_level_ups_total",
			Help: "Total number of level increases",
		},
	)

	StoreRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reclaim_store_retries_total",
			Help: "Operations retried after a store conflict",
		},
		[]string{"operation"},
	)

	CoachRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reclaim_coach_requests_total",
			Help: "Advice requests by outcome",
		},
		[]string{"outcome"},
	)

	AnnouncementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reclaim_announcements_total",
			Help: "Webhook announcements by outcome",
		},
		[]string{"outcome"},
	)

	// Histograms.
	StreakLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reclaim_streak_length_days",
			Help:    "Current streak length after a successful check-in",
			Buckets: []float64{1, 2, 3, 5, 7, 14, 21, 30, 60, 100},
		},
	)

	CoachLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reclaim_coach_latency_seconds",
			Help:    "Time taken by the advice provider",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to ~32s
		},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reclaim_scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"job", "status"},
	)

	SchedulerLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reclaim_scheduler_last_run_timestamp",
			Help: "Unix timestamp of last scheduler run",
		},
		[]string{"job"},
	)

	// Badge gamification metrics.
	BadgesAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reclaim_badges_awarded_total",
			Help: "Total number of badges awarded",
		},
		[]string{"badge_name", "category"},
	)

	ActiveBadgeHolders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reclaim_active_badge_holders",
			Help: "Current number of users holding each badge",
		},
		[]string{"badge_name"},
	)

	BadgeEvaluationJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reclaim_badge_evaluation_jobs_run_total",
			Help: "Total badge evaluation sweep executions",
		},
		[]string{"status"},
	)

	BadgeEvaluationDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reclaim_badge_evaluation_duration_seconds",
			Help:    "Time taken to execute a badge evaluation sweep",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~200s
		},
	)

	// HTTP.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reclaim_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reclaim_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordCheckIn records a check-in attempt: "success", "duplicate", "not_enrolled" or "error".
func RecordCheckIn(outcome string) {
	CheckInsTotal.WithLabelValues(outcome).Inc()
}

// RecordEnrollmentStarted records an enrollment attempt.
func RecordEnrollmentStarted(outcome string) {
	EnrollmentsStartedTotal.WithLabelValues(outcome).Inc()
}

// RecordChallengeCompleted records a completed challenge.
func RecordChallengeCompleted(category string) {
	ChallengesCompletedTotal.WithLabelValues(category).Inc()
}

// RecordXPAwarded adds granted XP.
func RecordXPAwarded(source string, amount int64) {
	if amount <= 0 {
		return
	}
	XPAwardedTotal.WithLabelValues(source).Add(float64(amount))
}

// RecordLevelUp records a level increase.
func RecordLevelUp() {
	LevelUpsTotal.Inc()
}

// RecordStoreRetry records an operation retried after a store conflict.
func RecordStoreRetry(operation string) {
	StoreRetriesTotal.WithLabelValues(operation).Inc()
}

// RecordCoachRequest records an advice request outcome.
func RecordCoachRequest(outcome string) {
	CoachRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordAnnouncement records a webhook announcement: "sent", "failed" or "dropped".
func RecordAnnouncement(outcome string) {
	AnnouncementsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStreakLength observes the streak after a check-in.
func ObserveStreakLength(days int) {
	StreakLength.Observe(float64(days))
}

// ObserveCoachLatency observes advice provider latency.
func ObserveCoachLatency(seconds float64) {
	CoachLatencySeconds.Observe(seconds)
}

// RecordSchedulerJobRun records a scheduler job execution.
func RecordSchedulerJobRun(job, status string) {
	SchedulerJobsRunTotal.WithLabelValues(job, status).Inc()
}

// SetSchedulerLastRun sets the timestamp of the last scheduler run.
func SetSchedulerLastRun(job string) {
	SchedulerLastRunTimestamp.WithLabelValues(job).SetToCurrentTime()
}

// RecordBadgeAwarded records a badge award event.
func RecordBadgeAwarded(badgeName, category string) {
	BadgesAwardedTotal.WithLabelValues(badgeName, category).Inc()
}

// SetActiveBadgeHolders sets the number of holders for a badge.
func SetActiveBadgeHolders(badgeName string, count int) {
	ActiveBadgeHolders.WithLabelValues(badgeName).Set(float64(count))
}

// RecordBadgeEvaluationRun records a badge evaluation job execution.
func RecordBadgeEvaluationRun(status string) {
	BadgeEvaluationJobsRunTotal.WithLabelValues(status).Inc()
}

// ObserveBadgeEvaluationDuration observes the duration of a badge evaluation job.
func ObserveBadgeEvaluationDuration(seconds float64) {
	BadgeEvaluationDurationSeconds.Observe(seconds)
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route, status string, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(seconds)
}
