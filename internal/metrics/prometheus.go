// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the engagement engine.
var (
	// Counters.
	LikesToggledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "likes_toggled_total",
			Help: "Total number of like toggles by resulting state",
		},
		[]string{"target_kind", "result"},
	)

	PostsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "posts_created_total",
			Help: "Total number of posts created",
		},
	)

	CommentsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comments_created_total",
			Help: "Total number of comments created",
		},
	)

	PointsEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_events_total",
			Help: "Total number of points ledger appends by reason",
		},
		[]string{"reason"},
	)

	BadgesAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_awarded_total",
			Help: "Total number of badges awarded",
		},
		[]string{"badge"},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache lookups by cache name and outcome",
		},
		[]string{"cache", "outcome"},
	)

	// Gauges.
	ActiveBadgeHolders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_badge_holders",
			Help: "Current number of members holding each badge",
		},
		[]string{"badge"},
	)

	LeaderboardSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leaderboard_size",
			Help: "Number of members on the leaderboard",
		},
	)

	SchedulerJobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Scheduled job executions by job name and result",
		},
		[]string{"job", "result"},
	)

	// Histograms.
	SchedulerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Duration of scheduled job executions",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"job"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)
)

// RecordLikeToggle records a like toggle outcome.
func RecordLikeToggle(targetKind string, liked bool) {
	result := "unliked"
	if liked {
		result = "liked"
	}
	LikesToggledTotal.WithLabelValues(targetKind, result).Inc()
}

// RecordPointsEvent records a ledger append.
func RecordPointsEvent(reason string) {
	PointsEventsTotal.WithLabelValues(reason).Inc()
}

// RecordBadgeAwarded records a badge award.
func RecordBadgeAwarded(badgeName string) {
	BadgesAwardedTotal.WithLabelValues(badgeName).Inc()
}

// SetActiveBadgeHolders updates the holder gauge for one badge.
func SetActiveBadgeHolders(badgeName string, count int) {
	ActiveBadgeHolders.WithLabelValues(badgeName).Set(float64(count))
}

// RecordSchedulerJobRun records the outcome of a scheduled job execution.
func RecordSchedulerJobRun(job string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	SchedulerJobRunsTotal.WithLabelValues(job, result).Inc()
}

// ObserveSchedulerJobDuration records how long a scheduled job took.
func ObserveSchedulerJobDuration(job string, seconds float64) {
	SchedulerJobDuration.WithLabelValues(job).Observe(seconds)
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(cacheName string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	CacheRequestsTotal.WithLabelValues(cacheName, outcome).Inc()
}
