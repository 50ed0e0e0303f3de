// SPDX-License-Identifier: MIT
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reeldoc_sessions_started_total",
		Help: "Total number of pipeline runs started",
	})

	sessionsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reeldoc_sessions_finished_total",
		Help: "Total number of pipeline runs finished by terminal result",
	}, []string{"result"}) // result=completed|failed|cancelled

	stageDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reeldoc_stage_duration_seconds",
		Help:    "Wall-clock duration per pipeline stage",
		Buckets: prometheus.ExponentialBuckets(0.1, 2.0, 14), // 100ms to ~13min
	}, []string{"stage"})

	stageFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reeldoc_stage_failures_total",
		Help: "Stage failures by failure kind",
	}, []string{"stage", "kind"})

	progressUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reeldoc_progress_updates_total",
		Help: "Total number of session progress updates applied",
	})

	sweeperReapedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reeldoc_sweeper_reaped_total",
		Help: "Sessions reaped by the lifecycle sweeper",
	}, []string{"reason"}) // reason=stale|retention
)

func IncSessionStarted() { sessionsStartedTotal.Inc() }

func IncSessionFinished(result string) {
	sessionsFinishedTotal.WithLabelValues(result).Inc()
}

func ObserveStageDuration(stage string, d time.Duration) {
	stageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

func IncStageFailure(stage, kind string) {
	stageFailuresTotal.WithLabelValues(stage, kind).Inc()
}

func IncProgressUpdate() { progressUpdatesTotal.Inc() }

func IncSweeperReaped(reason string) {
	sweeperReapedTotal.WithLabelValues(reason).Inc()
}
