package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_runs_started_total",
			Help: "Total number of triage runs started",
		},
	)

	RunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_runs_completed_total",
			Help: "Total number of triage runs completed, by category",
		},
		[]string{"category"},
	)

	RunsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_runs_failed_total",
			Help: "Total number of triage runs failed, by error code",
		},
		[]string{"error_code"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "triage_stage_duration_seconds",
			Help: "Duration of pipeline stages in seconds",
		},
		[]string{"stage"},
	)

	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_model_calls_total",
			Help: "Total number of model invocations, by prompt and status",
		},
		[]string{"prompt", "status"},
	)

	TicketsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_tickets_created_total",
			Help: "Total number of tickets persisted, by kind",
		},
		[]string{"kind"},
	)
)
