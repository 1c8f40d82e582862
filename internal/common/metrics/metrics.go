// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysisRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_runs_total",
			Help: "Total number of analytics runs by action and status",
		},
		[]string{"action", "status"},
	)

	AnalysisRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "analytics_run_duration_seconds",
			Help: "Duration of a full analytics run in seconds",
		},
		[]string{"action"},
	)

	RecordsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_records_scored_total",
			Help: "Number of records scored per engine",
		},
		[]string{"engine"},
	)

	SinkWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_sink_writes_total",
			Help: "Result sink writes by sink and status",
		},
		[]string{"sink", "status"},
	)

	WritebackUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_writeback_updates_total",
			Help: "CRM writeback record updates by object and status",
		},
		[]string{"object", "status"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_notifications_sent_total",
			Help: "Alerts dispatched by channel and status",
		},
		[]string{"channel", "status"},
	)
)
