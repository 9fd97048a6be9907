package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	WorkflowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scout",
			Name:      "workflows_total",
			Help:      "Total number of finished workflows by terminal status",
		},
		[]string{"status"},
	)

	WorkflowDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "scout",
			Name:      "workflow_duration_seconds",
			Help:      "End-to-end workflow wall-clock duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scout",
			Name:      "stage_duration_seconds",
			Help:      "Per-stage duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	AdjudicationDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scout",
			Name:      "adjudication_drops_total",
			Help:      "Candidates dropped because their scoring call failed twice",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(WorkflowsTotal)
	prometheus.MustRegister(WorkflowDuration)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(AdjudicationDropsTotal)
	pipelineMetricsRegistered = true
}
