package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "contract_analyzer"

	runsTotal        = "runs_total"
	runsGatedTotal   = "runs_gated_total"
	runsInFlight     = "runs_in_flight"
	stageDuration    = "stage_duration_seconds"
	llmCallsTotal    = "llm_calls_total"
	redactionsTotal  = "pii_redactions_total"
	queueRejectTotal = "queue_rejected_total"

	// Labels
	statusLabel   = "status"
	stageLabel    = "stage"
	outcomeLabel  = "outcome"
	categoryLabel = "category"
	reasonLabel   = "reason"
)

// LLM call outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
)

var runsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      runsTotal,
		Help:      "number of analysis runs by final status",
	},
	[]string{statusLabel},
)

var runsGatedMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      runsGatedTotal,
		Help:      "number of runs stopped by a quality gate before any LLM call",
	},
)

var runsInFlightMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      runsInFlight,
		Help:      "number of runs currently executing on a worker",
	},
)

var stageDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      stageDuration,
		Help:      "time spent in each pipeline stage",
		Buckets:   []float64{0.05, 0.25, 1, 5, 15, 30, 60, 120, 180, 300},
	},
	[]string{stageLabel},
)

var llmCallsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      llmCallsTotal,
		Help:      "number of LLM stage calls by outcome or error class",
	},
	[]string{stageLabel, outcomeLabel},
)

var redactionsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      redactionsTotal,
		Help:      "number of redacted PII items by category",
	},
	[]string{categoryLabel},
)

var queueRejectedMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      queueRejectTotal,
		Help:      "number of jobs refused by the run queue",
	},
	[]string{reasonLabel},
)

func ObserveRunFinished(status string) {
	runsTotalMetric.With(prometheus.Labels{statusLabel: status}).Inc()
}

func ObserveRunGated() {
	runsGatedMetric.Inc()
}

func RunStarted() {
	runsInFlightMetric.Inc()
}

func RunDone() {
	runsInFlightMetric.Dec()
}

func ObserveStage(stage string, d time.Duration) {
	stageDurationMetric.With(prometheus.Labels{stageLabel: stage}).Observe(d.Seconds())
}

// ObserveLLMCall records one stage call; outcome is OutcomeOK or an error class.
func ObserveLLMCall(stage, outcome string) {
	llmCallsMetric.With(prometheus.Labels{stageLabel: stage, outcomeLabel: outcome}).Inc()
}

// ObserveRedactions adds the non-zero counts of a redaction summary.
func ObserveRedactions(counts map[string]int) {
	for category, n := range counts {
		if n > 0 {
			redactionsMetric.With(prometheus.Labels{categoryLabel: category}).Add(float64(n))
		}
	}
}

func ObserveQueueRejected(reason string) {
	queueRejectedMetric.With(prometheus.Labels{reasonLabel: reason}).Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(runsTotalMetric)
	prometheus.MustRegister(runsGatedMetric)
	prometheus.MustRegister(runsInFlightMetric)
	prometheus.MustRegister(stageDurationMetric)
	prometheus.MustRegister(llmCallsMetric)
	prometheus.MustRegister(redactionsMetric)
	prometheus.MustRegister(queueRejectedMetric)
}
