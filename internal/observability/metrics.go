package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	decisionPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "advisor_service",
		Subsystem: "persistence",
		Name:      "last_decision_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent decision persisted to Postgres.",
	})
	decisionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor_service",
		Subsystem: "engine",
		Name:      "decisions_total",
		Help:      "Count of daily decisions by synthesized action.",
	}, []string{"action"})
	integrityCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor_service",
		Subsystem: "engine",
		Name:      "integrity_verdicts_total",
		Help:      "Count of integrity verdicts by status.",
	}, []string{"status"})
	simulationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "advisor_service",
		Subsystem: "engine",
		Name:      "simulation_duration_seconds",
		Help:      "Wall-clock duration of Monte Carlo simulation runs.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(decisionPersistGauge, decisionCounter, integrityCounter, simulationDuration)
}

// RecordDecisionPersisted updates the persistence watermark gauge.
func RecordDecisionPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	decisionPersistGauge.Set(float64(ts.Unix()))
}

// RecordDecision counts a synthesized decision by action.
func RecordDecision(action string) {
	decisionCounter.WithLabelValues(action).Inc()
}

// RecordIntegrityVerdict counts an integrity verdict by status.
func RecordIntegrityVerdict(status string) {
	integrityCounter.WithLabelValues(status).Inc()
}

// ObserveSimulationDuration records one simulation run.
func ObserveSimulationDuration(d time.Duration) {
	simulationDuration.Observe(d.Seconds())
}
