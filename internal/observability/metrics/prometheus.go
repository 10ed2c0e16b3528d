// Package metrics provides Prometheus metrics for the clinic pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	DiagnosesIngested     prometheus.Counter
	DiagnosesFailed       prometheus.Counter
	IngestDuration        prometheus.Histogram
	ProviderDuration      prometheus.Histogram
	JSONRecoveries        prometheus.Counter
	DrugsMatched          *prometheus.CounterVec
	DispensingsRecorded   prometheus.Counter
	DispensingsFailed     prometheus.Counter
	KafkaMessagesProduced prometheus.Counter
	KafkaMessagesConsumed prometheus.Counter
	OutboxPending         prometheus.Gauge
	CircuitBreakerState   *prometheus.GaugeVec
}

// New creates and registers all metrics.
func New() *Metrics {
	m := &Metrics{
		DiagnosesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diagnoses_ingested_total",
			Help: "Total diagnoses successfully ingested",
		}),
		DiagnosesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diagnoses_failed_total",
			Help: "Total diagnosis ingestions that failed",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "diagnosis_ingest_duration_seconds",
			Help:    "Envelope-to-canonical ingestion duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		ProviderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "External diagnosis provider round-trip duration",
			Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 90, 120},
		}),
		JSONRecoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "json_recoveries_total",
			Help: "Truncated provider responses successfully repaired",
		}),
		DrugsMatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drugs_matched_total",
			Help: "Prescribed drugs by reconciliation tier",
		}, []string{"tier"}),
		DispensingsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispensings_recorded_total",
			Help: "Total dispensing records written",
		}),
		DispensingsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispensings_failed_total",
			Help: "Dispensing records that failed to persist",
		}),
		KafkaMessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kafka_messages_produced_total",
			Help: "Total Kafka messages produced",
		}),
		KafkaMessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Total Kafka messages consumed",
		}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Pending outbox entries",
		}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
	}

	prometheus.MustRegister(
		m.DiagnosesIngested,
		m.DiagnosesFailed,
		m.IngestDuration,
		m.ProviderDuration,
		m.JSONRecoveries,
		m.DrugsMatched,
		m.DispensingsRecorded,
		m.DispensingsFailed,
		m.KafkaMessagesProduced,
		m.KafkaMessagesConsumed,
		m.OutboxPending,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
