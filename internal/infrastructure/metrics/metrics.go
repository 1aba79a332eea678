package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/weightandsee/core/internal/domain/entities"
)

const namespace = "weightandsee"

// StoreMetrics implements ports.StoreMetrics with prometheus collectors.
type StoreMetrics struct {
	operations   *prometheus.CounterVec
	durations    *prometheus.HistogramVec
	loads        *prometheus.CounterVec
	saveFailures prometheus.Counter
	exercises    prometheus.Gauge
}

// NewStoreMetrics creates the collectors and registers them on reg.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by name and result.",
		}, []string{"operation", "result"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation duration in seconds, including the file write.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "loads_total",
			Help:      "Document loads by outcome.",
		}, []string{"outcome"}),
		saveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "save_failures_total",
			Help:      "Failed writes of the primary document.",
		}),
		exercises: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "exercises",
			Help:      "Number of exercises in the document.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.operations, m.durations, m.loads, m.saveFailures, m.exercises)
	}
	return m
}

// ObserveOperation counts an operation and records its duration.
func (m *StoreMetrics) ObserveOperation(op string, err error, duration time.Duration) {
	m.operations.WithLabelValues(op, resultLabel(err)).Inc()
	m.durations.WithLabelValues(op).Observe(duration.Seconds())
}

// ObserveLoad counts a load by outcome.
func (m *StoreMetrics) ObserveLoad(outcome entities.LoadOutcome) {
	m.loads.WithLabelValues(string(outcome)).Inc()
}

// ObserveSaveFailure counts a failed primary write.
func (m *StoreMetrics) ObserveSaveFailure() {
	m.saveFailures.Inc()
}

// SetExerciseCount updates the exercise gauge.
func (m *StoreMetrics) SetExerciseCount(n int) {
	m.exercises.Set(float64(n))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, entities.ErrExerciseNotFound):
		return "not_found"
	case errors.Is(err, entities.ErrHistoryIndexOutOfRange):
		return "out_of_range"
	case errors.Is(err, entities.ErrInvalidExerciseName), errors.Is(err, entities.ErrInvalidMeasurement):
		return "invalid"
	case errors.Is(err, entities.ErrSaveFailed):
		return "save_failed"
	default:
		return "error"
	}
}
