package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records call counters and latencies.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	status   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calls_total",
				Help:      "Total number of calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "call_duration_seconds",
				Help:      "Duration of calls from start to settlement",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calls_in_flight",
			Help:      "Number of calls currently in flight",
		}),
		status: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_status_total",
				Help:      "HTTP status codes of responses handed to the binding",
			},
			[]string{"code"},
		),
	}

	for _, c := range []prometheus.Collector{m.calls, m.duration, m.inFlight, m.status} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCallStart: func(ctx context.Context, e *domain.CallEvent) {
			m.inFlight.Inc()
		},
		OnResponse: func(ctx context.Context, e *domain.CallEvent) {
			m.status.WithLabelValues(strconv.Itoa(e.StatusCode)).Inc()
		},
		OnCallEnd: func(ctx context.Context, e *domain.CallEvent) {
			m.inFlight.Dec()
			m.calls.WithLabelValues(e.Operation, e.Kind.String()).Inc()
			m.duration.WithLabelValues(e.Operation).Observe(e.Duration.Seconds())
		},
	}
}
