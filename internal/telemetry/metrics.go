package telemetry

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samvad-hq/samvad-debts-client/pkg/obligations"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// Metrics records every obligations call as Prometheus series.
type Metrics struct {
	gatherer prometheus.Gatherer
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the client collectors on reg. A nil reg uses a fresh registry.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debts_client_requests_total",
			Help: "Total number of debts API calls by operation and outcome",
		},
		[]string{"op", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "debts_client_request_duration_seconds",
			Help:    "Debts API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	if err := reg.Register(requests); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		requests = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(duration); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		duration = are.ExistingCollector.(*prometheus.HistogramVec)
	}

	return &Metrics{gatherer: reg, requests: requests, duration: duration}, nil
}

// ObserveCall implements obligations.Observer.
func (m *Metrics) ObserveCall(call obligations.Call) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if call.Err != nil {
		outcome = outcomeError
	}
	m.requests.WithLabelValues(call.Op, outcome).Inc()
	m.duration.WithLabelValues(call.Op).Observe(call.Elapsed.Seconds())
}

// WriteTextfile dumps the gathered metrics in text exposition format, suitable
// for the node_exporter textfile collector. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.gatherer)
}
