package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for verify requests and backend calls.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid_request"
	OutcomeRejected    = "backend_rejected"
	OutcomeUnreachable = "backend_unreachable"
	OutcomeTimeout     = "backend_timeout"
	OutcomeBadGateway  = "bad_gateway"
	OutcomeFault       = "gateway_fault"
	OutcomeCircuitOpen = "circuit_open"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	VerifyRequests *prometheus.CounterVec
	BackendLatency *prometheus.HistogramVec
	BackendCircuit prometheus.Gauge
	ForwardedBytes prometheus.Histogram
}

// New creates and registers the gateway metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VerifyRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "truthlens_verify_requests_total",
			Help: "Total number of verify requests, labeled by outcome",
		}, []string{"outcome"}),
		BackendLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "truthlens_backend_request_duration_seconds",
			Help:    "Duration of forwarded backend calls, labeled by outcome",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"outcome"}),
		BackendCircuit: factory.NewGauge(prometheus.GaugeOpts{
			Name: "truthlens_backend_circuit_open",
			Help: "1 when the backend circuit breaker is open",
		}),
		ForwardedBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "truthlens_forwarded_payload_bytes",
			Help:    "Size of multipart payloads forwarded to the backend",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}),
	}
}

// IncrementVerify counts one verify request by outcome.
func (m *Metrics) IncrementVerify(outcome string) {
	if m == nil {
		return
	}
	m.VerifyRequests.WithLabelValues(outcome).Inc()
}

// ObserveBackendCall records one backend call.
func (m *Metrics) ObserveBackendCall(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.BackendLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveForwardedBytes records the size of one outbound payload.
func (m *Metrics) ObserveForwardedBytes(n int) {
	if m == nil {
		return
	}
	m.ForwardedBytes.Observe(float64(n))
}

// SetCircuitOpen mirrors the breaker state.
func (m *Metrics) SetCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BackendCircuit.Set(1)
		return
	}
	m.BackendCircuit.Set(0)
}
