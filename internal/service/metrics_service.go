package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the enrollment
// engine, on its own registry to keep default-registry collectors out.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	enrollTotal       *prometheus.CounterVec
	dropTotal         *prometheus.CounterVec
	registrationTotal *prometheus.CounterVec
	provisionTotal    *prometheus.CounterVec
}

// NewMetricsService registers the engine's collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	enrollTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollments_total",
		Help: "Enrollment attempts partitioned by outcome",
	}, []string{"outcome"})

	dropTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drops_total",
		Help: "Per-slug drop outcomes",
	}, []string{"outcome"})

	registrationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registrations_total",
		Help: "Registration attempts partitioned by outcome",
	}, []string{"outcome"})

	provisionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provisioning_calls_total",
		Help: "Platform ensure-operations partitioned by kind and result",
	}, []string{"kind", "result"})

	registry.MustRegister(enrollTotal, dropTotal, registrationTotal, provisionTotal)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		enrollTotal:       enrollTotal,
		dropTotal:         dropTotal,
		registrationTotal: registrationTotal,
		provisionTotal:    provisionTotal,
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveEnroll counts one enrollment attempt.
func (s *MetricsService) ObserveEnroll(outcome string) {
	s.enrollTotal.WithLabelValues(outcome).Inc()
}

// ObserveDrop counts one per-slug drop outcome.
func (s *MetricsService) ObserveDrop(outcome string) {
	s.dropTotal.WithLabelValues(outcome).Inc()
}

// ObserveRegistration counts one registration attempt.
func (s *MetricsService) ObserveRegistration(outcome string) {
	s.registrationTotal.WithLabelValues(outcome).Inc()
}

// ObserveProvision counts one platform ensure-operation.
func (s *MetricsService) ObserveProvision(kind, result string) {
	s.provisionTotal.WithLabelValues(kind, result).Inc()
}
