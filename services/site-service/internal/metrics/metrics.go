package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the site-service counters and histograms.
type Metrics struct {
	gatherer          prometheus.Gatherer
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
	bookingTransition *prometheus.CounterVec
	appointments      *prometheus.CounterVec
	outboxPublished   *prometheus.CounterVec
	emailsSent        *prometheus.CounterVec
}

// New registers on reg; a nil reg uses a fresh registry so repeated calls in
// tests do not collide.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "site",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status",
		}, []string{"method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "site",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		bookingTransition: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "site",
			Subsystem: "booking",
			Name:      "transitions_total",
			Help:      "Booking session state transitions",
		}, []string{"mode", "from", "to"}),
		appointments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "site",
			Subsystem: "appointments",
			Name:      "writes_total",
			Help:      "Appointment writes by operation",
		}, []string{"operation"}),
		outboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "site",
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox events published to Kafka",
		}, []string{"event_type"}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "site",
			Subsystem: "email",
			Name:      "sent_total",
			Help:      "Outbound emails by kind and result",
		}, []string{"kind", "result"}),
	}
	reg.MustRegister(m.httpRequests, m.httpLatency, m.bookingTransition, m.appointments, m.outboxPublished, m.emailsSent)
	return m
}

// ObserveRequest matches httpx.RequestObserver.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveTransition(mode, from, to string) {
	if m == nil {
		return
	}
	m.bookingTransition.WithLabelValues(mode, from, to).Inc()
}

func (m *Metrics) ObserveAppointmentWrite(operation string) {
	if m == nil {
		return
	}
	m.appointments.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObservePublished(eventType string) {
	if m == nil {
		return
	}
	m.outboxPublished.WithLabelValues(eventType).Inc()
}

func (m *Metrics) ObserveEmail(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.emailsSent.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
