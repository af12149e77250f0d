package metrics

import (
	"net/http"
	"strconv"
	"time"

	"tourism-booking/internal/domain/payment"
	"tourism-booking/internal/usecase/commands"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "booking"

type Prometheus struct {
	gatherer prometheus.Gatherer

	reservations   *prometheus.CounterVec
	initiations    *prometheus.CounterVec
	reconciliation *prometheus.CounterVec
	anomalies      *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

var _ commands.Metrics = (*Prometheus)(nil)

// NewPrometheus registers every collector on reg; it panics on duplicate registration.
func NewPrometheus(reg *prometheus.Registry) *Prometheus {
	p := &Prometheus{
		gatherer: reg,
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reservation",
			Name:      "events_total",
			Help:      "Reservation allocator events segmented by event and reason.",
		}, []string{"event", "reason"}),
		initiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "initiations_total",
			Help:      "STK push initiations segmented by outcome.",
		}, []string{"outcome"}),
		reconciliation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "reconciliations_total",
			Help:      "Gateway outcomes applied to payments segmented by channel and resolution.",
		}, []string{"source", "resolution"}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "anomalies_total",
			Help:      "Outcomes that contradict recorded state or carry an unexpected amount.",
		}, []string{"source", "resolution"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for HTTP handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		p.reservations,
		p.initiations,
		p.reconciliation,
		p.anomalies,
		p.httpLatency,
	)
	return p
}

func (p *Prometheus) ReservationCreated() {
	p.reservations.WithLabelValues("created", "").Inc()
}

func (p *Prometheus) ReservationConflict() {
	p.reservations.WithLabelValues("conflict", "").Inc()
}

func (p *Prometheus) ReservationCancelled(reason string) {
	p.reservations.WithLabelValues("cancelled", reason).Inc()
}

func (p *Prometheus) PaymentInitiated(ok bool) {
	outcome := "accepted"
	if !ok {
		outcome = "failed"
	}
	p.initiations.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) PaymentReconciled(source string, resolution payment.Resolution) {
	p.reconciliation.WithLabelValues(source, resolution.String()).Inc()
	if resolution.IsAnomaly() {
		p.anomalies.WithLabelValues(source, resolution.String()).Inc()
	}
}

func (p *Prometheus) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	p.httpLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
