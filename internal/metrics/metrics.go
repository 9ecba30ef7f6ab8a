package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one process. Each instance owns its registry so tests can
// create as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	ordersPlaced    prometheus.Counter
	placeFailures   *prometheus.CounterVec
	statusUpdates   *prometheus.CounterVec
	eventsProjected *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Orders committed by PlaceOrder",
		}),
		placeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_placement_failures_total",
			Help: "Rejected or failed order placements by error kind",
		}, []string{"kind"}),
		statusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_updates_total",
			Help: "Successful order status updates by new status",
		}, []string{"status"}),
		eventsProjected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_events_projected_total",
			Help: "Order events handled by the projector",
		}, []string{"event_type", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .2, .4, .8, 1.6},
		}, []string{"method", "route"}),
	}
	m.reg.MustRegister(
		m.ordersPlaced, m.placeFailures, m.statusUpdates, m.eventsProjected,
		m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) OrderPlaced() { m.ordersPlaced.Inc() }

func (m *Metrics) PlacementFailed(kind string) { m.placeFailures.WithLabelValues(kind).Inc() }

func (m *Metrics) StatusUpdated(status string) { m.statusUpdates.WithLabelValues(status).Inc() }

func (m *Metrics) EventProjected(eventType, result string) {
	m.eventsProjected.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, http.StatusText(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry dipakai test untuk membaca nilai counter.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }
