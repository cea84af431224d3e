// Package metrics exposes Prometheus counters for the site.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "augustina"

// Collector records site events. A nil *Collector records nothing.
type Collector struct {
	registry *prometheus.Registry

	calculatorOps   *prometheus.CounterVec
	contentFetches  *prometheus.CounterVec
	enquiries       *prometheus.CounterVec
	deliveries      *prometheus.CounterVec
	activeWidgets   prometheus.Gauge
	contentDuration *prometheus.HistogramVec
}

// New creates a collector registered on its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		calculatorOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "calculator",
				Name:      "operations_total",
				Help:      "Calculator widget operations by kind and outcome",
			},
			[]string{"op", "result"},
		),
		activeWidgets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "calculator",
				Name:      "active_widgets",
				Help:      "Calculator widgets currently held in memory",
			},
		),
		contentFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "content",
				Name:      "fetches_total",
				Help:      "Content API requests by resource and outcome",
			},
			[]string{"resource", "result"},
		),
		contentDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "content",
				Name:      "fetch_duration_seconds",
				Help:      "Content API request duration",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"resource"},
		),
		enquiries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "contact",
				Name:      "enquiries_total",
				Help:      "Contact form submissions by outcome",
			},
			[]string{"result"},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "contact",
				Name:      "deliveries_total",
				Help:      "Enquiry notification deliveries by route and status",
			},
			[]string{"route", "status"},
		),
	}

	c.registry.MustRegister(
		c.calculatorOps,
		c.activeWidgets,
		c.contentFetches,
		c.contentDuration,
		c.enquiries,
		c.deliveries,
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// CalculatorOp records one calculator operation.
func (c *Collector) CalculatorOp(op string, err error) {
	if c == nil {
		return
	}
	c.calculatorOps.WithLabelValues(op, result(err)).Inc()
}

// SetActiveWidgets records how many widgets are held in memory.
func (c *Collector) SetActiveWidgets(n int) {
	if c == nil {
		return
	}
	c.activeWidgets.Set(float64(n))
}

// ContentFetch records one content API request.
func (c *Collector) ContentFetch(resource string, seconds float64, err error) {
	if c == nil {
		return
	}
	c.contentFetches.WithLabelValues(resource, result(err)).Inc()
	c.contentDuration.WithLabelValues(resource).Observe(seconds)
}

// Enquiry records a contact form outcome such as accepted, invalid or limited.
func (c *Collector) Enquiry(outcome string) {
	if c == nil {
		return
	}
	c.enquiries.WithLabelValues(outcome).Inc()
}

// Delivery records the outcome of one notification delivery.
func (c *Collector) Delivery(route, status string) {
	if c == nil {
		return
	}
	c.deliveries.WithLabelValues(route, status).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
