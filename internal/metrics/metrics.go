// Package metrics exposes Prometheus counters for requests and bookings.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	bookings      *prometheus.CounterVec
	cancellations *prometheus.CounterVec
	rateLimited   prometheus.Counter
}

// NewCollector registers the clinic metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_http_requests_total",
			Help: "HTTP responses by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clinic_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_bookings_total",
			Help: "Booking attempts by outcome.",
		}, []string{"outcome"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_cancellations_total",
			Help: "Cancellation attempts by outcome.",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinic_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.bookings,
		c.cancellations,
		c.rateLimited,
	)
	return c
}

func (c *Collector) RecordHTTP(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (c *Collector) RecordBooking(outcome string) {
	c.bookings.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordCancellation(outcome string) {
	c.cancellations.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

// Handler serves the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
