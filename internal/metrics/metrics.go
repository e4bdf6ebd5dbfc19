// Package metrics holds the prometheus collectors for the order and delivery
// lifecycle and for the HTTP surface. All collectors register on a private
// registry served at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "food_delivery"

// Collectors groups the application metrics. A nil *Collectors records nothing.
type Collectors struct {
	registry *prometheus.Registry

	ordersCreated       prometheus.Counter
	reservationFailures *prometheus.CounterVec
	deliveryTransitions *prometheus.CounterVec
	partialFailures     *prometheus.CounterVec
	compensations       *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry together with the Go and
// process collectors
func New() *Collectors {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Collectors{
		registry: registry,
		ordersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created together with their pending delivery.",
		}),
		reservationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_reservation_failures_total",
			Help:      "Stock reservations that were refused, by reason.",
		}, []string{"reason"}),
		deliveryTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_transitions_total",
			Help:      "Delivery status changes, by target status.",
		}, []string{"status"}),
		partialFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_failures_total",
			Help:      "Multi-record operations that left records inconsistent, by kind.",
		}, []string{"kind"}),
		compensations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensations_total",
			Help:      "Compensating writes executed after a failed step, by step and outcome.",
		}, []string{"step", "outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry exposes the underlying registry, mainly for tests
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collectors) OrderCreated() {
	if c == nil {
		return
	}
	c.ordersCreated.Inc()
}

func (c *Collectors) ReservationFailed(reason string) {
	if c == nil {
		return
	}
	c.reservationFailures.WithLabelValues(reason).Inc()
}

func (c *Collectors) DeliveryTransitioned(status string) {
	if c == nil {
		return
	}
	c.deliveryTransitions.WithLabelValues(status).Inc()
}

func (c *Collectors) PartialFailure(kind string) {
	if c == nil {
		return
	}
	c.partialFailures.WithLabelValues(kind).Inc()
}

func (c *Collectors) Compensated(step string, ok bool) {
	if c == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	c.compensations.WithLabelValues(step, outcome).Inc()
}

// Handler serves the registry in the prometheus exposition format
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Middleware records request counts and latency. Unmatched routes share one label.
func (c *Collectors) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.httpRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
