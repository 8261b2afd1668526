// Package metrics exposes the Prometheus instruments scraped from /metrics.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the observer transport and HTTP API metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	Subscribers     prometheus.Gauge
	MessagesSent    prometheus.Counter
	MessagesDropped prometheus.Counter

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewCollector registers metrics against reg, defaulting to the global
// Prometheus registry when nil. Registering twice against the same registry
// returns the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	subscribers, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "firewatch_ws_subscribers",
		Help: "Current number of connected WebSocket observers.",
	}), "firewatch_ws_subscribers")
	if err != nil {
		return nil, err
	}

	sent, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "firewatch_ws_messages_sent_total",
		Help: "Total messages written to WebSocket observers.",
	}), "firewatch_ws_messages_sent_total")
	if err != nil {
		return nil, err
	}

	dropped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "firewatch_ws_messages_dropped_total",
		Help: "Total messages dropped because an observer's send queue was full.",
	}), "firewatch_ws_messages_dropped_total")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "firewatch_http_requests_total",
		Help: "Total HTTP API requests, labeled by method, route and status code.",
	}, []string{"method", "route", "code"}), "firewatch_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "firewatch_http_request_duration_seconds",
		Help:    "HTTP API latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"}), "firewatch_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		Subscribers:     subscribers,
		MessagesSent:    sent,
		MessagesDropped: dropped,
		HTTPRequests:    requests,
		HTTPDurations:   durations,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SubscriberJoined, SubscriberLeft, MessageSent and MessageDropped are safe
// on a nil Collector.

func (c *Collector) SubscriberJoined() {
	if c != nil {
		c.Subscribers.Inc()
	}
}

func (c *Collector) SubscriberLeft() {
	if c != nil {
		c.Subscribers.Dec()
	}
}

func (c *Collector) MessageSent() {
	if c != nil {
		c.MessagesSent.Inc()
	}
}

func (c *Collector) MessageDropped() {
	if c != nil {
		c.MessagesDropped.Inc()
	}
}

// ObserveRequest records one HTTP API request.
func (c *Collector) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.HTTPDurations.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
