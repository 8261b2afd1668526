package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_SubscriberGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.SubscriberJoined()
	c.SubscriberJoined()
	c.SubscriberLeft()

	if got := testutil.ToFloat64(c.Subscribers); got != 1 {
		t.Fatalf("firewatch_ws_subscribers = %v, want 1", got)
	}
}

func TestCollector_MessageCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.MessageSent()
	c.MessageSent()
	c.MessageDropped()

	if got := testutil.ToFloat64(c.MessagesSent); got != 2 {
		t.Fatalf("firewatch_ws_messages_sent_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.MessagesDropped); got != 1 {
		t.Fatalf("firewatch_ws_messages_dropped_total = %v, want 1", got)
	}
}

func TestCollector_ObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.ObserveRequest(http.MethodGet, "/api/fire", http.StatusOK, 5*time.Millisecond)

	if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/fire", "200")); got != 1 {
		t.Fatalf("firewatch_http_requests_total = %v, want 1", got)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.SubscriberJoined()
	c.SubscriberLeft()
	c.MessageSent()
	c.MessageDropped()
	c.ObserveRequest("GET", "/", 200, time.Millisecond)
}

func TestNewCollector_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}

	first.MessageSent()
	if got := testutil.ToFloat64(second.MessagesSent); got != 1 {
		t.Fatalf("expected shared counter, got %v", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	c.SubscriberJoined()

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), "firewatch_ws_subscribers 1") {
		t.Fatalf("metrics output missing subscriber gauge:\n%s", body)
	}
}
