package hub

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aigeo-prime/firewatch/internal/metrics"
	"github.com/aigeo-prime/firewatch/pkg/core"
	"github.com/aigeo-prime/firewatch/pkg/streaming"
)

type fakeSnapshots struct {
	mu    sync.Mutex
	snaps []core.TelemetrySnapshot
	calls int
}

func (f *fakeSnapshots) CurrentSnapshot() []core.TelemetrySnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.snaps
}

type fakeFire []byte

func (f fakeFire) GeoJSON() []byte { return f }

func testHub(t *testing.T, cfg Config) (*Hub, *httptest.Server, *metrics.Collector) {
	t.Helper()
	snaps := &fakeSnapshots{snaps: []core.TelemetrySnapshot{
		{EntityID: "scout-alpha-01", Name: "Scout Alpha-01", Kind: core.KindGround, Battery: 100, Timestamp: 1},
	}}
	m, err := metrics.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	h, err := New(cfg, snaps, fakeFire(`{"type":"FeatureCollection","features":[]}`), m,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return h, srv, m
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, srv *httptest.Server) *ws.Conn {
	t.Helper()
	c, _, err := ws.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func readEnvelope(t *testing.T, c *ws.Conn) streaming.Envelope {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := c.ReadMessage()
	require.NoError(t, err)
	var env streaming.Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func TestNew_RequiresSnapshots(t *testing.T) {
	_, err := New(Config{}, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestServeHTTP_ImmediateSnapshotFirst(t *testing.T) {
	h, srv, m := testHub(t, Config{})
	c := dial(t, srv)

	env := readEnvelope(t, c)
	assert.Equal(t, streaming.TypeTelemetry, env.Type)
	assert.Zero(t, env.Seq)

	var snaps []core.TelemetrySnapshot
	require.NoError(t, json.Unmarshal(env.Payload, &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, "scout-alpha-01", snaps[0].EntityID)

	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Subscribers))
}

func TestBroadcast_InOrder(t *testing.T) {
	h, srv, m := testHub(t, Config{})
	c := dial(t, srv)
	readEnvelope(t, c)
	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 5*time.Millisecond)

	for seq := uint64(1); seq <= 5; seq++ {
		h.Broadcast("telemetry", core.TelemetryBatch{
			Seq:       seq,
			Snapshots: []core.TelemetrySnapshot{{EntityID: "drone-eagle-02", Kind: core.KindAerial, Altitude: core.Float64Ptr(170)}},
		})
	}

	for seq := uint64(1); seq <= 5; seq++ {
		env := readEnvelope(t, c)
		assert.Equal(t, "telemetry", env.Type)
		assert.Equal(t, seq, env.Seq)
	}
	require.Eventually(t, func() bool { return testutil.ToFloat64(m.MessagesSent) == 6 }, time.Second, 5*time.Millisecond)
}

func TestBroadcast_ManyObservers(t *testing.T) {
	h, srv, _ := testHub(t, Config{})
	conns := []*ws.Conn{dial(t, srv), dial(t, srv), dial(t, srv)}
	for _, c := range conns {
		readEnvelope(t, c)
	}
	require.Eventually(t, func() bool { return h.Count() == 3 }, time.Second, 5*time.Millisecond)

	h.Broadcast("telemetry", core.TelemetryBatch{Seq: 9})

	for _, c := range conns {
		assert.Equal(t, uint64(9), readEnvelope(t, c).Seq)
	}
}

func TestBroadcast_NoObservers(t *testing.T) {
	h, _, _ := testHub(t, Config{})
	h.Broadcast("telemetry", core.TelemetryBatch{Seq: 1})
	assert.Equal(t, 0, h.Count())
}

func TestBroadcast_DropsWhenQueueFull(t *testing.T) {
	h, _, m := testHub(t, Config{SendQueue: 1})

	// a subscriber with no writer never drains its queue
	s := newSubscriber("stalled", nil, 1)
	h.mu.Lock()
	h.subs[s.id] = s
	h.mu.Unlock()

	h.Broadcast("telemetry", core.TelemetryBatch{Seq: 1})
	h.Broadcast("telemetry", core.TelemetryBatch{Seq: 2})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesDropped))
	env, err := streaming.Decode(<-s.send)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), env.Seq)
}

func TestReadLoop_Commands(t *testing.T) {
	tests := []struct {
		name     string
		request  string
		wantType string
		check    func(t *testing.T, env streaming.Envelope)
	}{
		{"ping", `{"type":"ping"}`, streaming.TypePong, nil},
		{"get_state", `{"type":"get_state"}`, streaming.TypeTelemetry, func(t *testing.T, env streaming.Envelope) {
			var snaps []core.TelemetrySnapshot
			require.NoError(t, json.Unmarshal(env.Payload, &snaps))
			assert.Len(t, snaps, 1)
		}},
		{"get_fire", `{"type":"get_fire"}`, streaming.TypeFireData, func(t *testing.T, env streaming.Envelope) {
			assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(env.Payload))
		}},
		{"unknown", `{"type":"self_destruct"}`, streaming.TypeError, func(t *testing.T, env streaming.Envelope) {
			var p streaming.ErrorPayload
			require.NoError(t, json.Unmarshal(env.Payload, &p))
			assert.Contains(t, p.Message, "self_destruct")
		}},
		{"malformed", `nope`, streaming.TypeError, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv, _ := testHub(t, Config{})
			c := dial(t, srv)
			readEnvelope(t, c)

			require.NoError(t, c.WriteMessage(ws.TextMessage, []byte(tt.request)))
			env := readEnvelope(t, c)
			assert.Equal(t, tt.wantType, env.Type)
			if tt.check != nil {
				tt.check(t, env)
			}
		})
	}
}

func TestDisconnect_RemovesObserver(t *testing.T) {
	h, srv, m := testHub(t, Config{})
	c := dial(t, srv)
	readEnvelope(t, c)
	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close())

	require.Eventually(t, func() bool { return h.Count() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Subscribers))

	// broadcasting after a disconnect is harmless
	h.Broadcast("telemetry", core.TelemetryBatch{Seq: 1})
}

func TestClose_RejectsNewObservers(t *testing.T) {
	h, srv, _ := testHub(t, Config{})
	c := dial(t, srv)
	readEnvelope(t, c)

	h.Close()
	assert.Equal(t, 0, h.Count())

	_, resp, err := ws.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	open := originChecker(nil)
	assert.True(t, open(req("http://evil.example")))

	star := originChecker([]string{"*"})
	assert.True(t, star(req("http://evil.example")))

	only := originChecker([]string{"http://localhost:5173"})
	assert.True(t, only(req("http://localhost:5173")))
	assert.True(t, only(req("")))
	assert.False(t, only(req("http://evil.example")))
}
