// Package hub fans telemetry batches out to connected WebSocket observers.
package hub

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/google/uuid"

	"github.com/aigeo-prime/firewatch/internal/dispatcher"
	"github.com/aigeo-prime/firewatch/internal/metrics"
	"github.com/aigeo-prime/firewatch/pkg/core"
	"github.com/aigeo-prime/firewatch/pkg/streaming"
)

const (
	defaultSendQueue = 64
	defaultWriteWait = 10 * time.Second
	defaultPongWait  = 60 * time.Second
	maxMessageSize   = 4096
)

// SnapshotProvider supplies the current telemetry snapshot for late joiners
// and get_state requests.
type SnapshotProvider interface {
	CurrentSnapshot() []core.TelemetrySnapshot
}

// FireProvider supplies the pre-rendered fire GeoJSON.
type FireProvider interface {
	GeoJSON() []byte
}

// Config tunes per-observer queueing and keepalive.
type Config struct {
	SendQueue int           // per-observer bounded queue
	WriteWait time.Duration // deadline for a single write
	PongWait  time.Duration // read deadline, refreshed by every pong
	// AllowedOrigins restricts the Origin header on upgrade. Empty or "*"
	// accepts any origin.
	AllowedOrigins []string
}

func (c Config) withDefaults() Config {
	if c.SendQueue <= 0 {
		c.SendQueue = defaultSendQueue
	}
	if c.WriteWait <= 0 {
		c.WriteWait = defaultWriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = defaultPongWait
	}
	return c
}

// pingPeriod must be shorter than pongWait.
func (c Config) pingPeriod() time.Duration {
	return c.PongWait * 9 / 10
}

// Hub keeps the observer set and implements sim.Broadcaster.
type Hub struct {
	cfg       Config
	snapshots SnapshotProvider
	fire      FireProvider
	metrics   *metrics.Collector
	logger    *slog.Logger
	commands  *dispatcher.Dispatcher
	upgrader  ws.Upgrader

	mu     sync.RWMutex
	subs   map[string]*subscriber
	closed bool
}

// New builds a hub. fire and m may be nil.
func New(cfg Config, snapshots SnapshotProvider, fire FireProvider, m *metrics.Collector, logger *slog.Logger) (*Hub, error) {
	if snapshots == nil {
		return nil, errors.New("hub: snapshot provider is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	h := &Hub{
		cfg:       cfg,
		snapshots: snapshots,
		fire:      fire,
		metrics:   m,
		logger:    logger.With("component", "hub"),
		subs:      make(map[string]*subscriber),
	}
	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}

	d, err := dispatcher.New(h.logger)
	if err != nil {
		return nil, fmt.Errorf("create command dispatcher: %w", err)
	}
	h.commands = d
	h.registerCommands()

	return h, nil
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Count returns the number of connected observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast hands one envelope per batch to every observer's queue without
// blocking. An observer whose queue is full misses this batch.
func (h *Hub) Broadcast(topic string, batch core.TelemetryBatch) {
	data, err := streaming.Encode(topic, batch.Seq, batch.Snapshots)
	if err != nil {
		h.logger.Error("failed to encode batch", "seq", batch.Seq, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if !s.trySend(data) {
			h.metrics.MessageDropped()
			h.logger.Warn("observer send queue full, dropping message", "subscriber", s.id, "seq", batch.Seq)
		}
	}
}

// ServeHTTP upgrades the request and registers the observer. The immediate
// snapshot is queued before the observer joins the broadcast set, so it is
// always the first message received.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s := newSubscriber(uuid.NewString(), conn, h.cfg.SendQueue)

	snapshot, err := h.snapshotMessage()
	if err != nil {
		h.logger.Error("failed to encode initial snapshot", "error", err)
	} else {
		s.trySend(snapshot)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.subs[s.id] = s
	h.mu.Unlock()

	h.metrics.SubscriberJoined()
	h.logger.Info("observer connected", "subscriber", s.id, "remote", r.RemoteAddr)

	go h.writeLoop(s)
	go h.readLoop(s)
}

// Close disconnects every observer and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subs))
	for id, s := range h.subs {
		subs = append(subs, s)
		delete(h.subs, id)
	}
	h.mu.Unlock()

	for _, s := range subs {
		h.metrics.SubscriberLeft()
		s.close(h.cfg.WriteWait)
	}
	h.commands.Close()
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	_, ok := h.subs[s.id]
	delete(h.subs, s.id)
	h.mu.Unlock()

	if ok {
		h.metrics.SubscriberLeft()
		h.logger.Info("observer disconnected", "subscriber", s.id)
	}
	s.close(h.cfg.WriteWait)
}

func (h *Hub) snapshotMessage() ([]byte, error) {
	return streaming.Encode(streaming.TypeTelemetry, 0, h.snapshots.CurrentSnapshot())
}

// writeLoop is the only goroutine writing to the connection.
func (h *Hub) writeLoop(s *subscriber) {
	ping := time.NewTicker(h.cfg.pingPeriod())
	defer ping.Stop()
	defer h.remove(s)

	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait)); err != nil {
				h.logger.Warn("websocket SetWriteDeadline error", "subscriber", s.id, "error", err)
				return
			}
			if err := s.conn.WriteMessage(ws.TextMessage, data); err != nil {
				h.logger.Debug("websocket write error", "subscriber", s.id, "error", err)
				return
			}
			h.metrics.MessageSent()
		case <-ping.C:
			if err := s.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(h.cfg.WriteWait)); err != nil {
				h.logger.Debug("websocket ping error", "subscriber", s.id, "error", err)
				return
			}
		}
	}
}

func (h *Hub) readLoop(s *subscriber) {
	defer h.remove(s)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				h.logger.Debug("websocket read error", "subscriber", s.id, "error", err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))

		if reply := h.handleMessage(s.id, message); reply != nil {
			if !s.trySend(reply) {
				h.metrics.MessageDropped()
			}
		}
	}
}
