// Package sim advances registered assets along their paths on a fixed tick
// and hands each tick's telemetry batch to a Broadcaster after a simulated
// link delay.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aigeo-prime/firewatch/internal/geo"
	"github.com/aigeo-prime/firewatch/internal/random"
	"github.com/aigeo-prime/firewatch/pkg/core"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNoAssets       = errors.New("no assets registered")
	ErrDuplicateAsset = errors.New("duplicate asset id")
	ErrEmptyPath      = errors.New("asset path is empty")
	ErrUnknownKind    = errors.New("unknown asset kind")
	ErrNoBroadcaster  = errors.New("no broadcaster configured")
)

// Broadcaster receives every delivered batch. Implementations must not block
// for long; the engine delivers batches one at a time.
type Broadcaster interface {
	Broadcast(topic string, batch core.TelemetryBatch)
}

// BroadcasterFunc adapts a function to Broadcaster.
type BroadcasterFunc func(topic string, batch core.TelemetryBatch)

func (f BroadcasterFunc) Broadcast(topic string, batch core.TelemetryBatch) { f(topic, batch) }

// Fanout broadcasts to every member in order.
type Fanout []Broadcaster

func (f Fanout) Broadcast(topic string, batch core.TelemetryBatch) {
	for _, b := range f {
		if b != nil {
			b.Broadcast(topic, batch)
		}
	}
}

// Engine owns the asset registry and its runtime state.
type Engine struct {
	assets []core.Asset
	out    Broadcaster
	opts   options
	log    *slog.Logger

	// mu guards states so a snapshot never observes a half-applied tick.
	mu     sync.RWMutex
	states *StateStore

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	seq       atomic.Uint64
	delivered atomic.Uint64

	ticks          metric.Int64Counter
	skipped        metric.Int64Counter
	droppedBatches metric.Int64Counter
	sentBatches    metric.Int64Counter
}

// New validates the registry and builds a stopped engine. Validation
// failures wrap ErrNoAssets, ErrDuplicateAsset, ErrEmptyPath or
// ErrUnknownKind; a nil out returns ErrNoBroadcaster.
func New(assets []core.Asset, out Broadcaster, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.rand == nil {
		o.rand = random.New()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if err := validate(assets); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrNoBroadcaster
	}

	registry := cloneAssets(assets)

	e := &Engine{
		assets: registry,
		out:    out,
		opts:   o,
		log:    o.logger.With("component", "sim"),
		states: NewStateStore(registry, o.clock.Now()),
	}

	if err := e.initMetrics(); err != nil {
		return nil, err
	}

	return e, nil
}

func validate(assets []core.Asset) error {
	if len(assets) == 0 {
		return ErrNoAssets
	}
	seen := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateAsset, a.ID)
		}
		seen[a.ID] = struct{}{}
		if len(a.Path) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyPath, a.ID)
		}
		if !a.Kind.Valid() {
			return fmt.Errorf("%w: %s has kind %q", ErrUnknownKind, a.ID, a.Kind)
		}
	}
	return nil
}

func (e *Engine) initMetrics() error {
	m := meter()
	var err error

	e.ticks, err = m.Int64Counter("sim.ticks",
		metric.WithDescription("Total simulation ticks"))
	if err != nil {
		return fmt.Errorf("creating ticks counter: %w", err)
	}

	e.skipped, err = m.Int64Counter("sim.assets.skipped",
		metric.WithDescription("Assets skipped during a tick because their state was missing"))
	if err != nil {
		return fmt.Errorf("creating skipped counter: %w", err)
	}

	e.droppedBatches, err = m.Int64Counter("sim.batches.dropped",
		metric.WithDescription("Batches dropped because the delivery queue was full"))
	if err != nil {
		return fmt.Errorf("creating dropped counter: %w", err)
	}

	e.sentBatches, err = m.Int64Counter("sim.batches.delivered",
		metric.WithDescription("Batches handed to the broadcaster"))
	if err != nil {
		return fmt.Errorf("creating delivered counter: %w", err)
	}

	return nil
}

// Start begins ticking. Calling Start on a running engine does nothing.
func (e *Engine) Start() {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.running {
		e.log.Debug("simulation already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	queue := make(chan core.TelemetryBatch, e.opts.queueSize)
	ticker := e.opts.clock.NewTicker(e.opts.period)

	e.cancel = cancel
	e.running = true

	e.wg.Add(2)
	go e.run(ctx, ticker, queue)
	go e.deliver(ctx, queue)

	e.log.Info("simulation started",
		"assets", len(e.assets),
		"period", e.opts.period,
		"latency", e.opts.latency)
}

// Stop halts ticking and discards batches still waiting for delivery. It
// returns once the engine goroutines have exited. Stopping a stopped engine
// does nothing. Asset state is kept for a later Start.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if !e.running {
		return
	}

	e.cancel()
	e.wg.Wait()
	e.cancel = nil
	e.running = false

	e.log.Info("simulation stopped", "lastSeq", e.seq.Load())
}

// Running reports whether the engine is ticking.
func (e *Engine) Running() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.running
}

// LastSeq returns the sequence number of the most recent tick, 0 before the
// first tick.
func (e *Engine) LastSeq() uint64 {
	return e.seq.Load()
}

// LastDelivered returns the sequence number of the most recently broadcast
// batch.
func (e *Engine) LastDelivered() uint64 {
	return e.delivered.Load()
}

// Assets returns a deep copy of the registry in registration order.
func (e *Engine) Assets() []core.Asset {
	return cloneAssets(e.assets)
}

func cloneAssets(assets []core.Asset) []core.Asset {
	out := make([]core.Asset, len(assets))
	for i, a := range assets {
		a.Path = make([]core.Waypoint, len(a.Path))
		for j, wp := range assets[i].Path {
			if wp.Alt != nil {
				wp.Alt = core.Float64Ptr(*wp.Alt)
			}
			a.Path[j] = wp
		}
		out[i] = a
	}
	return out
}

// AssetCount returns the number of registered assets.
func (e *Engine) AssetCount() int {
	return len(e.assets)
}

// CurrentSnapshot reports every asset at its current cursor without
// advancing it. Temperature is noise free and speed nominal, so repeated
// calls between ticks return identical results.
func (e *Engine) CurrentSnapshot() []core.TelemetrySnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snaps := make([]core.TelemetrySnapshot, 0, len(e.assets))
	for _, a := range e.assets {
		st, ok := e.states.Get(a.ID)
		if !ok {
			continue
		}
		wp := a.Path[st.Cursor]
		temp := geo.TemperatureAround(e.opts.center, wp.Lat, wp.Lon, nil)
		snaps = append(snaps, snapshot(a, wp, temp, st.Battery, a.Speed, st.LastUpdate.UnixMilli()))
	}
	return snaps
}

func (e *Engine) run(ctx context.Context, ticker Ticker, queue chan<- core.TelemetryBatch) {
	defer e.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C():
			batch := e.step(ctx, now)
			select {
			case queue <- batch:
			default:
				e.droppedBatches.Add(ctx, 1)
				e.log.Warn("delivery queue full, dropping batch", "seq", batch.Seq)
			}
		}
	}
}

func (e *Engine) deliver(ctx context.Context, queue <-chan core.TelemetryBatch) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-queue:
			wait := batch.Time.Add(e.opts.latency).Sub(e.opts.clock.Now())
			if wait > 0 {
				select {
				case <-ctx.Done():
					return
				case <-e.opts.clock.After(wait):
				}
			}

			if batch.Seq <= e.delivered.Load() {
				e.log.Debug("discarding stale batch", "seq", batch.Seq, "delivered", e.delivered.Load())
				continue
			}

			e.out.Broadcast(e.opts.topic, batch)
			e.delivered.Store(batch.Seq)
			e.sentBatches.Add(ctx, 1)
		}
	}
}
