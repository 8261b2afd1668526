// Package dispatcher routes named commands to handlers, either inline or
// through a bounded per-command queue drained by one worker.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrQueueFull      = errors.New("queue full")
	ErrClosed         = errors.New("dispatcher closed")
)

// Event is a named command with an arbitrary payload: an inbound observer
// message or a telemetry batch headed for storage.
type Event struct {
	Command   string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger is the logging surface the dispatcher needs. *slog.Logger
// satisfies it directly.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*routeConfig)

type routeConfig struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered runs the handler on its own worker behind a queue of size
// events. Dispatch returns immediately; a full queue rejects the event with
// ErrQueueFull.
func Buffered(size int) Option {
	return func(c *routeConfig) { c.bufferSize = size }
}

// Blocking makes Dispatch on a buffered route wait for queue space and then
// for the handler's result instead of returning "queued". It has no effect
// on inline routes.
func Blocking() Option {
	return func(c *routeConfig) { c.blocking = true }
}

// Logged adds debug logging around every call.
func Logged() Option {
	return func(c *routeConfig) { c.logged = true }
}

type result struct {
	value any
	err   error
}

type job struct {
	event Event
	reply chan result // nil unless the route is blocking
}

type route struct {
	handle   HandlerFunc
	queue    chan job // nil for inline routes
	blocking bool
	attr     metric.MeasurementOption
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	logger Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	// mu guards routes and closed. Queued sends hold the read lock so Close
	// cannot close a queue mid-send.
	mu      sync.RWMutex
	routes  map[string]*route
	closed  bool
	workers sync.WaitGroup
}

// New creates a dispatcher. Instruments come from the global OTel meter and
// are no-ops until a provider is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		logger: logger,
		routes: make(map[string]*route),
	}
	if err := d.initMetrics(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) initMetrics() error {
	m := meter()
	var err error

	d.queueSize, err = m.Int64ObservableGauge("dispatcher.queue.size",
		metric.WithDescription("Events waiting in a buffered command queue"))
	if err != nil {
		return fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		for _, r := range d.routes {
			if r.queue != nil {
				o.ObserveInt64(d.queueSize, int64(len(r.queue)), r.attr)
			}
		}
		return nil
	}, d.queueSize)
	if err != nil {
		return fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter("dispatcher.events.processed",
		metric.WithDescription("Events handled, inline or queued"))
	if err != nil {
		return fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter("dispatcher.events.dropped",
		metric.WithDescription("Events rejected because their queue was full"))
	if err != nil {
		return fmt.Errorf("creating dropped counter: %w", err)
	}
	return nil
}

// Register installs h for command. Registering a command twice replaces the
// earlier route; its queue, if any, is drained by its worker.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var cfg routeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.logged {
		h = d.logged(command, h)
	}
	r := &route{
		handle:   h,
		blocking: cfg.blocking,
		attr:     metric.WithAttributes(attribute.String("command", command)),
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if cfg.bufferSize > 0 {
		r.queue = make(chan job, cfg.bufferSize)
		d.workers.Add(1)
		go d.work(command, r)
		if d.closed {
			close(r.queue)
		}
	}
	if old, ok := d.routes[command]; ok && old.queue != nil && !d.closed {
		close(old.queue)
	}
	d.routes[command] = r
}

// Dispatch routes e to its handler. Inline handlers return their result;
// buffered ones return "queued" once the event is accepted, unless the
// route is Blocking, in which case the handler's result is returned.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.routes[e.Command]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}

	if r.queue == nil {
		result, err := r.handle(e)
		d.processed.Add(context.Background(), 1, r.attr)
		return result, err
	}

	if d.closed {
		return nil, ErrClosed
	}
	if r.blocking {
		reply := make(chan result, 1)
		r.queue <- job{event: e, reply: reply}
		res := <-reply
		return res.value, res.err
	}
	select {
	case r.queue <- job{event: e}:
		return "queued", nil
	default:
		d.dropped.Add(context.Background(), 1, r.attr)
		return nil, fmt.Errorf("%w: %s", ErrQueueFull, e.Command)
	}
}

// Close stops accepting queued events and waits until every queue is
// drained. Inline handlers keep working.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, r := range d.routes {
		if r.queue != nil {
			close(r.queue)
		}
	}
	d.mu.Unlock()

	d.workers.Wait()
}

func (d *Dispatcher) work(command string, r *route) {
	defer d.workers.Done()
	for j := range r.queue {
		value, err := r.handle(j.event)
		d.processed.Add(context.Background(), 1, r.attr)
		if j.reply != nil {
			j.reply <- result{value: value, err: err}
			continue
		}
		if err != nil && d.logger != nil {
			d.logger.Error("buffered event failed", "command", command, "error", err)
		}
	}
}

func (d *Dispatcher) logged(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		if d.logger == nil {
			return h(e)
		}
		start := time.Now()
		result, err := h(e)
		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event handled", "command", command,
				"duration", time.Since(start), "queued", start.Sub(e.Timestamp))
		}
		return result, err
	}
}
