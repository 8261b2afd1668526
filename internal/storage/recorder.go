package storage

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/aigeo-prime/firewatch/internal/dispatcher"
	"github.com/aigeo-prime/firewatch/internal/logging"
	"github.com/aigeo-prime/firewatch/pkg/core"
)

const (
	cmdRecordBatch    = "record_batch"
	defaultBufferSize = 256
)

// Recorder forwards delivered batches to every backend through a buffered
// queue, so slow storage never stalls delivery. It implements
// sim.Broadcaster. Write failures are logged and counted, never returned to
// the caller.
type Recorder struct {
	backends []Backend
	d        *dispatcher.Dispatcher
	log      zerolog.Logger

	recorded atomic.Uint64
	failures atomic.Uint64
	dropped  atomic.Uint64
}

// NewRecorder wires backends behind a queue of bufferSize batches.
func NewRecorder(backends []Backend, bufferSize int, log zerolog.Logger) (*Recorder, error) {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	live := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			live = append(live, b)
		}
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(log))
	if err != nil {
		return nil, fmt.Errorf("create recorder dispatcher: %w", err)
	}

	r := &Recorder{backends: live, d: d, log: log}
	d.Register(cmdRecordBatch, r.recordBatch, dispatcher.Buffered(bufferSize))
	return r, nil
}

// Init initializes every backend. On failure the already initialized ones
// are closed again.
func (r *Recorder) Init() error {
	for i, b := range r.backends {
		if err := b.Init(); err != nil {
			for _, prev := range r.backends[:i] {
				_ = prev.Close()
			}
			return fmt.Errorf("init storage backend %T: %w", b, err)
		}
	}
	return nil
}

// Broadcast queues batch for persistence. A full queue, or a closed
// recorder, drops the batch.
func (r *Recorder) Broadcast(topic string, batch core.TelemetryBatch) {
	if len(r.backends) == 0 {
		return
	}
	_, err := r.d.Dispatch(dispatcher.Event{Command: cmdRecordBatch, Payload: batch})
	switch {
	case err == nil:
	case errors.Is(err, dispatcher.ErrQueueFull):
		r.dropped.Add(1)
		r.log.Warn().Uint64("seq", batch.Seq).Str("topic", topic).Msg("Recorder queue full, dropping batch")
	case errors.Is(err, dispatcher.ErrClosed):
		r.dropped.Add(1)
		r.log.Debug().Uint64("seq", batch.Seq).Str("topic", topic).Msg("Recorder closed, discarding batch")
	default:
		r.dropped.Add(1)
		r.log.Error().Err(err).Uint64("seq", batch.Seq).Str("topic", topic).Msg("Recorder dispatch failed")
	}
}

func (r *Recorder) recordBatch(e dispatcher.Event) (any, error) {
	batch, ok := e.Payload.(core.TelemetryBatch)
	if !ok {
		return nil, fmt.Errorf("unexpected payload %T", e.Payload)
	}

	var errs []error
	for _, b := range r.backends {
		if err := b.RecordBatch(batch); err != nil {
			r.failures.Add(1)
			errs = append(errs, fmt.Errorf("%T: %w", b, err))
		}
	}
	r.recorded.Add(1)
	return nil, errors.Join(errs...)
}

// RecordHotspots persists the static fire data in every backend that
// supports it.
func (r *Recorder) RecordHotspots(hotspots []core.FireHotspot) error {
	var errs []error
	for _, b := range r.backends {
		if hr, ok := b.(HotspotRecorder); ok {
			if err := hr.RecordHotspots(hotspots); err != nil {
				errs = append(errs, fmt.Errorf("%T: %w", b, err))
			}
		}
	}
	return errors.Join(errs...)
}

// History returns the first backend able to serve recent batches, or nil.
func (r *Recorder) History() HistoryProvider {
	for _, b := range r.backends {
		if hp, ok := b.(HistoryProvider); ok {
			return hp
		}
	}
	return nil
}

// Stats reports batches processed, backend write failures and batches
// dropped at the queue.
func (r *Recorder) Stats() (recorded, failures, dropped uint64) {
	return r.recorded.Load(), r.failures.Load(), r.dropped.Load()
}

// Close drains the queue, then closes every backend.
func (r *Recorder) Close() error {
	r.d.Close()

	var errs []error
	for _, b := range r.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
