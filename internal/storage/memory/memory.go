// Package memory keeps the most recent delivered batches in a bounded ring.
// It is the default history source for the HTTP API.
package memory

import (
	"sync"

	"github.com/aigeo-prime/firewatch/internal/queue"
	"github.com/aigeo-prime/firewatch/pkg/core"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 120

// Backend is an in-memory storage backend.
type Backend struct {
	mu       sync.RWMutex
	batches  *queue.Queue[core.TelemetryBatch]
	hotspots []core.FireHotspot
	evicted  int
}

// New creates a memory backend retaining at most capacity batches.
func New(capacity int) *Backend {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Backend{batches: queue.New[core.TelemetryBatch](capacity)}
}

// Init is a no-op.
func (b *Backend) Init() error {
	return nil
}

// Close drops everything retained.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches.Clear()
	b.hotspots = nil
	return nil
}

// RecordBatch retains a copy of batch, evicting the oldest when full.
func (b *Backend) RecordBatch(batch core.TelemetryBatch) error {
	batch.Snapshots = cloneSnapshots(batch.Snapshots)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.evicted += b.batches.Push(batch)
	return nil
}

// RecordHotspots replaces the retained fire data.
func (b *Backend) RecordHotspots(hotspots []core.FireHotspot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hotspots = append([]core.FireHotspot(nil), hotspots...)
	return nil
}

// Recent returns up to n of the newest batches, oldest first.
func (b *Backend) Recent(n int) []core.TelemetryBatch {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.batches.Last(n)
}

// Hotspots returns a copy of the retained fire data.
func (b *Backend) Hotspots() []core.FireHotspot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.FireHotspot(nil), b.hotspots...)
}

// Len returns the number of retained batches.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.batches.Len()
}

// Evicted returns how many batches fell out of the ring.
func (b *Backend) Evicted() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.evicted
}

func cloneSnapshots(in []core.TelemetrySnapshot) []core.TelemetrySnapshot {
	if in == nil {
		return nil
	}
	out := make([]core.TelemetrySnapshot, len(in))
	copy(out, in)
	for i := range out {
		if out[i].Altitude != nil {
			alt := *out[i].Altitude
			out[i].Altitude = &alt
		}
	}
	return out
}
