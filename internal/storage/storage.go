// internal/storage/storage.go
package storage

import (
	"errors"

	"github.com/aigeo-prime/firewatch/pkg/core"
)

// ErrUnknownBackend is returned by NewBackend for an unrecognized
// storage.type.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Backend is the interface all recorder implementations must satisfy.
// Backends are write-only taps on the delivered telemetry stream; the engine
// never reads from them.
type Backend interface {
	Init() error
	Close() error

	RecordBatch(batch core.TelemetryBatch) error
}

// HotspotRecorder is an optional interface for backends that persist the
// static fire data set once at startup.
type HotspotRecorder interface {
	RecordHotspots(hotspots []core.FireHotspot) error
}

// HistoryProvider is an optional interface for backends that can return the
// most recent batches, oldest first.
type HistoryProvider interface {
	Recent(n int) []core.TelemetryBatch
}
