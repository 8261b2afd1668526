// internal/storage/storage_test.go
package storage

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aigeo-prime/firewatch/internal/config"
	"github.com/aigeo-prime/firewatch/internal/storage/memory"
	"github.com/aigeo-prime/firewatch/pkg/core"
)

type fakeBackend struct {
	mu       sync.Mutex
	initErr  error
	writeErr error
	inited   bool
	closed   bool
	batches  []core.TelemetryBatch
	hotspots []core.FireHotspot
	block    chan struct{}
}

func (f *fakeBackend) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inited = f.initErr == nil
	return f.initErr
}

func (f *fakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeBackend) RecordBatch(b core.TelemetryBatch) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, b)
	return f.writeErr
}

func (f *fakeBackend) RecordHotspots(hs []core.FireHotspot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hotspots = hs
	return nil
}

func (f *fakeBackend) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		typ     string
		wantNil bool
		wantErr error
	}{
		{"", true, nil},
		{"none", true, nil},
		{"memory", false, nil},
		{"postgres", false, nil},
		{"influx", false, nil},
		{"cassandra", true, ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			b, err := NewBackend(config.StorageConfig{Type: tt.typ}, zerolog.Nop())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNil, b == nil)
		})
	}
}

func TestRecorder_FansOutInOrder(t *testing.T) {
	a, b := &fakeBackend{}, &fakeBackend{}
	r, err := NewRecorder([]Backend{a, nil, b}, 16, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, r.Init())

	for seq := uint64(1); seq <= 5; seq++ {
		r.Broadcast("telemetry", core.TelemetryBatch{Seq: seq})
	}
	require.NoError(t, r.Close())

	for _, f := range []*fakeBackend{a, b} {
		require.Len(t, f.batches, 5)
		for i, batch := range f.batches {
			assert.Equal(t, uint64(i+1), batch.Seq)
		}
		assert.True(t, f.closed)
	}

	recorded, failures, dropped := r.Stats()
	assert.Equal(t, uint64(5), recorded)
	assert.Zero(t, failures)
	assert.Zero(t, dropped)
}

func TestRecorder_WriteErrorsCounted(t *testing.T) {
	bad := &fakeBackend{writeErr: errors.New("disk full")}
	good := &fakeBackend{}
	r, err := NewRecorder([]Backend{bad, good}, 4, zerolog.Nop())
	require.NoError(t, err)

	r.Broadcast("telemetry", core.TelemetryBatch{Seq: 1})
	require.NoError(t, r.Close())

	_, failures, _ := r.Stats()
	assert.Equal(t, uint64(1), failures)
	assert.Equal(t, 1, good.count())
}

func TestRecorder_DropsWhenQueueFull(t *testing.T) {
	slow := &fakeBackend{block: make(chan struct{})}
	r, err := NewRecorder([]Backend{slow}, 1, zerolog.Nop())
	require.NoError(t, err)

	r.Broadcast("telemetry", core.TelemetryBatch{Seq: 1})
	// wait until the worker holds batch 1 so the queue slot is free
	time.Sleep(20 * time.Millisecond)
	r.Broadcast("telemetry", core.TelemetryBatch{Seq: 2})
	r.Broadcast("telemetry", core.TelemetryBatch{Seq: 3})

	_, _, dropped := r.Stats()
	assert.Equal(t, uint64(1), dropped)

	close(slow.block)
	require.NoError(t, r.Close())
	assert.Equal(t, 2, slow.count())
}

func TestRecorder_DropReasonsLogged(t *testing.T) {
	var buf bytes.Buffer
	slow := &fakeBackend{block: make(chan struct{})}
	r, err := NewRecorder([]Backend{slow}, 1, zerolog.New(&buf).Level(zerolog.DebugLevel))
	require.NoError(t, err)

	r.Broadcast("telemetry", core.TelemetryBatch{Seq: 1})
	time.Sleep(20 * time.Millisecond)
	r.Broadcast("telemetry", core.TelemetryBatch{Seq: 2})
	r.Broadcast("telemetry", core.TelemetryBatch{Seq: 3})
	assert.Contains(t, buf.String(), "Recorder queue full")

	close(slow.block)
	require.NoError(t, r.Close())
	buf.Reset()

	r.Broadcast("telemetry", core.TelemetryBatch{Seq: 4})
	out := buf.String()
	assert.Contains(t, out, "Recorder closed, discarding batch")
	assert.NotContains(t, out, "queue full")

	_, _, dropped := r.Stats()
	assert.Equal(t, uint64(2), dropped)
}

func TestRecorder_InitFailureClosesEarlier(t *testing.T) {
	first := &fakeBackend{}
	second := &fakeBackend{initErr: errors.New("unreachable")}
	r, err := NewRecorder([]Backend{first, second}, 4, zerolog.Nop())
	require.NoError(t, err)

	assert.Error(t, r.Init())
	assert.True(t, first.closed)
}

func TestRecorder_HotspotsAndHistory(t *testing.T) {
	mem := memory.New(10)
	f := &fakeBackend{}
	r, err := NewRecorder([]Backend{f, mem}, 4, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, r.Init())

	hs := []core.FireHotspot{{ID: "MODIS_0"}}
	require.NoError(t, r.RecordHotspots(hs))
	assert.Equal(t, hs, f.hotspots)
	assert.Equal(t, hs, mem.Hotspots())

	r.Broadcast("telemetry", core.TelemetryBatch{Seq: 1})
	r.Broadcast("telemetry", core.TelemetryBatch{Seq: 2})
	require.NoError(t, r.Close())

	h := r.History()
	require.NotNil(t, h)
	assert.Same(t, mem, h)
}

func TestRecorder_NoBackends(t *testing.T) {
	r, err := NewRecorder(nil, 0, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, r.Init())

	r.Broadcast("telemetry", core.TelemetryBatch{Seq: 1})
	assert.Nil(t, r.History())
	require.NoError(t, r.Close())
}
