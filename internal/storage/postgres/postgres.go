// Package postgresstorage persists telemetry to PostgreSQL through the shared
// gorm backend.
package postgresstorage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aigeo-prime/firewatch/internal/database"
	gormstorage "github.com/aigeo-prime/firewatch/internal/storage/gorm"
	"github.com/aigeo-prime/firewatch/pkg/core"
)

// ErrNotInitialized is returned by writes before a successful Init.
var ErrNotInitialized = errors.New("postgres backend not initialized")

// Backend connects lazily in Init.
type Backend struct {
	cfg database.PostgresConfig
	log zerolog.Logger

	mu    sync.RWMutex
	inner *gormstorage.Backend
}

// New creates an unconnected backend.
func New(cfg database.PostgresConfig, log zerolog.Logger) *Backend {
	return &Backend{cfg: cfg, log: log}
}

// Init connects and migrates the schema.
func (b *Backend) Init() error {
	db, err := database.OpenPostgres(b.cfg, b.log)
	if err != nil {
		return fmt.Errorf("connect postgres %s:%d: %w", b.cfg.Host, b.cfg.Port, err)
	}
	inner := gormstorage.New(db, b.log)
	if err := inner.Init(); err != nil {
		_ = inner.Close()
		return err
	}

	b.mu.Lock()
	b.inner = inner
	b.mu.Unlock()
	return nil
}

// Close releases the connection if one was opened.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inner == nil {
		return nil
	}
	err := b.inner.Close()
	b.inner = nil
	return err
}

// RecordBatch writes the batch through gorm.
func (b *Backend) RecordBatch(batch core.TelemetryBatch) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.inner == nil {
		return ErrNotInitialized
	}
	return b.inner.RecordBatch(batch)
}

// RecordHotspots writes the fire data through gorm.
func (b *Backend) RecordHotspots(hotspots []core.FireHotspot) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.inner == nil {
		return ErrNotInitialized
	}
	return b.inner.RecordHotspots(hotspots)
}
