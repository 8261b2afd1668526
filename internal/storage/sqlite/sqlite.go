// Package sqlitestorage is an in-memory SQLite backend that periodically
// dumps itself to disk.
package sqlitestorage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aigeo-prime/firewatch/internal/database"
	gormstorage "github.com/aigeo-prime/firewatch/internal/storage/gorm"
)

// DefaultDumpInterval applies when Config.DumpInterval is zero.
const DefaultDumpInterval = 3 * time.Minute

// Config for the SQLite backend. An empty Path keeps the database in memory.
type Config struct {
	Path         string
	DumpPath     string
	DumpInterval time.Duration
}

// Backend embeds the gorm backend and adds the periodic dump.
type Backend struct {
	*gormstorage.Backend

	cfg Config
	log zerolog.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	running  bool
}

// New opens the database. The schema is created by Init.
func New(cfg Config, log zerolog.Logger) (*Backend, error) {
	if cfg.DumpInterval <= 0 {
		cfg.DumpInterval = DefaultDumpInterval
	}
	db, err := database.OpenSqlite(cfg.Path, log)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &Backend{
		Backend:  gormstorage.New(db, log),
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates and starts the dump loop when a dump path is set.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if b.cfg.DumpPath != "" {
		if err := os.MkdirAll(filepath.Dir(b.cfg.DumpPath), 0o755); err != nil {
			return fmt.Errorf("create dump directory: %w", err)
		}
		b.running = true
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Dump writes the current database to the configured dump path.
func (b *Backend) Dump() error {
	elapsed, err := database.Timed(func() error {
		return database.DumpMemoryDBToDisk(b.DB(), b.cfg.DumpPath)
	})
	if err != nil {
		return err
	}
	b.log.Debug().Dur("elapsed", elapsed).Str("path", b.cfg.DumpPath).Msg("Dumped SQLite database")
	return nil
}

// Close stops the dump loop, writes a final dump, then closes the database.
func (b *Backend) Close() error {
	var errs []error
	b.stopOnce.Do(func() {
		close(b.stopChan)
		b.wg.Wait()
		if b.running {
			if err := b.Dump(); err != nil {
				errs = append(errs, fmt.Errorf("final dump: %w", err))
			}
		}
		errs = append(errs, b.Backend.Close())
	})
	return errors.Join(errs...)
}

func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Error().Err(err).Msg("Periodic SQLite dump failed")
			}
		case <-b.stopChan:
			return
		}
	}
}
