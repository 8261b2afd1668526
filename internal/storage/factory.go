// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aigeo-prime/firewatch/internal/config"
	"github.com/aigeo-prime/firewatch/internal/database"
	gormstorage "github.com/aigeo-prime/firewatch/internal/storage/gorm"
	influxstorage "github.com/aigeo-prime/firewatch/internal/storage/influx"
	"github.com/aigeo-prime/firewatch/internal/storage/memory"
	postgresstorage "github.com/aigeo-prime/firewatch/internal/storage/postgres"
	sqlitestorage "github.com/aigeo-prime/firewatch/internal/storage/sqlite"
)

// Compile-time interface checks
var (
	_ Backend         = (*memory.Backend)(nil)
	_ HistoryProvider = (*memory.Backend)(nil)
	_ HotspotRecorder = (*memory.Backend)(nil)
	_ Backend         = (*gormstorage.Backend)(nil)
	_ HistoryProvider = (*gormstorage.Backend)(nil)
	_ HotspotRecorder = (*gormstorage.Backend)(nil)
	_ Backend         = (*sqlitestorage.Backend)(nil)
	_ Backend         = (*postgresstorage.Backend)(nil)
	_ HotspotRecorder = (*postgresstorage.Backend)(nil)
	_ Backend         = (*influxstorage.Backend)(nil)
)

// NewBackend creates a storage backend based on configuration. The "none"
// type returns a nil backend and no error.
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return memory.New(cfg.Memory.Capacity), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpPath:     cfg.SQLite.DumpPath,
			DumpInterval: cfg.SQLite.DumpInterval,
		}, log)
	case "postgres":
		return postgresstorage.New(database.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Username: cfg.Postgres.Username,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		}, log), nil
	case "influx":
		return influxstorage.New(influxstorage.Config{
			URL:           cfg.Influx.URL,
			Token:         cfg.Influx.Token,
			Org:           cfg.Influx.Org,
			Bucket:        cfg.Influx.Bucket,
			BackupPath:    cfg.Influx.BackupPath,
			BatchSize:     cfg.Influx.BatchSize,
			FlushInterval: cfg.Influx.FlushInterval,
			Provision:     cfg.Influx.Provision,
		}, log), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Type)
	}
}
