package database

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aigeo-prime/firewatch/internal/model"
	"github.com/aigeo-prime/firewatch/pkg/core"
)

// MemoryDSN is the shared-cache in-memory SQLite database.
const MemoryDSN = "file::memory:?cache=shared"

// PostgresConfig holds connection settings for the Postgres recorder.
type PostgresConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	SSLMode  string
}

// DSN renders the libpq connection string. Empty fields are omitted.
func (c PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	parts := []string{"host=" + c.Host, fmt.Sprintf("port=%d", c.Port)}
	for _, kv := range [][2]string{{"user", c.Username}, {"password", c.Password}, {"dbname", c.Database}} {
		if kv[1] != "" {
			parts = append(parts, kv[0]+"="+kv[1])
		}
	}
	parts = append(parts, "sslmode="+sslMode)
	return strings.Join(parts, " ")
}

// OpenPostgres returns a GORM connection to Postgres and verifies it with a
// ping.
func OpenPostgres(cfg PostgresConfig, log zerolog.Logger) (*gorm.DB, error) {
	log.Debug().Str("host", cfg.Host).Int("port", cfg.Port).Str("database", cfg.Database).
		Msg("Connecting to Postgres DB")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	log.Info().Msg("Connected to database")
	return db, nil
}

// OpenSqlite returns a connection to a SQLite database.
// If path is empty, uses an in-memory database.
func OpenSqlite(path string, log zerolog.Logger) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = MemoryDSN
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if path == "" {
		log.Info().Msg("Using local SQLite DB in memory with periodic disk dump")
	} else {
		log.Info().Str("path", path).Msg("Using local SQLite DB")
	}

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	return db, nil
}

// Setup migrates tables and records the service info row if it does not
// exist yet.
func Setup(db *gorm.DB, serviceName string, log zerolog.Logger) error {
	if !db.Migrator().HasTable(&model.ServiceInfo{}) {
		if err := db.AutoMigrate(&model.ServiceInfo{}); err != nil {
			return fmt.Errorf("failed to create service_infos table: %w", err)
		}
		err := db.Create(&model.ServiceInfo{
			ServiceName:   serviceName,
			FireCenterLat: core.FireCenter.Lat,
			FireCenterLon: core.FireCenter.Lon,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to create service_infos entry: %w", err)
		}
	}

	log.Info().Str("dialect", db.Dialector.Name()).Msg("Migrating schema")
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info().Msg("Database setup complete")
	return nil
}

// DumpMemoryDBToDisk vacuums the in-memory database to a disk file,
// replacing any previous dump.
func DumpMemoryDBToDisk(db *gorm.DB, sqliteFilePath string) error {
	if sqliteFilePath == "" {
		return errors.New("sqlite file path not set")
	}

	if _, err := os.Stat(sqliteFilePath); err == nil {
		if err := os.Remove(sqliteFilePath); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	target := strings.ReplaceAll(sqliteFilePath, "'", "''")
	if err := db.Exec("VACUUM INTO '" + target + "';").Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}

	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Timed runs fn and returns its duration alongside its error.
func Timed(fn func() error) (time.Duration, error) {
	start := time.Now()
	err := fn()
	return time.Since(start), err
}
