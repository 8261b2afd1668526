// Package gormstorage persists delivered telemetry through gorm. It is shared
// by the sqlite and postgres backends.
package gormstorage

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aigeo-prime/firewatch/internal/database"
	"github.com/aigeo-prime/firewatch/internal/model"
	"github.com/aigeo-prime/firewatch/pkg/core"
)

const (
	serviceName = "firewatch"
	batchSize   = 500
)

// Backend writes telemetry and hotspot rows to a gorm database.
type Backend struct {
	db  *gorm.DB
	log zerolog.Logger
}

// New wraps an open database.
func New(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{db: db, log: log}
}

// DB returns the underlying handle.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Init migrates the schema.
func (b *Backend) Init() error {
	return database.Setup(b.db, serviceName, b.log)
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	return database.Close(b.db)
}

// RecordBatch inserts one row per snapshot.
func (b *Backend) RecordBatch(batch core.TelemetryBatch) error {
	records, err := model.NewTelemetryRecords(batch)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	elapsed, err := database.Timed(func() error {
		return b.db.CreateInBatches(&records, batchSize).Error
	})
	if err != nil {
		return fmt.Errorf("insert telemetry seq %d: %w", batch.Seq, err)
	}
	if elapsed > 100*time.Millisecond {
		b.log.Warn().Dur("elapsed", elapsed).Uint64("seq", batch.Seq).Msg("Slow telemetry insert")
	}
	return nil
}

// RecordHotspots inserts the fire data set, ignoring hotspots already stored.
func (b *Backend) RecordHotspots(hotspots []core.FireHotspot) error {
	if len(hotspots) == 0 {
		return nil
	}
	rows := make([]model.FireHotspotRecord, 0, len(hotspots))
	for _, h := range hotspots {
		rows = append(rows, model.NewFireHotspotRecord(h))
	}

	err := b.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hotspot_id"}},
		DoNothing: true,
	}).CreateInBatches(&rows, batchSize).Error
	if err != nil {
		return fmt.Errorf("insert hotspots: %w", err)
	}
	return nil
}

// Recent returns up to n of the newest stored batches, oldest first.
func (b *Backend) Recent(n int) []core.TelemetryBatch {
	if n <= 0 {
		return nil
	}

	var seqs []uint64
	err := b.db.Model(&model.TelemetryRecord{}).
		Distinct("seq").
		Order("seq desc").
		Limit(n).
		Pluck("seq", &seqs).Error
	if err != nil {
		b.log.Error().Err(err).Msg("Failed to query recent sequence numbers")
		return nil
	}
	if len(seqs) == 0 {
		return nil
	}

	var rows []model.TelemetryRecord
	if err := b.db.Where("seq IN ?", seqs).Order("seq asc, id asc").Find(&rows).Error; err != nil {
		b.log.Error().Err(err).Msg("Failed to query recent telemetry")
		return nil
	}

	batches := make([]core.TelemetryBatch, 0, len(seqs))
	for i := range rows {
		r := &rows[i]
		if len(batches) == 0 || batches[len(batches)-1].Seq != r.Seq {
			batches = append(batches, core.TelemetryBatch{Seq: r.Seq, Time: r.Time})
		}
		s, err := r.Snapshot()
		if err != nil {
			b.log.Warn().Err(err).Msg("Skipping undecodable telemetry row")
			continue
		}
		last := &batches[len(batches)-1]
		last.Snapshots = append(last.Snapshots, s)
	}
	return batches
}
