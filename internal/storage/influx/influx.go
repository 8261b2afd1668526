// Package influxstorage writes delivered telemetry to InfluxDB as points of
// the asset_telemetry measurement. When the server is unreachable at Init
// the points go to a gzipped line protocol backup file instead.
package influxstorage

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/aigeo-prime/firewatch/pkg/core"
)

// Measurement is the point name for asset snapshots.
const Measurement = "asset_telemetry"

const retentionSeconds = 60 * 60 * 24 * 90 // 90 days

// Config for the InfluxDB backend.
type Config struct {
	URL           string
	Token         string
	Org           string
	Bucket        string
	BackupPath    string
	BatchSize     uint
	FlushInterval time.Duration

	// Provision creates the org and bucket when missing.
	Provision bool
}

// Backend writes telemetry points to InfluxDB or the backup file.
type Backend struct {
	cfg Config
	log zerolog.Logger

	mu         sync.Mutex
	client     influxdb2.Client
	writer     influxdb2_api.WriteAPI
	backupFile *os.File
	backup     *gzip.Writer
	valid      bool
	errsDone   chan struct{}
}

// New creates the backend. Nothing connects until Init.
func New(cfg Config, log zerolog.Logger) *Backend {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 2500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.BackupPath == "" {
		cfg.BackupPath = "firewatch_influx_backup.lp.gz"
	}
	return &Backend{cfg: cfg, log: log}
}

// Init connects, provisioning org and bucket when asked. An unreachable
// server switches to the backup writer rather than failing.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.client = influxdb2.NewClientWithOptions(
		b.cfg.URL,
		b.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(b.cfg.BatchSize).
			SetFlushInterval(uint(b.cfg.FlushInterval.Milliseconds())),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	running, err := b.client.Ping(ctx)
	if err != nil || !running {
		b.log.Warn().Err(err).Str("backupPath", b.cfg.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		b.client.Close()
		b.client = nil
		return b.openBackup()
	}

	if b.cfg.Provision {
		if err := b.provision(ctx); err != nil {
			return err
		}
	}

	b.writer = b.client.WriteAPI(b.cfg.Org, b.cfg.Bucket)
	b.errsDone = make(chan struct{})
	go func(errorsCh <-chan error) {
		defer close(b.errsDone)
		for writeErr := range errorsCh {
			b.log.Error().Err(writeErr).Str("bucket", b.cfg.Bucket).Msg("Error sending data to InfluxDB")
		}
	}(b.writer.Errors())

	b.valid = true
	b.log.Info().Str("url", b.cfg.URL).Str("bucket", b.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (b *Backend) openBackup() error {
	file, err := os.OpenFile(b.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	b.backupFile = file
	b.backup = gzip.NewWriter(file)
	return nil
}

func (b *Backend) provision(ctx context.Context) error {
	orgs := b.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, b.cfg.Org)
	if err != nil {
		b.log.Info().Str("org", b.cfg.Org).Msg("Organization not found, creating")
		if org, err = orgs.CreateOrganizationWithName(ctx, b.cfg.Org); err != nil {
			return fmt.Errorf("create organization %s: %w", b.cfg.Org, err)
		}
	}

	if _, err := b.client.BucketsAPI().FindBucketByName(ctx, b.cfg.Bucket); err != nil {
		b.log.Info().Str("bucket", b.cfg.Bucket).Msg("Bucket not found, creating")
		rule := domain.RetentionRuleTypeExpire
		_, err = b.client.BucketsAPI().CreateBucketWithName(ctx, org, b.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retentionSeconds,
		})
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", b.cfg.Bucket, err)
		}
	}
	return nil
}

// Connected reports whether points go to the server.
func (b *Backend) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.valid
}

// RecordBatch writes one point per snapshot.
func (b *Backend) RecordBatch(batch core.TelemetryBatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range batch.Snapshots {
		p := Point(batch.Seq, s)
		if b.valid {
			b.writer.WritePoint(p)
			continue
		}
		if b.backup == nil {
			return errors.New("influxDB client not initialized and backup writer not available")
		}
		line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
		if _, err := b.backup.Write([]byte(line)); err != nil {
			return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
		}
	}
	return nil
}

// Point converts a snapshot into its measurement point.
func Point(seq uint64, s core.TelemetrySnapshot) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(Measurement).
		AddTag("entityId", s.EntityID).
		AddTag("type", string(s.Kind)).
		AddTag("name", s.Name).
		AddField("lat", s.Lat).
		AddField("lon", s.Lon).
		AddField("temperature", s.Temperature).
		AddField("battery", s.Battery).
		AddField("speed", s.Speed).
		AddField("seq", seq).
		SetTime(time.UnixMilli(s.Timestamp))
	if s.Altitude != nil {
		p.AddField("altitude", *s.Altitude)
	}
	return p
}

// Close flushes pending points and releases the client or backup file.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	if b.writer != nil {
		b.writer.Flush()
	}
	if b.client != nil {
		b.client.Close()
		b.client = nil
	}
	if b.errsDone != nil {
		<-b.errsDone
		b.errsDone = nil
	}
	if b.backup != nil {
		errs = append(errs, b.backup.Close(), b.backupFile.Close())
		b.backup, b.backupFile = nil, nil
	}
	b.writer = nil
	b.valid = false
	return errors.Join(errs...)
}
