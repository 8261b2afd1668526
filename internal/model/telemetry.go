package model

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aigeo-prime/firewatch/internal/geo"
	"github.com/aigeo-prime/firewatch/pkg/core"
)

// DatabaseModels is a list of all the structs exported here which represent
// tables in the database schema.
var DatabaseModels = []interface{}{
	&ServiceInfo{},
	&TelemetryRecord{},
	&FireHotspotRecord{},
}

// ServiceInfo describes the instance that wrote the database.
type ServiceInfo struct {
	gorm.Model
	ServiceName   string  `json:"serviceName" gorm:"size:127"`
	FireCenterLat float64 `json:"fireCenterLat"`
	FireCenterLon float64 `json:"fireCenterLon"`
}

func (*ServiceInfo) TableName() string {
	return "service_infos"
}

// TelemetryRecord is one delivered asset snapshot. Position is stored as
// EPSG:3857 WKB; Latitude and Longitude keep the original WGS84 values.
type TelemetryRecord struct {
	ID          uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	Seq         uint64          `json:"seq" gorm:"index:idx_telemetry_seq"`
	Time        time.Time       `json:"time" gorm:"index:idx_telemetry_time"`
	EntityID    string          `json:"entityId" gorm:"size:64;index:idx_telemetry_entity_id"`
	Name        string          `json:"name" gorm:"size:127"`
	Kind        string          `json:"type" gorm:"size:16"`
	Position    geom.Point      `json:"position"`
	Latitude    float64         `json:"lat"`
	Longitude   float64         `json:"lon"`
	Altitude    sql.NullFloat64 `json:"altitude"`
	Temperature float64         `json:"temperature"`
	Battery     float64         `json:"battery"`
	Speed       float64         `json:"speed"`
	Raw         datatypes.JSON  `json:"raw"` // snapshot as delivered to observers
}

func (*TelemetryRecord) TableName() string {
	return "telemetry_records"
}

// FireHotspotRecord is one hotspot of the static fire data set.
type FireHotspotRecord struct {
	ID         uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	HotspotID  string     `json:"hotspotId" gorm:"size:32;uniqueIndex:idx_hotspot_id"`
	Position   geom.Point `json:"position"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Brightness float64    `json:"brightness"`
	Scan       float64    `json:"scan"`
	Track      float64    `json:"track"`
	AcqDate    string     `json:"acqDate" gorm:"size:10"`
	AcqTime    string     `json:"acqTime" gorm:"size:4"`
	Satellite  string     `json:"satellite" gorm:"size:16"`
	Confidence int        `json:"confidence"`
	Version    string     `json:"version" gorm:"size:8"`
	BrightT31  float64    `json:"brightT31"`
	FRP        float64    `json:"frp"`
	DayNight   string     `json:"daynight" gorm:"size:1"`
	Type       int        `json:"type"`
}

func (*FireHotspotRecord) TableName() string {
	return "fire_hotspots"
}

// NewTelemetryRecords flattens a batch into one row per snapshot.
func NewTelemetryRecords(batch core.TelemetryBatch) ([]TelemetryRecord, error) {
	records := make([]TelemetryRecord, 0, len(batch.Snapshots))
	for _, s := range batch.Snapshots {
		raw, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("marshal snapshot %s: %w", s.EntityID, err)
		}
		r := TelemetryRecord{
			Seq:         batch.Seq,
			Time:        batch.Time.UTC(),
			EntityID:    s.EntityID,
			Name:        s.Name,
			Kind:        string(s.Kind),
			Position:    geo.ToWebMercator(s.Lon, s.Lat),
			Latitude:    s.Lat,
			Longitude:   s.Lon,
			Temperature: s.Temperature,
			Battery:     s.Battery,
			Speed:       s.Speed,
			Raw:         datatypes.JSON(raw),
		}
		if s.Altitude != nil {
			r.Altitude = sql.NullFloat64{Float64: *s.Altitude, Valid: true}
		}
		records = append(records, r)
	}
	return records, nil
}

// Snapshot decodes the stored wire form of the record.
func (r *TelemetryRecord) Snapshot() (core.TelemetrySnapshot, error) {
	var s core.TelemetrySnapshot
	if err := json.Unmarshal(r.Raw, &s); err != nil {
		return core.TelemetrySnapshot{}, fmt.Errorf("decode telemetry record %d: %w", r.ID, err)
	}
	return s, nil
}

// NewFireHotspotRecord converts a hotspot into its table row.
func NewFireHotspotRecord(h core.FireHotspot) FireHotspotRecord {
	return FireHotspotRecord{
		HotspotID:  h.ID,
		Position:   geo.ToWebMercator(h.Longitude, h.Latitude),
		Latitude:   h.Latitude,
		Longitude:  h.Longitude,
		Brightness: h.Brightness,
		Scan:       h.Scan,
		Track:      h.Track,
		AcqDate:    h.AcqDate,
		AcqTime:    h.AcqTime,
		Satellite:  h.Satellite,
		Confidence: h.Confidence,
		Version:    h.Version,
		BrightT31:  h.BrightT31,
		FRP:        h.FRP,
		DayNight:   h.DayNight,
		Type:       h.Type,
	}
}
