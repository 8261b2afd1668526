// pkg/core/telemetry.go
package core

import "time"

// TelemetrySnapshot is the computed state of one asset at one tick.
type TelemetrySnapshot struct {
	EntityID    string    `json:"entityId"`
	Name        string    `json:"name"`
	Kind        AssetKind `json:"type"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	Altitude    *float64  `json:"altitude,omitempty"`
	Temperature float64   `json:"temperature"` // Celsius
	Battery     float64   `json:"battery"`     // percentage
	Speed       float64   `json:"speed"`       // m/s
	Timestamp   int64     `json:"timestamp"`   // epoch millis
}

// TelemetryBatch groups the snapshots computed during one tick.
// Seq starts at 1 and increases by one per tick.
type TelemetryBatch struct {
	Seq       uint64
	Time      time.Time
	Snapshots []TelemetrySnapshot
}
