// pkg/core/asset.go
package core

import "time"

// AssetKind classifies a response asset. The string value is the wire value
// sent to observers.
type AssetKind string

const (
	KindGround AssetKind = "scout"
	KindAerial AssetKind = "drone"
)

// Valid reports whether k is one of the known asset kinds.
func (k AssetKind) Valid() bool {
	switch k {
	case KindGround, KindAerial:
		return true
	}
	return false
}

// LatLon is a geographic coordinate in decimal degrees (EPSG:4326).
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FireCenter is the reference point for every distance and temperature
// calculation: Paradise, California (Camp Fire, November 2018).
var FireCenter = LatLon{Lat: 39.7596, Lon: -121.6219}

// Waypoint is one point of an asset path. Alt is meters above ground and is
// nil for ground units.
type Waypoint struct {
	Lat float64  `json:"lat" yaml:"lat"`
	Lon float64  `json:"lon" yaml:"lon"`
	Alt *float64 `json:"altitude,omitempty" yaml:"alt,omitempty"`
}

// Asset is a static, registered response unit. Path is cyclic and never empty
// once the asset is accepted by the engine.
type Asset struct {
	ID              string
	Name            string
	Kind            AssetKind
	Path            []Waypoint
	Speed           float64 // meters per second
	BatteryCapacity float64 // percentage
}

// AssetState is the mutable runtime state of one asset.
type AssetState struct {
	Cursor     int
	Battery    float64
	LastUpdate time.Time
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}
