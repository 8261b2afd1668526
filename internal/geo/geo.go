package geo

import (
	"math"

	"github.com/aigeo-prime/firewatch/internal/random"
	"github.com/aigeo-prime/firewatch/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// EarthRadius is the mean Earth radius in meters used by Distance.
const EarthRadius = 6371000.0

const (
	ambientTemperature = 20.0
	fireTemperature    = 80.0
	decayDistance      = 2500.0 // meters
	temperatureNoise   = 5.0    // total span, centered on zero
)

// Distance returns the great-circle distance in meters between two points
// using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// BaselineTemperature is the noise-free temperature in Celsius at the given
// distance in meters from the fire center: 100 at the center, decaying
// toward 20.
func BaselineTemperature(distance float64) float64 {
	return ambientTemperature + fireTemperature*math.Exp(-distance/decayDistance)
}

// Temperature returns the temperature at (lat, lon) relative to
// core.FireCenter with noise in [-2.5, +2.5] drawn from src. A nil src
// yields the baseline.
func Temperature(lat, lon float64, src random.Source) float64 {
	return TemperatureAround(core.FireCenter, lat, lon, src)
}

// TemperatureAround is Temperature against an arbitrary center.
func TemperatureAround(center core.LatLon, lat, lon float64, src random.Source) float64 {
	d := Distance(lat, lon, center.Lat, center.Lon)
	return BaselineTemperature(d) + random.Jitter(src, temperatureNoise)
}

// ToWebMercator projects a WGS84 longitude/latitude into an EPSG:3857 point.
// Stored geometry is always 3857 since SQLite has no spatial awareness.
func ToWebMercator(lon, lat float64) geom.Point {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(lon, lat, 0)
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: x, Y: y},
		Type: geom.DimXY,
	})
}
