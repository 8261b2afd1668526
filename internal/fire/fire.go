// Package fire fabricates the static Camp Fire hotspot set (Paradise, CA,
// November 2018) and renders it as GeoJSON.
package fire

import (
	"fmt"
	"math"

	"github.com/aigeo-prime/firewatch/internal/random"
	"github.com/aigeo-prime/firewatch/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// HotspotCount is the number of generated detections.
const HotspotCount = 150

const (
	minRadius    = 0.02 // degrees, ~2km
	radiusSpan   = 0.08
	angleJitter  = 0.3
	falloffLimit = 0.1 // degrees beyond which intensity is zero

	acqDate  = "2018-11-08"
	acqTime  = "1830"
	version  = "6.1"
	dayNight = "N"
)

// Generate returns HotspotCount detections scattered around core.FireCenter.
// Brightness and FRP are higher closer to the center.
func Generate(src random.Source) []core.FireHotspot {
	return GenerateAround(core.FireCenter, src)
}

// GenerateAround is Generate for an arbitrary center.
func GenerateAround(center core.LatLon, src random.Source) []core.FireHotspot {
	if src == nil {
		src = random.Constant(0.5)
	}

	hotspots := make([]core.FireHotspot, 0, HotspotCount)
	for i := 0; i < HotspotCount; i++ {
		angle := float64(i) / HotspotCount * math.Pi * 2
		radius := minRadius + src.Float64()*radiusSpan
		angle += random.Jitter(src, angleJitter)

		lat := center.Lat + math.Cos(angle)*radius
		lon := center.Lon + math.Sin(angle)*radius

		dist := math.Hypot(lat-center.Lat, lon-center.Lon)
		intensity := 1 - math.Min(dist/falloffLimit, 1)

		h := core.FireHotspot{
			ID:         fmt.Sprintf("MODIS_%d", i),
			Latitude:   lat,
			Longitude:  lon,
			Brightness: 320 + intensity*80 + src.Float64()*20,
			Scan:       1 + src.Float64()*0.5,
			Track:      1 + src.Float64()*0.5,
			AcqDate:    acqDate,
			AcqTime:    acqTime,
			Version:    version,
			DayNight:   dayNight,
			Type:       0,
		}
		if src.Float64() > 0.5 {
			h.Satellite = "Terra"
		} else {
			h.Satellite = "Aqua"
		}
		h.Confidence = 80 + int(math.Floor(src.Float64()*20))
		h.BrightT31 = 290 + intensity*30 + src.Float64()*10
		h.FRP = 50 + intensity*200 + src.Float64()*50

		hotspots = append(hotspots, h)
	}

	return hotspots
}

// FeatureCollection renders hotspots as a GeoJSON FeatureCollection of
// points with a subset of the detection attributes as properties.
func FeatureCollection(hotspots []core.FireHotspot) geom.GeoJSONFeatureCollection {
	fc := make(geom.GeoJSONFeatureCollection, 0, len(hotspots))
	for _, h := range hotspots {
		pt := geom.NewPoint(geom.Coordinates{
			XY:   geom.XY{X: h.Longitude, Y: h.Latitude},
			Type: geom.DimXY,
		})
		fc = append(fc, geom.GeoJSONFeature{
			ID:       h.ID,
			Geometry: pt.AsGeometry(),
			Properties: map[string]interface{}{
				"brightness": h.Brightness,
				"confidence": h.Confidence,
				"frp":        h.FRP,
				"satellite":  h.Satellite,
				"acq_date":   h.AcqDate,
				"acq_time":   h.AcqTime,
			},
		})
	}
	return fc
}

// Data is the process-wide immutable hotspot set, generated once.
type Data struct {
	hotspots []core.FireHotspot
	geojson  []byte
}

// NewData generates the hotspot set around core.FireCenter and pre-renders
// its GeoJSON.
func NewData(src random.Source) (*Data, error) {
	return NewDataAround(core.FireCenter, src)
}

// NewDataAround is NewData for an arbitrary fire center.
func NewDataAround(center core.LatLon, src random.Source) (*Data, error) {
	hs := GenerateAround(center, src)
	b, err := FeatureCollection(hs).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("render fire geojson: %w", err)
	}
	return &Data{hotspots: hs, geojson: b}, nil
}

// Hotspots returns a copy of the hotspot set.
func (d *Data) Hotspots() []core.FireHotspot {
	out := make([]core.FireHotspot, len(d.hotspots))
	copy(out, d.hotspots)
	return out
}

// GeoJSON returns the rendered FeatureCollection. Callers must not modify
// the returned slice.
func (d *Data) GeoJSON() []byte {
	return d.geojson
}
