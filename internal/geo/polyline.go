package geo

import (
	"github.com/aigeo-prime/firewatch/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// PathLineString converts a waypoint path into a WGS84 LineString. The result
// is XYZ when every waypoint carries an altitude, XY otherwise. A path with
// fewer than two points yields an empty LineString.
func PathLineString(path []core.Waypoint) geom.LineString {
	if len(path) < 2 {
		return geom.LineString{}
	}

	withAlt := true
	for _, wp := range path {
		if wp.Alt == nil {
			withAlt = false
			break
		}
	}

	if withAlt {
		flat := make([]float64, 0, len(path)*3)
		for _, wp := range path {
			flat = append(flat, wp.Lon, wp.Lat, *wp.Alt)
		}
		return geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ))
	}

	flat := make([]float64, 0, len(path)*2)
	for _, wp := range path {
		flat = append(flat, wp.Lon, wp.Lat)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}
