// Package paths fabricates the cyclic waypoint paths followed by simulated
// assets around the fire center.
package paths

import (
	"errors"
	"fmt"
	"math"

	"github.com/aigeo-prime/firewatch/internal/random"
	"github.com/aigeo-prime/firewatch/pkg/core"
)

// ErrUnknownKind is returned when a path is requested for an asset kind that
// has no generator.
var ErrUnknownKind = errors.New("unknown asset kind")

const (
	GroundPoints = 100
	AerialPoints = 80

	groundStartOffset  = 0.045 // degrees west of center
	groundApproachEnd  = 0.3   // fraction of the path spent approaching
	groundApproachSpan = 0.15  // degrees of longitude covered while approaching
	groundApproachJit  = 0.002
	groundOrbitTurns   = 1.5
	groundOrbitRadius  = 0.025 // ~2.5km
	groundOrbitJit     = 0.001

	aerialStartOffset = 0.027 // degrees north of center
	aerialRows        = 4
	aerialRowSpacing  = 0.018
	aerialSweepWidth  = 0.04
	aerialJit         = 0.0005
	aerialMinAlt      = 150.0
	aerialAltSpan     = 50.0
)

// Generate returns a path for the given kind around core.FireCenter.
func Generate(kind core.AssetKind, src random.Source) ([]core.Waypoint, error) {
	return GenerateAround(core.FireCenter, kind, src)
}

// GenerateAround returns a path for the given kind around center.
func GenerateAround(center core.LatLon, kind core.AssetKind, src random.Source) ([]core.Waypoint, error) {
	switch kind {
	case core.KindGround:
		return Ground(center, src), nil
	case core.KindAerial:
		return Aerial(center, src), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Ground approaches the fire from the west for the first 30% of its points,
// then patrols one and a half turns of the perimeter. Ground waypoints carry
// no altitude.
func Ground(center core.LatLon, src random.Source) []core.Waypoint {
	path := make([]core.Waypoint, 0, GroundPoints)
	startLat := center.Lat
	startLon := center.Lon - groundStartOffset

	for i := 0; i < GroundPoints; i++ {
		progress := float64(i) / GroundPoints

		if progress < groundApproachEnd {
			path = append(path, core.Waypoint{
				Lat: startLat + random.Jitter(src, groundApproachJit),
				Lon: startLon + progress*groundApproachSpan,
			})
			continue
		}

		angle := (progress - groundApproachEnd) * math.Pi * 2 * groundOrbitTurns
		path = append(path, core.Waypoint{
			Lat: center.Lat + math.Cos(angle)*groundOrbitRadius + random.Jitter(src, groundOrbitJit),
			Lon: center.Lon + math.Sin(angle)*groundOrbitRadius + random.Jitter(src, groundOrbitJit),
		})
	}

	return path
}

// Aerial flies a four row boustrophedon sweep over the fire at 150-200m.
func Aerial(center core.LatLon, src random.Source) []core.Waypoint {
	path := make([]core.Waypoint, 0, AerialPoints)
	startLat := center.Lat + aerialStartOffset
	startLon := center.Lon

	for i := 0; i < AerialPoints; i++ {
		progress := float64(i) / AerialPoints
		row := math.Floor(progress * aerialRows)
		col := math.Mod(progress*aerialRows, 1)

		latOffset := -aerialStartOffset + row*aerialRowSpacing
		sweep := col
		if int(row)%2 != 0 {
			sweep = 1 - col
		}
		lonOffset := sweep*aerialSweepWidth - aerialSweepWidth/2

		wp := core.Waypoint{
			Lat: startLat + latOffset + random.Jitter(src, aerialJit),
			Lon: startLon + lonOffset + random.Jitter(src, aerialJit),
		}
		var u float64
		if src != nil {
			u = src.Float64()
		}
		wp.Alt = core.Float64Ptr(aerialMinAlt + u*aerialAltSpan)
		path = append(path, wp)
	}

	return path
}

// DefaultAssets returns the reference registry: one ground scout and one
// aerial drone, both with full batteries.
func DefaultAssets(src random.Source) []core.Asset {
	return []core.Asset{
		{
			ID:              "scout-alpha-01",
			Name:            "Scout Alpha-01",
			Kind:            core.KindGround,
			Path:            Ground(core.FireCenter, src),
			Speed:           2.5,
			BatteryCapacity: 100,
		},
		{
			ID:              "drone-eagle-02",
			Name:            "Drone Eagle-02",
			Kind:            core.KindAerial,
			Path:            Aerial(core.FireCenter, src),
			Speed:           15,
			BatteryCapacity: 100,
		},
	}
}
