package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aigeo-prime/firewatch/internal/paths"
	"github.com/aigeo-prime/firewatch/internal/random"
	"github.com/aigeo-prime/firewatch/pkg/core"
)

const sample = `
assets:
  - id: scout-bravo-03
    name: Scout Bravo-03
    kind: scout
    speed: 3.0
    batteryCapacity: 80
    waypoints:
      - {lat: 39.76, lon: -121.62}
      - {lat: 39.77, lon: -121.61}
  - id: drone-hawk-04
    kind: drone
    speed: 12
`

func TestParse(t *testing.T) {
	assets, center, err := Parse([]byte(sample), random.NewSeeded(1))
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, core.FireCenter, center)

	scout := assets[0]
	assert.Equal(t, "scout-bravo-03", scout.ID)
	assert.Equal(t, "Scout Bravo-03", scout.Name)
	assert.Equal(t, core.KindGround, scout.Kind)
	assert.Equal(t, 80.0, scout.BatteryCapacity)
	require.Len(t, scout.Path, 2)
	assert.Nil(t, scout.Path[0].Alt)

	drone := assets[1]
	assert.Equal(t, "drone-hawk-04", drone.Name)
	assert.Equal(t, 100.0, drone.BatteryCapacity)
	assert.Len(t, drone.Path, paths.AerialPoints)
	for _, w := range drone.Path {
		require.NotNil(t, w.Alt)
	}
}

func TestParse_FireCenter(t *testing.T) {
	doc := `
fireCenter: {lat: 34.05, lon: -118.25}
assets:
  - {id: scout-1, kind: scout, speed: 2}
`
	assets, center, err := Parse([]byte(doc), random.Constant(0.5))
	require.NoError(t, err)
	assert.Equal(t, core.LatLon{Lat: 34.05, Lon: -118.25}, center)
	assert.InDelta(t, 34.05, assets[0].Path[0].Lat, 0.1)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"syntax", "assets: [\n"},
		{"empty", "assets: []"},
		{"missing id", "assets:\n  - {kind: scout, speed: 1}"},
		{"unknown kind", "assets:\n  - {id: a, kind: tank, speed: 1}"},
		{"zero speed", "assets:\n  - {id: a, kind: scout, speed: 0}"},
		{"capacity above 100", "assets:\n  - {id: a, kind: scout, speed: 1, batteryCapacity: 120}"},
		{"bad latitude", "assets:\n  - {id: a, kind: scout, speed: 1, waypoints: [{lat: 95, lon: 0}]}"},
		{"duplicate", "assets:\n  - {id: a, kind: scout, speed: 1}\n  - {id: a, kind: drone, speed: 1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse([]byte(tt.doc), random.Constant(0.5))
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	assets, _, err := Load(path, random.NewSeeded(2))
	require.NoError(t, err)
	assert.Len(t, assets, 2)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.ErrorIs(t, err, ErrInvalidScenario)
}
