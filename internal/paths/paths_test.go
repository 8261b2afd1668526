package paths

import (
	"math"
	"testing"

	"github.com/aigeo-prime/firewatch/internal/random"
	"github.com/aigeo-prime/firewatch/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGround_Shape(t *testing.T) {
	path := Ground(core.FireCenter, random.Constant(0.5))
	require.Len(t, path, GroundPoints)

	// approach phase starts 0.045 degrees west and heads east
	assert.InDelta(t, core.FireCenter.Lat, path[0].Lat, 1e-12)
	assert.InDelta(t, core.FireCenter.Lon-0.045, path[0].Lon, 1e-12)
	assert.InDelta(t, core.FireCenter.Lon-0.045+0.29*0.15, path[29].Lon, 1e-12)

	// patrol starts due north at radius 0.025
	assert.InDelta(t, core.FireCenter.Lat+0.025, path[30].Lat, 1e-12)
	assert.InDelta(t, core.FireCenter.Lon, path[30].Lon, 1e-12)

	for i, wp := range path {
		assert.Nil(t, wp.Alt, "waypoint %d", i)
	}
	for i := 30; i < GroundPoints; i++ {
		r := math.Hypot(path[i].Lat-core.FireCenter.Lat, path[i].Lon-core.FireCenter.Lon)
		assert.InDelta(t, 0.025, r, 1e-9, "waypoint %d", i)
	}
}

func TestGround_JitterBounded(t *testing.T) {
	path := Ground(core.FireCenter, random.NewSeeded(3))
	for i := 0; i < 30; i++ {
		assert.InDelta(t, core.FireCenter.Lat, path[i].Lat, 0.001)
	}
}

func TestAerial_Shape(t *testing.T) {
	path := Aerial(core.FireCenter, random.Constant(0.5))
	require.Len(t, path, AerialPoints)

	// row 0 sweeps west to east at the southern edge
	assert.InDelta(t, core.FireCenter.Lat, path[0].Lat, 1e-12)
	assert.InDelta(t, core.FireCenter.Lon-0.02, path[0].Lon, 1e-12)

	// row 1 sweeps back east to west
	assert.InDelta(t, core.FireCenter.Lat+0.018, path[20].Lat, 1e-12)
	assert.InDelta(t, core.FireCenter.Lon+0.02, path[20].Lon, 1e-12)

	assert.InDelta(t, core.FireCenter.Lat+3*0.018, path[79].Lat, 1e-12)

	for i, wp := range path {
		require.NotNil(t, wp.Alt, "waypoint %d", i)
		assert.InDelta(t, 175.0, *wp.Alt, 1e-12)
	}
}

func TestAerial_AltitudeRange(t *testing.T) {
	path := Aerial(core.FireCenter, random.NewSeeded(11))
	for _, wp := range path {
		require.NotNil(t, wp.Alt)
		assert.GreaterOrEqual(t, *wp.Alt, 150.0)
		assert.Less(t, *wp.Alt, 200.0)
	}
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		kind    core.AssetKind
		want    int
		wantErr bool
	}{
		{core.KindGround, GroundPoints, false},
		{core.KindAerial, AerialPoints, false},
		{core.AssetKind("boat"), 0, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			path, err := Generate(tt.kind, random.NewSeeded(1))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownKind)
				return
			}
			require.NoError(t, err)
			assert.Len(t, path, tt.want)
		})
	}
}

func TestGenerate_SeededReproducible(t *testing.T) {
	a, err := Generate(core.KindAerial, random.NewSeeded(99))
	require.NoError(t, err)
	b, err := Generate(core.KindAerial, random.NewSeeded(99))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDefaultAssets(t *testing.T) {
	assets := DefaultAssets(random.NewSeeded(1))
	require.Len(t, assets, 2)

	assert.Equal(t, "scout-alpha-01", assets[0].ID)
	assert.Equal(t, "Scout Alpha-01", assets[0].Name)
	assert.Equal(t, core.KindGround, assets[0].Kind)
	assert.Equal(t, 2.5, assets[0].Speed)
	assert.Len(t, assets[0].Path, GroundPoints)

	assert.Equal(t, "drone-eagle-02", assets[1].ID)
	assert.Equal(t, "Drone Eagle-02", assets[1].Name)
	assert.Equal(t, core.KindAerial, assets[1].Kind)
	assert.Equal(t, 15.0, assets[1].Speed)
	assert.Len(t, assets[1].Path, AerialPoints)

	for _, a := range assets {
		assert.Equal(t, 100.0, a.BatteryCapacity)
	}
}
