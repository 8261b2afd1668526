// Package scenario loads an asset registry from a YAML file in place of the
// built-in scout and drone pair.
package scenario

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/aigeo-prime/firewatch/internal/paths"
	"github.com/aigeo-prime/firewatch/internal/random"
	"github.com/aigeo-prime/firewatch/pkg/core"
)

// ErrInvalidScenario wraps every parse and validation failure.
var ErrInvalidScenario = errors.New("invalid scenario")

const defaultCapacity = 100

// File is the YAML document.
type File struct {
	FireCenter *Center     `yaml:"fireCenter"`
	Assets     []AssetSpec `yaml:"assets" validate:"required,min=1,dive"`
}

// Center overrides the fire center used for generated paths.
type Center struct {
	Lat float64 `yaml:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `yaml:"lon" validate:"gte=-180,lte=180"`
}

// AssetSpec describes one asset. Waypoints are generated from Kind when
// omitted.
type AssetSpec struct {
	ID              string         `yaml:"id" validate:"required,max=64"`
	Name            string         `yaml:"name"`
	Kind            string         `yaml:"kind" validate:"required,oneof=scout drone"`
	Speed           float64        `yaml:"speed" validate:"gt=0"`
	BatteryCapacity *float64       `yaml:"batteryCapacity" validate:"omitempty,gte=0,lte=100"`
	Waypoints       []WaypointSpec `yaml:"waypoints" validate:"omitempty,dive"`
}

// WaypointSpec is one explicit waypoint.
type WaypointSpec struct {
	Lat float64  `yaml:"lat" validate:"gte=-90,lte=90"`
	Lon float64  `yaml:"lon" validate:"gte=-180,lte=180"`
	Alt *float64 `yaml:"alt" validate:"omitempty,gte=0"`
}

var validate = validator.New()

// Load reads and resolves the scenario at path.
func Load(path string, src random.Source) ([]core.Asset, core.LatLon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.LatLon{}, fmt.Errorf("%w: read %s: %v", ErrInvalidScenario, path, err)
	}
	return Parse(data, src)
}

// Parse decodes, validates and resolves a scenario document. It returns the
// assets in file order and the fire center they were generated around.
func Parse(data []byte, src random.Source) ([]core.Asset, core.LatLon, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, core.LatLon{}, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, core.LatLon{}, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	center := core.FireCenter
	if f.FireCenter != nil {
		center = core.LatLon{Lat: f.FireCenter.Lat, Lon: f.FireCenter.Lon}
	}

	seen := make(map[string]struct{}, len(f.Assets))
	assets := make([]core.Asset, 0, len(f.Assets))
	for _, entry := range f.Assets {
		if _, dup := seen[entry.ID]; dup {
			return nil, core.LatLon{}, fmt.Errorf("%w: duplicate asset id %q", ErrInvalidScenario, entry.ID)
		}
		seen[entry.ID] = struct{}{}

		a, err := entry.resolve(center, src)
		if err != nil {
			return nil, core.LatLon{}, err
		}
		assets = append(assets, a)
	}
	return assets, center, nil
}

func (s AssetSpec) resolve(center core.LatLon, src random.Source) (core.Asset, error) {
	a := core.Asset{
		ID:              s.ID,
		Name:            s.Name,
		Kind:            core.AssetKind(s.Kind),
		Speed:           s.Speed,
		BatteryCapacity: defaultCapacity,
	}
	if a.Name == "" {
		a.Name = s.ID
	}
	if s.BatteryCapacity != nil {
		a.BatteryCapacity = *s.BatteryCapacity
	}

	if len(s.Waypoints) == 0 {
		path, err := paths.GenerateAround(center, a.Kind, src)
		if err != nil {
			return core.Asset{}, fmt.Errorf("%w: asset %s: %v", ErrInvalidScenario, s.ID, err)
		}
		a.Path = path
		return a, nil
	}

	a.Path = make([]core.Waypoint, len(s.Waypoints))
	for i, w := range s.Waypoints {
		a.Path[i] = core.Waypoint{Lat: w.Lat, Lon: w.Lon, Alt: w.Alt}
	}
	return a, nil
}
